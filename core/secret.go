package core

// Secret holds a credential such as an API key. Printing, JSON, YAML and
// text encodings all yield a redacted placeholder; only Expose returns the value.
//
//	key := NewSecret("sk-abc123")
//	fmt.Println(key)  // [REDACTED]
//	key.Expose()      // "sk-abc123"
type Secret struct {
	value string
}

const redacted = "[REDACTED]"

// NewSecret wraps value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// String implements fmt.Stringer.
func (s Secret) String() string { return redacted }

// GoString implements fmt.GoStringer for %#v.
func (s Secret) GoString() string { return "core.Secret{" + redacted + "}" }

// MarshalJSON implements json.Marshaler.
func (s Secret) MarshalJSON() ([]byte, error) { return []byte(`"` + redacted + `"`), nil }

// MarshalText implements encoding.TextMarshaler.
func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// Expose returns the underlying value. Only use it where the raw value is
// required, such as an Authorization header.
func (s Secret) Expose() string { return s.value }

// IsEmpty reports whether the secret is empty.
func (s Secret) IsEmpty() bool { return s.value == "" }

// Hint returns a short non-reversible hint like "sk-...c123" for display.
func (s Secret) Hint() string {
	if len(s.value) <= 8 {
		return redacted
	}
	return s.value[:3] + "..." + s.value[len(s.value)-4:]
}
