package keystore

import (
	"crypto/sha256"
	"errors"
	"os"
)

// PassphraseEnvVar names the variable holding the keystore passphrase.
const PassphraseEnvVar = "OAIKIT_KEYSTORE_PASSPHRASE"

// ErrNoMasterKey is returned when a source has no key material.
var ErrNoMasterKey = errors.New("keystore: no master key available")

// MasterKeySource supplies the secret that file encryption keys are derived from.
type MasterKeySource interface {
	MasterKey() ([]byte, error)
}

// StaticKey is a fixed master key, mainly for tests and embedding.
type StaticKey []byte

// MasterKey implements MasterKeySource.
func (k StaticKey) MasterKey() ([]byte, error) {
	if len(k) == 0 {
		return nil, ErrNoMasterKey
	}
	return []byte(k), nil
}

// EnvPassphrase reads the master key from an environment variable.
type EnvPassphrase struct {
	Var string // defaults to PassphraseEnvVar
}

// MasterKey implements MasterKeySource.
func (s EnvPassphrase) MasterKey() ([]byte, error) {
	name := s.Var
	if name == "" {
		name = PassphraseEnvVar
	}
	v := os.Getenv(name)
	if v == "" {
		return nil, ErrNoMasterKey
	}
	return []byte(v), nil
}

// MachineKey derives a master key from the host and user names. It keeps
// keys unreadable when the file is copied elsewhere but offers no protection
// against other processes of the same user.
type MachineKey struct{}

// MasterKey implements MasterKeySource.
func (MachineKey) MasterKey() ([]byte, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}
	sum := sha256.Sum256([]byte(hostname + ":" + username + ":oaikit-keystore"))
	return sum[:], nil
}

// FirstOf tries each source in order and returns the first key found.
type FirstOf []MasterKeySource

// MasterKey implements MasterKeySource.
func (f FirstOf) MasterKey() ([]byte, error) {
	for _, s := range f {
		key, err := s.MasterKey()
		if errors.Is(err, ErrNoMasterKey) {
			continue
		}
		return key, err
	}
	return nil, ErrNoMasterKey
}

// DefaultMasterKeySource prefers the passphrase variable and falls back to
// the machine-derived key.
func DefaultMasterKeySource() MasterKeySource {
	return FirstOf{EnvPassphrase{}, MachineKey{}}
}
