package providers

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/petal-labs/oaikit/core"
)

// Profile describes an OpenAI-compatible endpoint.
type Profile struct {
	Name         string
	BaseURL      string            // empty means it must be configured, e.g. azure
	BaseURLEnv   string            // environment variable overriding BaseURL
	APIKeyEnv    string            // environment variable holding the key
	KeyOptional  bool              // local servers that accept any key
	AuthHeader   string            // header carrying the key; empty means Authorization: Bearer
	Query        map[string]string // extra query parameters on every call, e.g. api-version
	DefaultModel core.ModelID
}

// APIKeyFromEnv returns the key from the profile's environment variable.
func (p Profile) APIKeyFromEnv() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// ResolveBaseURL returns the base URL from BaseURLEnv when set, else BaseURL.
func (p Profile) ResolveBaseURL() string {
	if p.BaseURLEnv != "" {
		if v := os.Getenv(p.BaseURLEnv); v != "" {
			return v
		}
	}
	return p.BaseURL
}

// ProviderFactory creates a provider instance with the given API key.
// Some endpoints (like Ollama) ignore the key.
type ProviderFactory func(apiKey string) core.Provider

type entry struct {
	profile Profile
	factory ProviderFactory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]entry)
)

// Register adds a profile and its factory. It is typically called from a
// provider package's init function. Registering a name twice overwrites it.
func Register(p Profile, factory ProviderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[p.Name] = entry{profile: p, factory: factory}
}

// Lookup returns the profile registered under name.
func Lookup(name string) (Profile, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := registry[name]
	return e.profile, ok
}

// Get retrieves a provider factory by name, or nil if unknown.
func Get(name string) ProviderFactory {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[name].factory
}

// Create creates a provider by name. An empty apiKey falls back to the
// profile's environment variable.
func Create(name, apiKey string) (core.Provider, error) {
	registryMu.RLock()
	e, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (available: %v)", name, List())
	}
	if apiKey == "" {
		apiKey = e.profile.APIKeyFromEnv()
	}
	if apiKey == "" && !e.profile.KeyOptional {
		return nil, fmt.Errorf("%s: no API key: set %s", name, e.profile.APIKeyEnv)
	}
	return e.factory(apiKey), nil
}

// List returns the names of all registered profiles in sorted order.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profiles returns all registered profiles sorted by name.
func Profiles() []Profile {
	names := List()
	out := make([]Profile, 0, len(names))
	for _, n := range names {
		if p, ok := Lookup(n); ok {
			out = append(out, p)
		}
	}
	return out
}

// IsRegistered reports whether a profile with the given name is registered.
func IsRegistered(name string) bool {
	_, ok := Lookup(name)
	return ok
}
