package openai

import (
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/petal-labs/oaikit/core"
)

// Config holds configuration for the OpenAI provider.
type Config struct {
	// APIKey is the API key sent as a bearer token. Local servers such as
	// Ollama accept an empty key.
	APIKey core.Secret

	// BaseURL is the API base URL. Defaults to https://api.openai.com/v1
	BaseURL string

	// HTTPClient is the HTTP client to use. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// OrgID is the optional OpenAI organization ID.
	OrgID string

	// ProjectID is the optional OpenAI project ID.
	ProjectID string

	// Headers contains optional extra headers to include in requests.
	Headers http.Header

	// Timeout bounds each non-streaming request, including retries. Zero means none.
	Timeout time.Duration

	// Retry drives transport-level retries. Defaults to core.NoRetry().
	Retry core.RetryPolicy

	// Logger receives debug request logs. Defaults to zap.NewNop().
	Logger *zap.Logger

	// ProviderID is reported by ID() and in errors. Defaults to "openai".
	ProviderID string

	// UserAgent overrides the User-Agent header.
	UserAgent string

	// AuthHeader carries the key instead of Authorization: Bearer, e.g.
	// "api-key" for Azure deployments.
	AuthHeader string

	// Query is appended to every request URL, e.g. api-version.
	Query url.Values
}

// DefaultBaseURL is the default OpenAI API base URL.
const DefaultBaseURL = "https://api.openai.com/v1"

// Option configures the OpenAI provider.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Config) {
		c.BaseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithOrgID sets the OpenAI organization ID header.
func WithOrgID(org string) Option {
	return func(c *Config) {
		c.OrgID = org
	}
}

// WithProjectID sets the OpenAI project ID header.
func WithProjectID(project string) Option {
	return func(c *Config) {
		c.ProjectID = project
	}
}

// WithHeader adds an extra header to include in requests.
func WithHeader(key, value string) Option {
	return func(c *Config) {
		if c.Headers == nil {
			c.Headers = make(http.Header)
		}
		c.Headers.Set(key, value)
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithRetryPolicy retries failed HTTP calls inside the provider.
// Leave unset when the provider is wrapped by a core.Client, which retries on its own.
func WithRetryPolicy(r core.RetryPolicy) Option {
	return func(c *Config) {
		c.Retry = r
	}
}

// WithLogger sets the logger used for request debug logs.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithProviderID changes the identifier reported by the provider, for
// OpenAI-compatible endpoints such as groq or ollama.
func WithProviderID(id string) Option {
	return func(c *Config) {
		c.ProviderID = id
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.UserAgent = ua
	}
}

// WithAPIKeyHeader sends the key in the named header verbatim instead of
// as a bearer token.
func WithAPIKeyHeader(name string) Option {
	return func(c *Config) {
		c.AuthHeader = name
	}
}

// WithQueryParam adds a query parameter to every request.
func WithQueryParam(key, value string) Option {
	return func(c *Config) {
		if c.Query == nil {
			c.Query = make(url.Values)
		}
		c.Query.Set(key, value)
	}
}
