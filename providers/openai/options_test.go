package openai

import (
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/petal-labs/oaikit/core"
)

func TestOptions(t *testing.T) {
	customClient := &http.Client{Timeout: 30 * time.Second}
	logger := zap.NewExample()
	policy := core.NewRetryPolicy(core.RetryConfig{MaxRetries: 2})

	cfg := Config{}
	for _, opt := range []Option{
		WithBaseURL("https://custom.api.com/v1"),
		WithHTTPClient(customClient),
		WithOrgID("org-12345"),
		WithProjectID("proj-67890"),
		WithHeader("X-Custom", "v1"),
		WithHeader("X-Other", "v2"),
		WithTimeout(45 * time.Second),
		WithRetryPolicy(policy),
		WithLogger(logger),
		WithProviderID("groq"),
		WithUserAgent("my-app/1.0"),
		WithAPIKeyHeader("api-key"),
		WithQueryParam("api-version", "2024-10-21"),
	} {
		opt(&cfg)
	}

	if cfg.BaseURL != "https://custom.api.com/v1" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.HTTPClient != customClient {
		t.Error("HTTPClient not set correctly")
	}
	if cfg.OrgID != "org-12345" || cfg.ProjectID != "proj-67890" {
		t.Errorf("OrgID/ProjectID = %q/%q", cfg.OrgID, cfg.ProjectID)
	}
	if cfg.Headers.Get("X-Custom") != "v1" || cfg.Headers.Get("X-Other") != "v2" {
		t.Errorf("Headers = %v", cfg.Headers)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.Retry != policy {
		t.Error("Retry not set correctly")
	}
	if cfg.Logger != logger {
		t.Error("Logger not set correctly")
	}
	if cfg.ProviderID != "groq" || cfg.UserAgent != "my-app/1.0" {
		t.Errorf("ProviderID/UserAgent = %q/%q", cfg.ProviderID, cfg.UserAgent)
	}
	if cfg.AuthHeader != "api-key" {
		t.Errorf("AuthHeader = %q", cfg.AuthHeader)
	}
	if cfg.Query.Get("api-version") != "2024-10-21" {
		t.Errorf("Query = %v", cfg.Query)
	}
}

func TestWithHeaderOverwrites(t *testing.T) {
	cfg := Config{}
	WithHeader("X-Custom", "a")(&cfg)
	WithHeader("X-Custom", "b")(&cfg)
	if got := cfg.Headers.Values("X-Custom"); len(got) != 1 || got[0] != "b" {
		t.Errorf("X-Custom = %v, want [b]", got)
	}
}
