package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/petal-labs/oaikit/core"
)

// newTestProvider starts a server with handler and returns a provider
// pointed at it. The server is closed when the test ends.
func newTestProvider(t *testing.T, handler http.HandlerFunc, opts ...Option) *OpenAI {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New("test-key", append([]Option{WithBaseURL(server.URL)}, opts...)...)
}

func TestNewDefaults(t *testing.T) {
	p := New("sk-test")
	if p.ID() != "openai" {
		t.Errorf("ID() = %q, want openai", p.ID())
	}
	if p.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %q", p.BaseURL())
	}
	if p.config.HTTPClient != http.DefaultClient {
		t.Error("HTTPClient should default to http.DefaultClient")
	}
	if p.config.Logger == nil || p.config.Retry == nil {
		t.Error("Logger and Retry must have defaults")
	}
}

func TestNewTrimsTrailingSlash(t *testing.T) {
	p := New("k", WithBaseURL("http://localhost:11434/v1/"))
	if p.BaseURL() != "http://localhost:11434/v1" {
		t.Errorf("BaseURL() = %q", p.BaseURL())
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv(DefaultAPIKeyEnvVar, "")
	if _, err := NewFromEnv(); !errors.Is(err, ErrAPIKeyNotFound) {
		t.Errorf("err = %v, want ErrAPIKeyNotFound", err)
	}

	t.Setenv(DefaultAPIKeyEnvVar, "sk-env")
	t.Setenv("OPENAI_BASE_URL", "http://env.example/v1")
	t.Setenv("OPENAI_ORG_ID", "org-env")
	p, err := NewFromEnv(WithBaseURL("http://explicit.example/v1"))
	if err != nil {
		t.Fatalf("NewFromEnv() error = %v", err)
	}
	if p.config.APIKey.Expose() != "sk-env" {
		t.Error("API key not read from environment")
	}
	if p.BaseURL() != "http://explicit.example/v1" {
		t.Errorf("explicit option should win, BaseURL() = %q", p.BaseURL())
	}
	if p.config.OrgID != "org-env" {
		t.Errorf("OrgID = %q, want org-env", p.config.OrgID)
	}
}

func TestBuildHeaders(t *testing.T) {
	p := New("sk-test",
		WithOrgID("org-1"),
		WithProjectID("proj-1"),
		WithHeader("X-Trace", "abc"),
	)
	h := p.buildHeaders()
	if h.Get("Authorization") != "Bearer sk-test" {
		t.Errorf("Authorization = %q", h.Get("Authorization"))
	}
	if h.Get("OpenAI-Organization") != "org-1" || h.Get("OpenAI-Project") != "proj-1" {
		t.Errorf("org/project headers = %v", h)
	}
	if h.Get("X-Trace") != "abc" {
		t.Errorf("X-Trace = %q", h.Get("X-Trace"))
	}
	if h.Get("User-Agent") != defaultUserAgent {
		t.Errorf("User-Agent = %q", h.Get("User-Agent"))
	}
}

func TestBuildHeadersAPIKeyHeader(t *testing.T) {
	h := New("azure-key", WithAPIKeyHeader("api-key")).buildHeaders()
	if h.Get("api-key") != "azure-key" {
		t.Errorf("api-key = %q", h.Get("api-key"))
	}
	if h.Get("Authorization") != "" {
		t.Error("Authorization must not be sent when a key header is configured")
	}
}

func TestBuildHeadersNoKey(t *testing.T) {
	if h := New("").buildHeaders(); h.Get("Authorization") != "" {
		t.Errorf("Authorization = %q, want empty for keyless endpoints", h.Get("Authorization"))
	}
}

func TestQueryParamsSent(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api-version") != "2024-10-21" {
			t.Errorf("api-version = %q", r.URL.Query().Get("api-version"))
		}
		w.Write([]byte(`{"object":"list","data":[]}`))
	}, WithQueryParam("api-version", "2024-10-21"))

	if _, err := p.ListModels(context.Background()); err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
}

func TestSupports(t *testing.T) {
	p := New("k")
	for _, f := range []core.Feature{
		core.FeatureChat, core.FeatureChatStreaming, core.FeatureToolCalling,
		core.FeatureEmbeddings, core.FeatureImageGeneration, core.FeatureAudio,
		core.FeatureModeration, core.FeatureBatch,
	} {
		if !p.Supports(f) {
			t.Errorf("Supports(%q) = false", f)
		}
	}
	if p.Supports(core.Feature("unknown")) {
		t.Error("Supports(unknown) = true")
	}
}

func TestModelsReturnsCopy(t *testing.T) {
	p := New("k")
	ms := p.Models()
	if len(ms) == 0 {
		t.Fatal("Models() is empty")
	}
	ms[0].DisplayName = "mutated"
	if p.Models()[0].DisplayName == "mutated" {
		t.Error("Models() must return a copy")
	}
	if info := GetModelInfo(ModelGPT4o); info == nil || !info.HasCapability(core.FeatureVision) {
		t.Errorf("GetModelInfo(gpt-4o) = %+v", info)
	}
	if GetModelInfo("no-such-model") != nil {
		t.Error("unknown model should return nil")
	}
}
