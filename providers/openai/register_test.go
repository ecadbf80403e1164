package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/petal-labs/oaikit/providers"
)

func TestBuiltinProfilesRegistered(t *testing.T) {
	for _, name := range []string{"openai", "azure", "groq", "together", "openrouter", "ollama", "lmstudio", "xai", "perplexity", "zai", "huggingface"} {
		if !providers.IsRegistered(name) {
			t.Errorf("profile %q not registered", name)
		}
	}
}

func TestCreateGroqProfile(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")
	p, err := providers.Create("groq", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.ID() != "groq" {
		t.Errorf("ID() = %q", p.ID())
	}
	op := p.(*OpenAI)
	if op.BaseURL() != "https://api.groq.com/openai/v1" {
		t.Errorf("BaseURL() = %q", op.BaseURL())
	}
	if op.buildHeaders().Get("Authorization") != "Bearer gsk-test" {
		t.Error("groq key not sent as bearer token")
	}
}

func TestOllamaNeedsNoKey(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")
	p, err := providers.Create("ollama", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.(*OpenAI).BaseURL() != "http://localhost:11434/v1" {
		t.Errorf("BaseURL() = %q", p.(*OpenAI).BaseURL())
	}
}

func TestAzureProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "az-key" {
			t.Errorf("api-key = %q", r.Header.Get("api-key"))
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("Authorization must not be sent to azure")
		}
		if r.URL.Query().Get("api-version") != AzureAPIVersion {
			t.Errorf("api-version = %q", r.URL.Query().Get("api-version"))
		}
		if r.URL.Path != "/openai/deployments/gpt4o/models" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	t.Setenv("AZURE_OPENAI_API_KEY", "az-key")
	t.Setenv("AZURE_OPENAI_ENDPOINT", server.URL+"/openai/deployments/gpt4o")
	p, err := FromProfile("azure", "")
	if err != nil {
		t.Fatalf("FromProfile() error = %v", err)
	}
	if _, err := p.ListModels(context.Background()); err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
}

func TestFromProfileOptionsOverride(t *testing.T) {
	p, err := FromProfile("lmstudio", "", WithBaseURL("http://10.0.0.5:1234/v1"), WithProviderID("lab"))
	if err != nil {
		t.Fatal(err)
	}
	if p.BaseURL() != "http://10.0.0.5:1234/v1" || p.ID() != "lab" {
		t.Errorf("BaseURL/ID = %q/%q", p.BaseURL(), p.ID())
	}
}

func TestFromProfileErrors(t *testing.T) {
	if _, err := FromProfile("nope", "k"); err == nil {
		t.Error("expected unknown provider error")
	}
	t.Setenv("TOGETHER_API_KEY", "")
	if _, err := FromProfile("together", ""); err == nil {
		t.Error("expected missing key error")
	}
}
