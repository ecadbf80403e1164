package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/petal-labs/oaikit/cli/config"
	"github.com/petal-labs/oaikit/cli/keystore"
	"github.com/petal-labs/oaikit/core"
	"github.com/petal-labs/oaikit/providers/openai"
)

// testApp runs commands against an httptest server with captured IO.
type testApp struct {
	srv    *httptest.Server
	cfg    *config.Config
	keys   *keystore.MemoryKeystore
	stdin  string
	stdout bytes.Buffer
	stderr bytes.Buffer

	// profile and apiKey record what the last provider was built with.
	profile string
	apiKey  string
}

func newTestApp(t *testing.T, handler http.HandlerFunc) *testApp {
	t.Helper()
	zero := 0
	ta := &testApp{
		cfg:  &config.Config{MaxRetries: &zero, Profiles: map[string]config.ProfileConfig{}},
		keys: keystore.NewMemoryKeystore(nil),
	}
	if handler != nil {
		ta.srv = httptest.NewServer(handler)
		t.Cleanup(ta.srv.Close)
	}
	return ta
}

func (ta *testApp) run(args ...string) error {
	ta.stdout.Reset()
	ta.stderr.Reset()
	app := NewApp(
		WithConfigLoader(func(string) (*config.Config, error) { return ta.cfg, nil }),
		WithProviderFactory(func(profile, apiKey string, cfg *config.Config, opts ...openai.Option) (*openai.OpenAI, error) {
			ta.profile, ta.apiKey = profile, apiKey
			if ta.srv == nil {
				return nil, errors.New("no test server")
			}
			opts = append(opts, openai.WithBaseURL(ta.srv.URL), openai.WithProviderID(profile))
			return openai.New("test-key", opts...), nil
		}),
		WithKeystoreFactory(func() (keystore.Keystore, error) { return ta.keys, nil }),
		WithIO(strings.NewReader(ta.stdin), &ta.stdout, &ta.stderr),
		WithLogger(zap.NewNop()),
	)
	app.Root().SetArgs(args)
	return app.ExecuteContext(context.Background())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", "req_123")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"message":%q,"type":"invalid_request_error"}}`, msg)
}

func chatCompletion(content string) map[string]any {
	return map[string]any{
		"id":    "chatcmpl-1",
		"model": "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5},
	}
}

func TestExitCodeClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("bad flag"), ExitValidation},
		{"bad request", core.ErrBadRequest, ExitValidation},
		{"provider error", &core.ProviderError{Status: 400, Err: core.ErrBadRequest}, ExitProvider},
		{"unauthorized", fmt.Errorf("wrapped: %w", core.ErrUnauthorized), ExitProvider},
		{"rate limited", core.ErrRateLimited, ExitProvider},
		{"server", core.ErrServer, ExitProvider},
		{"network", core.ErrNetwork, ExitNetwork},
		{"deadline", context.DeadlineExceeded, ExitNetwork},
		{"explicit", exitWithCode(ExitNetwork, errors.New("x")), ExitNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitError(t *testing.T) {
	inner := errors.New("test error")
	err := exitWithCode(ExitValidation, inner)
	if err.Error() != "test error" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("exit error should unwrap to the cause")
	}
	if providerErr(nil) != nil {
		t.Error("providerErr(nil) should be nil")
	}
}

func TestProviderErrorReport(t *testing.T) {
	ta := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusUnauthorized, "Incorrect API key")
	})

	err := ta.run("chat", "--prompt", "hi")
	if got := ExitCode(err); got != ExitProvider {
		t.Fatalf("exit code = %d, want %d (err %v)", got, ExitProvider, err)
	}
	out := ta.stderr.String()
	if !strings.Contains(out, "Error: Incorrect API key") || !strings.Contains(out, "req_123") {
		t.Errorf("stderr = %q", out)
	}
}

func TestProviderErrorReportJSON(t *testing.T) {
	ta := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusTooManyRequests, "slow down")
	})

	err := ta.run("chat", "--prompt", "hi", "--json")
	if ExitCode(err) != ExitProvider {
		t.Fatalf("exit code = %d", ExitCode(err))
	}
	var body struct {
		Error struct {
			Type      string `json:"type"`
			Message   string `json:"message"`
			Status    int    `json:"status"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	if err := json.Unmarshal(ta.stderr.Bytes(), &body); err != nil {
		t.Fatalf("stderr is not JSON: %v\n%s", err, ta.stderr.String())
	}
	if body.Error.Type != "rate_limited" || body.Error.Status != 429 || body.Error.RequestID != "req_123" {
		t.Errorf("error body = %+v", body.Error)
	}
}

func TestNetworkErrorExitCode(t *testing.T) {
	ta := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {})
	ta.srv.Close()

	err := ta.run("chat", "--prompt", "hi")
	if got := ExitCode(err); got != ExitNetwork {
		t.Errorf("exit code = %d, want %d (err %v)", got, ExitNetwork, err)
	}
}

func TestUnknownFlagIsValidationError(t *testing.T) {
	ta := newTestApp(t, nil)
	err := ta.run("chat", "--no-such-flag")
	if ExitCode(err) != ExitValidation {
		t.Errorf("exit code = %d", ExitCode(err))
	}
}

func TestProfileSelection(t *testing.T) {
	ta := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, chatCompletion("ok"))
	})
	ta.cfg.DefaultProfile = "groq"

	if err := ta.run("chat", "--prompt", "hi"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if ta.profile != "groq" {
		t.Errorf("profile = %q, want groq from config", ta.profile)
	}
	if err := ta.run("chat", "--prompt", "hi", "--profile", "ollama"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if ta.profile != "ollama" {
		t.Errorf("profile = %q, want ollama from flag", ta.profile)
	}
}

func TestAPIKeyResolution(t *testing.T) {
	ta := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, chatCompletion("ok"))
	})
	_ = ta.keys.Set("openai", "sk-stored")
	_ = ta.keys.Set("team-groq", "gsk-team")
	ta.cfg.Profiles["groq"] = config.ProfileConfig{APIKeyRef: "team-groq"}

	if err := ta.run("chat", "--prompt", "hi"); err != nil {
		t.Fatal(err)
	}
	if ta.apiKey != "sk-stored" {
		t.Errorf("openai key = %q, want keystore value", ta.apiKey)
	}

	ta.cfg.APIKey = core.NewSecret("sk-env")
	if err := ta.run("chat", "--prompt", "hi"); err != nil {
		t.Fatal(err)
	}
	if ta.apiKey != "sk-env" {
		t.Errorf("openai key = %q, want OPENAI_API_KEY value", ta.apiKey)
	}

	if err := ta.run("chat", "--prompt", "hi", "--profile", "groq"); err != nil {
		t.Fatal(err)
	}
	if ta.apiKey != "gsk-team" {
		t.Errorf("groq key = %q, want api_key_ref value", ta.apiKey)
	}

	if err := ta.run("chat", "--prompt", "hi", "--profile", "together"); err != nil {
		t.Fatal(err)
	}
	if ta.apiKey != "" {
		t.Errorf("together key = %q, want empty so the profile env var applies", ta.apiKey)
	}
}

func TestModelRequiredForCustomProfile(t *testing.T) {
	ta := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, chatCompletion("ok"))
	})
	ta.cfg.Profiles["local"] = config.ProfileConfig{BaseURL: "http://localhost:9999/v1"}

	err := ta.run("chat", "--prompt", "hi", "--profile", "local")
	if ExitCode(err) != ExitValidation || !strings.Contains(fmt.Sprint(err), "model") {
		t.Errorf("err = %v (exit %d)", err, ExitCode(err))
	}
	if err := ta.run("chat", "--prompt", "hi", "--profile", "local", "--model", "qwen2.5"); err != nil {
		t.Errorf("with --model: %v", err)
	}
}

func TestDefaultProviderFactory(t *testing.T) {
	cfg := &config.Config{Profiles: map[string]config.ProfileConfig{
		"vllm":  {BaseURL: "http://gpu:8000/v1"},
		"broke": {},
		"groq":  {BaseURL: "http://proxy/groq"},
	}}

	p, err := defaultProviderFactory("vllm", "k", cfg)
	if err != nil {
		t.Fatalf("custom profile: %v", err)
	}
	if p.ID() != "vllm" || p.BaseURL() != "http://gpu:8000/v1" {
		t.Errorf("vllm = %s %s", p.ID(), p.BaseURL())
	}

	p, err = defaultProviderFactory("groq", "k", cfg)
	if err != nil {
		t.Fatalf("groq: %v", err)
	}
	if p.ID() != "groq" || p.BaseURL() != "http://proxy/groq" {
		t.Errorf("groq = %s %s", p.ID(), p.BaseURL())
	}

	if _, err := defaultProviderFactory("broke", "k", cfg); err == nil {
		t.Error("custom profile without base_url should fail")
	}
	if _, err := defaultProviderFactory("nowhere", "k", cfg); err == nil || !strings.Contains(err.Error(), "unknown profile") {
		t.Errorf("unknown profile err = %v", err)
	}
}

func TestRetryPolicyFromConfig(t *testing.T) {
	retries := func(n *int) int {
		a := &App{cfg: &config.Config{MaxRetries: n}}
		p := a.retryPolicy()
		count := 0
		for attempt := 0; attempt < 10; attempt++ {
			if _, ok := p.NextDelay(attempt, core.ErrServer); !ok {
				break
			}
			count++
		}
		return count
	}
	zero, five := 0, 5
	if got := retries(nil); got != 3 {
		t.Errorf("unset max_retries: %d retries, want 3", got)
	}
	if got := retries(&zero); got != 0 {
		t.Errorf("max_retries 0: %d retries, want 0", got)
	}
	if got := retries(&five); got != 5 {
		t.Errorf("max_retries 5: %d retries, want 5", got)
	}
}
