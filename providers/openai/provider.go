// Package openai binds the core interfaces to the OpenAI REST API and to
// OpenAI-compatible endpoints (Azure, Groq, Together, OpenRouter, Ollama,
// LM Studio) reached through a different base URL.
package openai

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/petal-labs/oaikit/core"
)

// DefaultAPIKeyEnvVar is the environment variable name for the OpenAI API key.
const DefaultAPIKeyEnvVar = "OPENAI_API_KEY"

const defaultUserAgent = "oaikit-go"

// ErrAPIKeyNotFound is returned when the API key environment variable is not set.
var ErrAPIKeyNotFound = errors.New("openai: OPENAI_API_KEY environment variable not set")

// NewFromEnv creates a provider from OPENAI_API_KEY. OPENAI_BASE_URL,
// OPENAI_ORG_ID and OPENAI_PROJECT_ID are honored when set; explicit
// options take precedence.
//
//	provider, err := openai.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := core.NewClient(provider)
func NewFromEnv(opts ...Option) (*OpenAI, error) {
	apiKey := os.Getenv(DefaultAPIKeyEnvVar)
	if apiKey == "" {
		return nil, ErrAPIKeyNotFound
	}
	var envOpts []Option
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		envOpts = append(envOpts, WithBaseURL(v))
	}
	if v := os.Getenv("OPENAI_ORG_ID"); v != "" {
		envOpts = append(envOpts, WithOrgID(v))
	}
	if v := os.Getenv("OPENAI_PROJECT_ID"); v != "" {
		envOpts = append(envOpts, WithProjectID(v))
	}
	return New(apiKey, append(envOpts, opts...)...), nil
}

// OpenAI is a provider for the OpenAI API and compatible endpoints.
// OpenAI is safe for concurrent use.
type OpenAI struct {
	config Config
}

// New creates a new OpenAI provider with the given API key and options.
func New(apiKey string, opts ...Option) *OpenAI {
	cfg := Config{
		APIKey:     core.NewSecret(apiKey),
		BaseURL:    DefaultBaseURL,
		HTTPClient: http.DefaultClient,
		Retry:      core.NoRetry(),
		Logger:     zap.NewNop(),
		ProviderID: "openai",
		UserAgent:  defaultUserAgent,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Retry == nil {
		cfg.Retry = core.NoRetry()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ProviderID == "" {
		cfg.ProviderID = "openai"
	}

	return &OpenAI{config: cfg}
}

// ID returns the provider identifier.
func (p *OpenAI) ID() string {
	return p.config.ProviderID
}

// BaseURL returns the configured API base URL without a trailing slash.
func (p *OpenAI) BaseURL() string {
	return p.config.BaseURL
}

// Models returns the static model catalog.
func (p *OpenAI) Models() []core.ModelInfo {
	result := make([]core.ModelInfo, len(models))
	copy(result, models)
	return result
}

// Supports reports whether the provider supports the given feature.
func (p *OpenAI) Supports(feature core.Feature) bool {
	switch feature {
	case core.FeatureChat, core.FeatureChatStreaming, core.FeatureToolCalling,
		core.FeatureStructuredJSON, core.FeatureVision, core.FeatureEmbeddings,
		core.FeatureImageGeneration, core.FeatureAudio, core.FeatureModeration,
		core.FeatureBatch:
		return true
	default:
		return false
	}
}

// buildHeaders constructs the HTTP headers shared by every request.
// Content-Type is set per request.
func (p *OpenAI) buildHeaders() http.Header {
	headers := make(http.Header)

	if key := p.config.APIKey.Expose(); key != "" {
		if p.config.AuthHeader != "" {
			headers.Set(p.config.AuthHeader, key)
		} else {
			headers.Set("Authorization", "Bearer "+key)
		}
	}
	if p.config.OrgID != "" {
		headers.Set("OpenAI-Organization", p.config.OrgID)
	}
	if p.config.ProjectID != "" {
		headers.Set("OpenAI-Project", p.config.ProjectID)
	}
	if p.config.UserAgent != "" {
		headers.Set("User-Agent", p.config.UserAgent)
	}

	for key, values := range p.config.Headers {
		for _, v := range values {
			headers.Add(key, v)
		}
	}

	return headers
}

// Chat sends a non-streaming chat completion request.
func (p *OpenAI) Chat(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	return p.doChat(ctx, req)
}

// StreamChat sends a streaming chat completion request.
func (p *OpenAI) StreamChat(ctx context.Context, req *core.ChatRequest) (*core.ChatStream, error) {
	return p.doStreamChat(ctx, req)
}

var (
	_ core.Provider          = (*OpenAI)(nil)
	_ core.ImageGenerator    = (*OpenAI)(nil)
	_ core.EmbeddingProvider = (*OpenAI)(nil)
)
