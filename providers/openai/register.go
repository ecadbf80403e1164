package openai

import (
	"fmt"

	"github.com/petal-labs/oaikit/core"
	"github.com/petal-labs/oaikit/providers"
)

// AzureAPIVersion is the api-version sent to Azure OpenAI deployments.
const AzureAPIVersion = "2024-10-21"

// builtinProfiles are the OpenAI-compatible endpoints known out of the box.
var builtinProfiles = []providers.Profile{
	{Name: "openai", BaseURL: DefaultBaseURL, APIKeyEnv: DefaultAPIKeyEnvVar, DefaultModel: ModelGPT4oMini},
	{
		Name:       "azure",
		APIKeyEnv:  "AZURE_OPENAI_API_KEY",
		BaseURLEnv: "AZURE_OPENAI_ENDPOINT",
		AuthHeader: "api-key",
		Query:      map[string]string{"api-version": AzureAPIVersion},
	},
	{Name: "groq", BaseURL: "https://api.groq.com/openai/v1", APIKeyEnv: "GROQ_API_KEY", DefaultModel: "llama-3.1-8b-instant"},
	{Name: "together", BaseURL: "https://api.together.xyz/v1", APIKeyEnv: "TOGETHER_API_KEY", DefaultModel: "meta-llama/Llama-3.3-70B-Instruct-Turbo"},
	{Name: "openrouter", BaseURL: "https://openrouter.ai/api/v1", APIKeyEnv: "OPENROUTER_API_KEY", DefaultModel: "openai/gpt-4o-mini"},
	{Name: "ollama", BaseURL: "http://localhost:11434/v1", BaseURLEnv: "OLLAMA_BASE_URL", KeyOptional: true, DefaultModel: "llama3.2"},
	{Name: "lmstudio", BaseURL: "http://localhost:1234/v1", KeyOptional: true},
	{Name: "xai", BaseURL: "https://api.x.ai/v1", APIKeyEnv: "XAI_API_KEY", DefaultModel: "grok-3-mini"},
	{Name: "perplexity", BaseURL: "https://api.perplexity.ai", APIKeyEnv: "PERPLEXITY_API_KEY", DefaultModel: "sonar"},
	{Name: "zai", BaseURL: "https://api.z.ai/api/paas/v4", APIKeyEnv: "ZAI_API_KEY", DefaultModel: "glm-4.6"},
	{Name: "huggingface", BaseURL: "https://router.huggingface.co/v1", APIKeyEnv: "HF_TOKEN"},
}

func init() {
	for _, profile := range builtinProfiles {
		providers.Register(profile, func(apiKey string) core.Provider {
			return New(apiKey, ProfileOptions(profile)...)
		})
	}
}

// ProfileOptions returns the options that point a provider at profile.
// Azure reads its deployment URL from AZURE_OPENAI_ENDPOINT.
func ProfileOptions(profile providers.Profile) []Option {
	opts := []Option{WithProviderID(profile.Name)}
	if base := profile.ResolveBaseURL(); base != "" {
		opts = append(opts, WithBaseURL(base))
	}
	if profile.AuthHeader != "" {
		opts = append(opts, WithAPIKeyHeader(profile.AuthHeader))
	}
	for k, v := range profile.Query {
		opts = append(opts, WithQueryParam(k, v))
	}
	return opts
}

// FromProfile creates a provider for a registered profile with extra
// options applied after the profile's own. An empty apiKey falls back to
// the profile's environment variable.
func FromProfile(name, apiKey string, opts ...Option) (*OpenAI, error) {
	profile, ok := providers.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (available: %v)", name, providers.List())
	}
	if apiKey == "" {
		apiKey = profile.APIKeyFromEnv()
	}
	if apiKey == "" && !profile.KeyOptional {
		return nil, fmt.Errorf("%s: no API key: set %s", name, profile.APIKeyEnv)
	}
	return New(apiKey, append(ProfileOptions(profile), opts...)...), nil
}
