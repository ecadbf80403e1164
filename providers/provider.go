// Package providers holds the registry of OpenAI-compatible endpoint profiles.
//
// The HTTP binding itself lives in providers/openai, which registers the
// built-in profiles (openai, azure, groq, together, openrouter, ollama,
// lmstudio, xai, perplexity, zai, huggingface) from its init function:
//
//	import _ "github.com/petal-labs/oaikit/providers/openai"
//
//	p, err := providers.Create("groq", "")  // key from GROQ_API_KEY
//
// Providers MUST be safe for concurrent calls and follow the core.ChatStream
// channel rules: close Ch, Err, and Final when finished, terminate promptly on
// context cancellation, send at most one error, and send Final only on success.
package providers

import "github.com/petal-labs/oaikit/core"

// Re-export core types for convenience.
type (
	Provider      = core.Provider
	Feature       = core.Feature
	ModelInfo     = core.ModelInfo
	ModelID       = core.ModelID
	ProviderError = core.ProviderError
)
