package commands

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/petal-labs/oaikit/cli/config"
	"github.com/petal-labs/oaikit/cli/keystore"
	"github.com/petal-labs/oaikit/core"
	"github.com/petal-labs/oaikit/providers"
	"github.com/petal-labs/oaikit/providers/openai"
	"github.com/petal-labs/oaikit/telemetry"
)

// defaultProviderFactory builds a provider for a registered profile, or for
// a custom endpoint declared in the config file.
func defaultProviderFactory(profile, apiKey string, cfg *config.Config, opts ...openai.Option) (*openai.OpenAI, error) {
	var overrides []openai.Option
	if pc := cfg.Profile(profile); pc != nil {
		if pc.BaseURL != "" {
			overrides = append(overrides, openai.WithBaseURL(pc.BaseURL))
		}
		if pc.OrgID != "" {
			overrides = append(overrides, openai.WithOrgID(pc.OrgID))
		}
		if pc.ProjectID != "" {
			overrides = append(overrides, openai.WithProjectID(pc.ProjectID))
		}
	}
	if profile == "openai" {
		if cfg.BaseURL != "" {
			overrides = append(overrides, openai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.OrgID != "" {
			overrides = append(overrides, openai.WithOrgID(cfg.OrgID))
		}
		if cfg.ProjectID != "" {
			overrides = append(overrides, openai.WithProjectID(cfg.ProjectID))
		}
	}
	overrides = append(overrides, opts...)

	if providers.IsRegistered(profile) {
		return openai.FromProfile(profile, apiKey, overrides...)
	}

	pc := cfg.Profile(profile)
	if pc == nil || pc.BaseURL == "" {
		return nil, fmt.Errorf("unknown profile %q: register a base_url under profiles in the config file (built in: %v)",
			profile, providers.List())
	}
	return openai.New(apiKey, append([]openai.Option{openai.WithProviderID(profile)}, overrides...)...), nil
}

// apiKey resolves the key for the active profile. OPENAI_API_KEY wins for
// the openai profile; otherwise the keystore entry named by api_key_ref (or
// the profile name) is used. An empty result lets the profile fall back to
// its own environment variable.
func (a *App) apiKey() (string, error) {
	if a.profile == "openai" && !a.cfg.APIKey.IsEmpty() {
		return a.cfg.APIKey.Expose(), nil
	}

	ref := a.profile
	if pc := a.cfg.Profile(a.profile); pc != nil && pc.APIKeyRef != "" {
		ref = pc.APIKeyRef
	}

	ks, err := a.newKeystore()
	if err != nil {
		a.log().Debug("keystore unavailable", zap.Error(err))
		return "", nil
	}
	key, err := ks.Get(ref)
	var nf *keystore.ErrKeyNotFound
	switch {
	case errors.As(err, &nf):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("read key %q from keystore: %w", ref, err)
	}
	return key, nil
}

// provider creates the provider for the active profile. Calls made through
// a core.Client are retried by the client.
func (a *App) provider(extra ...openai.Option) (*openai.OpenAI, error) {
	key, err := a.apiKey()
	if err != nil {
		return nil, exitWithCode(ExitValidation, err)
	}

	opts := []openai.Option{openai.WithLogger(a.log())}
	if a.cfg.Timeout > 0 {
		opts = append(opts, openai.WithTimeout(a.cfg.Timeout))
	}
	opts = append(opts, extra...)

	p, err := a.createProvider(a.profile, key, a.cfg, opts...)
	if err != nil {
		return nil, exitWithCode(ExitValidation, err)
	}
	return p, nil
}

// directProvider creates a provider that retries on its own, for endpoints
// called without a core.Client (files, batches, audio, models).
func (a *App) directProvider() (*openai.OpenAI, error) {
	return a.provider(openai.WithRetryPolicy(a.retryPolicy()))
}

// client wraps p with retries and telemetry. With --verbose, request spans
// are written to the debug log.
func (a *App) client(p core.Provider) *core.Client {
	hooks := []core.TelemetryHook{telemetry.NewZapHook(a.log())}
	if a.verbose {
		if a.tracer == nil {
			a.tracer = telemetry.NewTracerProvider(a.log())
		}
		hooks = append(hooks, telemetry.NewTracingHook(a.tracer.Tracer("oaikit")))
	}
	return core.NewClient(p,
		core.WithTelemetry(telemetry.Multi(hooks...)),
		core.WithRetryPolicy(a.retryPolicy()),
	)
}

func (a *App) retryPolicy() core.RetryPolicy {
	switch {
	case a.cfg.MaxRetries == nil:
		return core.DefaultRetryPolicy()
	case *a.cfg.MaxRetries == 0:
		return core.NoRetry()
	default:
		return core.NewRetryPolicy(core.RetryConfig{MaxRetries: *a.cfg.MaxRetries})
	}
}

// modelOr returns --model, else the first non-empty fallback.
func (a *App) modelOr(fallbacks ...core.ModelID) (core.ModelID, error) {
	if a.model != "" {
		return core.ModelID(a.model), nil
	}
	for _, m := range fallbacks {
		if m != "" {
			return m, nil
		}
	}
	return "", exitWithCode(ExitValidation,
		errors.New("model required: use --model flag or set default_model in config"))
}

// chatModel returns the chat model: --model, default_model, then the
// profile's default.
func (a *App) chatModel() (core.ModelID, error) {
	var profileDefault core.ModelID
	if p, ok := providers.Lookup(a.profile); ok {
		profileDefault = p.DefaultModel
	}
	return a.modelOr(core.ModelID(a.cfg.DefaultModel), profileDefault)
}
