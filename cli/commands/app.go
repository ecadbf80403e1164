// Package commands implements the oaikit command tree using Cobra.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/petal-labs/oaikit/cli/config"
	"github.com/petal-labs/oaikit/cli/keystore"
	"github.com/petal-labs/oaikit/providers/openai"
)

// ConfigLoader loads CLI config from a path.
type ConfigLoader func(path string) (*config.Config, error)

// ProviderFactory creates a provider for a profile. opts are applied after
// the profile's own options.
type ProviderFactory func(profile, apiKey string, cfg *config.Config, opts ...openai.Option) (*openai.OpenAI, error)

// KeystoreFactory creates a keystore instance.
type KeystoreFactory func() (keystore.Keystore, error)

// AppOption customizes App dependencies.
type AppOption func(*App)

// App holds CLI state and runtime dependencies.
type App struct {
	root *cobra.Command

	loadConfig     ConfigLoader
	createProvider ProviderFactory
	newKeystore    KeystoreFactory
	stdin          io.Reader
	stdout         io.Writer
	stderr         io.Writer

	cfgFile    string
	profile    string
	model      string
	jsonOutput bool
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
	tracer *sdktrace.TracerProvider
}

// WithConfigLoader injects a config loader dependency.
func WithConfigLoader(loader ConfigLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.loadConfig = loader
		}
	}
}

// WithProviderFactory injects a provider factory dependency.
func WithProviderFactory(factory ProviderFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.createProvider = factory
		}
	}
}

// WithKeystoreFactory injects a keystore factory dependency.
func WithKeystoreFactory(factory KeystoreFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.newKeystore = factory
		}
	}
}

// WithIO injects process I/O streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) AppOption {
	return func(a *App) {
		if stdin != nil {
			a.stdin = stdin
		}
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// WithLogger replaces the logger built from --verbose.
func WithLogger(l *zap.Logger) AppOption {
	return func(a *App) {
		a.logger = l
	}
}

// NewApp creates a new CLI app with default dependencies.
func NewApp(opts ...AppOption) *App {
	a := &App{
		loadConfig:     config.LoadConfig,
		createProvider: defaultProviderFactory,
		newKeystore:    keystore.NewKeystore,
		stdin:          os.Stdin,
		stdout:         os.Stdout,
		stderr:         os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.root = a.newRootCommand()
	return a
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "oaikit",
		Short: "oaikit - client for OpenAI-compatible APIs",
		Long: `oaikit is a command-line client for OpenAI-compatible APIs.

Use it to chat with models, create embeddings and images, work with audio,
files and batches, and build small local search indexes.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(); err != nil {
				return exitWithCode(ExitValidation, err)
			}
			return a.initLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.shutdown()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ~/.oaikit/config.yaml)")
	root.PersistentFlags().StringVar(&a.profile, "profile", "", "endpoint profile (openai, azure, groq, ollama, ...)")
	root.PersistentFlags().StringVar(&a.model, "model", "", "model ID (e.g. gpt-4o-mini)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "emit JSON output")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "enable debug logging and tracing")

	root.AddCommand(
		a.newChatCommand(),
		a.newEmbedCommand(),
		a.newFilesCommand(),
		a.newBatchCommand(),
		a.newImagesCommand(),
		a.newAudioCommand(),
		a.newModelsCommand(),
		a.newModerateCommand(),
		a.newSearchCommand(),
		a.newKeysCommand(),
		a.newInitCommand(),
		a.newVersionCommand(),
	)
	return root
}

// Root returns the root command, for tests and documentation generators.
func (a *App) Root() *cobra.Command {
	return a.root
}

// Execute runs the root command. Failures are reported on stderr before
// they are returned.
func (a *App) Execute() error {
	return a.ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx.
func (a *App) ExecuteContext(ctx context.Context) error {
	err := a.root.ExecuteContext(ctx)
	if err != nil {
		a.shutdown()
		a.reportError(err)
	}
	return err
}

func (a *App) initConfig() error {
	path := a.cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := a.loadConfig(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	if a.profile == "" {
		a.profile = cfg.DefaultProfile
	}
	if a.profile == "" {
		a.profile = "openai"
	}
	return nil
}

func (a *App) initLogger() error {
	if a.logger != nil {
		return nil
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if a.verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

func (a *App) shutdown() {
	if a.tracer != nil {
		_ = a.tracer.Shutdown(context.Background())
		a.tracer = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *App) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}
