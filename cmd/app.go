package cmd

import (
	"context"
	"io"
	"os"

	"github.com/jmurray2011/recency/internal/logging"
	"github.com/jmurray2011/recency/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// appContextKey is the context key for the App instance.
type appContextKey struct{}

// Config holds the resolved settings a command runs with.
type Config struct {
	Profile      string
	Region       string
	OutputFormat string
	Capacity     int
	Workers      int
	Verbose      bool
	NoColor      bool
	Quiet        bool
}

// App holds the application dependencies that can be injected for testing.
// It is the only place commands get their renderer, logger and input from;
// caches are built per command, never shared through the App.
type App struct {
	Config Config
	Render *ui.Renderer
	Logger logging.Logger
	Stdin  io.Reader
	Out    io.Writer
}

// NewApp creates a new App with configuration from flags and viper,
// writing to the command's output streams.
func NewApp(cmd *cobra.Command) *App {
	cfg := Config{
		Profile:      viper.GetString("profile"),
		Region:       viper.GetString("region"),
		OutputFormat: viper.GetString("output"),
		Capacity:     viper.GetInt("capacity"),
		Workers:      viper.GetInt("workers"),
		Verbose:      IsVerbose(),
		NoColor:      noColor || os.Getenv("NO_COLOR") != "",
		Quiet:        quiet,
	}
	if profile != "" {
		cfg.Profile = profile
	}
	if region != "" {
		cfg.Region = region
	}
	if outputFormat != "" {
		cfg.OutputFormat = outputFormat
	}

	renderer := ui.NewRendererWithOptions(
		ui.WithOutput(cmd.OutOrStdout()),
		ui.WithError(cmd.ErrOrStderr()),
		ui.WithNoColor(cfg.NoColor),
		ui.WithQuiet(cfg.Quiet),
	)

	app := NewAppWithConfig(cfg, renderer, logging.Default())
	app.Stdin = cmd.InOrStdin()
	app.Out = cmd.OutOrStdout()
	return app
}

// NewAppWithConfig creates a new App with the given configuration.
// This is primarily used for testing.
func NewAppWithConfig(cfg Config, renderer *ui.Renderer, logger logging.Logger) *App {
	if renderer == nil {
		renderer = ui.NewRendererWithOptions(ui.WithNoColor(cfg.NoColor), ui.WithQuiet(cfg.Quiet))
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	return &App{
		Config: cfg,
		Render: renderer,
		Logger: logger,
		Stdin:  os.Stdin,
		Out:    renderer.Out(),
	}
}

// GetApp retrieves the App from the command context.
// If no App is set, it creates a new default one.
func GetApp(cmd *cobra.Command) *App {
	if ctx := cmd.Context(); ctx != nil {
		if app, ok := ctx.Value(appContextKey{}).(*App); ok {
			return app
		}
	}
	return NewApp(cmd)
}

// SetApp stores the App in the context for a command.
func SetApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appContextKey{}, app)
}

// Debugf prints a debug message if verbose mode is enabled.
func (a *App) Debugf(format string, args ...interface{}) {
	if a.Config.Verbose {
		a.Render.Debug(format, args...)
	}
}

// GetProfile returns the AWS profile.
func (a *App) GetProfile() string {
	return a.Config.Profile
}

// GetRegion returns the AWS region.
func (a *App) GetRegion() string {
	return a.Config.Region
}

// GetOutputFormat returns the output format, text if unset.
func (a *App) GetOutputFormat() string {
	if a.Config.OutputFormat != "" {
		return a.Config.OutputFormat
	}
	return "text"
}

// GetCapacity returns the --capacity flag when it was given on cmd,
// otherwise the configured capacity.
func (a *App) GetCapacity(cmd *cobra.Command, flagValue int) int {
	if cmd != nil && cmd.Flags().Changed("capacity") {
		return flagValue
	}
	return a.Config.Capacity
}

// rendererOptions returns the renderer settings formatters should share
// with the App's renderer.
func rendererOptions(a *App) []ui.Option {
	return []ui.Option{
		ui.WithNoColor(a.Config.NoColor),
		ui.WithQuiet(a.Config.Quiet),
	}
}
