package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roach88/slipdesk/internal/backend"
	"github.com/roach88/slipdesk/internal/config"
	"github.com/roach88/slipdesk/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	DBPath     string

	// Logger and Config are set before any subcommand runs. A preset Logger
	// is kept.
	Logger *zap.Logger
	Config *config.Config

	ownLogger bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the slipdesk CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slipdesk",
		Short: "slipdesk - payment slip intake client",
		Long: `Submit payment-slip evidence to the intake backend, correlate approved
receipts, search ingested evidence and download aggregate reports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.ownLogger && opts.Logger != nil {
				_ = opts.Logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default "+config.DefaultPath+" if present)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "field store database (overrides config)")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewManualCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewFieldsCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewOptionsCommand(opts))

	return cmd
}

// setup builds the logger and loads the configuration.
func (o *RootOptions) setup() error {
	if o.Logger == nil {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if o.Verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		o.Logger = logger
		o.ownLogger = true
	}

	path, allowMissing := o.ConfigPath, false
	if path == "" {
		path, allowMissing = config.DefaultPath, true
	}
	cfg, err := config.Load(path, allowMissing)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.DBPath != "" {
		cfg.DBPath = o.DBPath
	}
	o.Config = cfg
	return nil
}

// client returns a backend client for the loaded configuration.
func (o *RootOptions) client() *backend.Client {
	return backend.New(o.Config.BaseURL,
		backend.WithTimeout(o.Config.Timeout()),
		backend.WithEndpoints(o.Config.Endpoints),
		backend.WithSession(o.Config.Session),
		backend.WithLogger(o.Logger),
	)
}

// openStore opens the field store.
func (o *RootOptions) openStore() (*store.Store, error) {
	st, err := store.Open(o.Config.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open field store", err)
	}
	return st, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
