package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nsreg/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	BaseURI    string
	Separator  string
	Journal    string

	// Config is loaded before any subcommand runs, with flag overrides
	// applied.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the nsreg CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nsreg",
		Short: "nsreg - namespace registry",
		Long: `A registry of dotted namespaces whose units are loaded on demand.

Identifiers such as app.util map to unit URIs (./app/util.cue by default).
Units written in CUE, HCL or YAML are fetched, evaluated and bound into the
namespace graph, then imported into the global scope with use.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	flags.StringVar(&opts.BaseURI, "base-uri", "", "prefix of mapped unit URIs")
	flags.StringVar(&opts.Separator, "separator", "", "identifier segment separator")
	flags.StringVar(&opts.Journal, "journal", "", "path to SQLite lifecycle journal")

	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewIncludeCommand(opts))
	cmd.AddCommand(NewUseCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// prepare validates global flags, loads configuration and sets up logging.
func (o *RootOptions) prepare(cmd *cobra.Command) error {
	if !slices.Contains(ValidFormats, o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	flags := cmd.Flags()
	if flags.Changed("base-uri") {
		cfg.Registry.BaseURI = o.BaseURI
	}
	if flags.Changed("separator") {
		if o.Separator == "" || o.Separator == "*" {
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid separator %q", o.Separator))
		}
		cfg.Registry.Separator = o.Separator
	}
	if flags.Changed("journal") {
		cfg.Journal.Path = o.Journal
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	o.Config = cfg

	setupLogging(cfg.Log.Level)
	slog.Debug("configuration loaded", "config_file", o.ConfigPath, "base_uri", cfg.Registry.BaseURI)
	return nil
}

func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	slog.SetDefault(slog.New(handler))
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
