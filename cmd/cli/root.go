// Package cli provides the command-line interface for scanparser.
// This package implements the Cobra-based CLI structure with commands for
// visualizing scan documents, prettifying XML, running live nmap scans and
// looking up well-known service names.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/anstrom/scanparser/internal/config"
	"github.com/anstrom/scanparser/internal/errors"
	"github.com/anstrom/scanparser/internal/logging"
)

const envPrefix = "SCANPARSER"

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// app carries the state shared by all subcommands of one invocation.
type app struct {
	v        *viper.Viper
	cfgFile  string
	verbose  bool
	cfg      *config.Config
	bindings map[*cobra.Command][]flagBinding
}

// flagBinding ties a flag of one command to a configuration key.
type flagBinding struct {
	key  string
	name string
}

func newApp() *app {
	return &app{v: viper.New(), bindings: make(map[*cobra.Command][]flagBinding)}
}

// NewRootCommand builds the command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	return newRootCommand(newApp())
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "scanparser",
		Short: "Scan result ingester and visualizer",
		Long: `scanparser loads nmap and masscan XML results into a relational store,
aggregates the observed ports by address, port and service, and renders
one bubble chart per aggregate.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.bindFlags(cmd); err != nil {
				return err
			}
			return a.initConfig()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./scanparser.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	a.bindFlag(rootCmd, "logging.level", "log-level")

	rootCmd.AddCommand(
		newVisualizeCmd(a),
		newPrettifyCmd(a),
		newScanCmd(a),
		newServicesCmd(a),
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// bindFlag records that flag name of cmd sets key. Subcommands share
// keys, so nothing is bound until bindFlags knows which one runs.
func (a *app) bindFlag(cmd *cobra.Command, key, name string) {
	a.bindings[cmd] = append(a.bindings[cmd], flagBinding{key: key, name: name})
}

// bindFlags binds the flags recorded for cmd and its ancestors.
func (a *app) bindFlags(cmd *cobra.Command) error {
	for c := cmd; c != nil; c = c.Parent() {
		for _, b := range a.bindings[c] {
			var flag *pflag.Flag
			for _, set := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
				if flag = set.Lookup(b.name); flag != nil {
					break
				}
			}
			if err := a.v.BindPFlag(b.key, flag); err != nil {
				return errors.WrapConfigError(errors.CodeConfiguration,
					fmt.Sprintf("failed to bind --%s flag", b.name), err)
			}
		}
	}
	return nil
}

// initConfig reads in config file and ENV variables if set.
func (a *app) initConfig() error {
	if a.cfgFile != "" {
		// Use config file from the flag.
		a.v.SetConfigFile(a.cfgFile)
	} else {
		// Search for config in current directory
		a.v.AddConfigPath(".")
		a.v.SetConfigType("yaml")
		a.v.SetConfigName("scanparser")
	}

	// Read in environment variables that match
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	setConfigDefaults(a.v)

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !stderrors.As(err, &notFound) {
			return errors.WrapConfigError(errors.CodeConfiguration, "failed to read config file", err)
		}
	} else if a.verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", a.v.ConfigFileUsed())
	}

	cfg := config.Default()
	if err := a.v.Unmarshal(cfg); err != nil {
		return errors.WrapConfigError(errors.CodeConfiguration, "failed to decode configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	// Initialize structured logging after config is loaded
	initLogging(cfg, a.verbose)
	return nil
}

// setConfigDefaults registers every key so environment variables apply.
func setConfigDefaults(v *viper.Viper) {
	d := config.Default()

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("logging.add_source", d.Logging.AddSource)

	v.SetDefault("services.file", d.Services.File)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.extension", d.Store.Extension)
	v.SetDefault("store.dsn", d.Store.DSN)

	v.SetDefault("render.formats", d.Render.Formats)
	v.SetDefault("render.output_dir", d.Render.OutputDir)
	v.SetDefault("render.extension", d.Render.Extension)

	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
}

// initLogging initializes structured logging based on configuration.
func initLogging(cfg *config.Config, verbose bool) {
	logConfig := cfg.LoggerConfig()
	if verbose && logConfig.Level == logging.LevelInfo {
		logConfig.Level = logging.LevelDebug
	}

	logger, err := logging.New(logConfig)
	if err != nil {
		// Fall back to default if creation fails
		logger = logging.NewDefault()
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	logging.SetDefault(logger)

	if verbose {
		logging.Debug("Structured logging initialized", "level", logConfig.Level, "format", logConfig.Format)
	}
}
