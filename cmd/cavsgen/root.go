package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TheMichaelB/cavsgen/internal/client"
	"github.com/TheMichaelB/cavsgen/internal/config"
	"github.com/TheMichaelB/cavsgen/internal/events"
)

// skipConfig marks commands that must run without a valid configuration.
const skipConfig = "skip-config"

var (
	// Global flags
	cfgFile    string
	logLevel   string
	logFormat  string
	jsonOutput bool
	noColor    bool

	// Initialized in PersistentPreRunE
	loader *config.Loader
	cfg    *config.Config
	logger *events.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cavsgen",
	Short: "Generate hash test suites from NIST CAVS response files",
	Long: `cavsgen turns NIST CAVS SHA response files (.rsp) into known-answer
test suites: an elm-test module, a Go table, or JSON/YAML vectors.

Inputs, output and storage are configured in cavsgen.yaml; environment
variables prefixed with CAVSGEN_ override the file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Assigned here rather than in the literal: initApp refers to rootCmd.
	rootCmd.PersistentPreRunE = initApp

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: ./cavsgen.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "", "Log format (text, json)")
	pf.BoolVar(&jsonOutput, "json", false, "Print machine-readable JSON")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
}

func initApp(cmd *cobra.Command, args []string) error {
	if noColor || jsonOutput {
		color.NoColor = true
	}

	if cmd.Annotations[skipConfig] == "true" {
		logger = events.NewNopLogger()
		return nil
	}

	loader = config.NewLoader(cfgFile)
	v := loader.Viper()

	// Flags win over file and environment.
	if err := v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		return err
	}
	if err := v.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format")); err != nil {
		return err
	}
	for key, name := range commandBindings[cmd.Name()] {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	var err error
	cfg, err = loader.Load()
	if err != nil {
		return err
	}

	if noColor {
		cfg.Log.Color = false
	}

	logger, err = events.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	events.SetDefault(logger)

	if file := loader.ConfigFile(); file != "" {
		logger.WithField("file", file).Debug("Loaded config")
	}

	return nil
}

// commandBindings maps config keys to the flags of individual commands.
var commandBindings = map[string]map[string]string{
	"generate": {
		"output.path":   "output",
		"output.format": "format",
	},
}

// commandContext returns a context cancelled on SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newClient builds the client for the loaded configuration.
func newClient() (*client.Client, error) {
	c, err := client.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return c, nil
}
