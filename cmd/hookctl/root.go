package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/hookkit/internal/config"
	"github.com/joshuapare/hookkit/internal/logger"
)

var (
	// Global flags
	verbose  bool
	quiet    bool
	jsonOut  bool
	cfgPath  string
	logLevel string

	// Set up by the root command before any subcommand runs.
	cfg       *config.Config
	appLog    *slog.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "hookctl",
	Short: "Scan process images for signatures and resolve host offsets",
	Long: `hookctl scans a live process or a module dump for byte signatures
and runs offset discovery against it, reporting which values resolved.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(*cobra.Command, []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Config file (default ./hookkit.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level")
}

// setup loads the configuration and builds the logger.
func setup(*cobra.Command, []string) error {
	loaded, _, err := config.Load(config.LoadOptions{Path: cfgPath})
	if err != nil {
		return err
	}
	cfg = loaded
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if verbose && logLevel == "" {
		cfg.Log.Level = "debug"
	}

	appLog, logCloser, err = logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Prefix: "hookctl",
	})
	return err
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
