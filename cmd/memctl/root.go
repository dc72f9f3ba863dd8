package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memdebug/internal/logger"
)

var (
	// Global flags
	verbose bool
	trace   bool
	quiet   bool
	jsonOut bool
	jsonLog bool
	logDir  string
)

var rootCmd = &cobra.Command{
	Use:   "memctl",
	Short: "Exercise and inspect the memdebug allocators",
	Long: `memctl drives the memdebug engines: the conservative mark-and-sweep heap
and the guarded fixed-chunk debug allocator. It runs the reference demos, injects
faults into the guard allocator and stress-tests both engines in parallel.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
	SilenceUsage: true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "Enable per-allocation trace logging")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "Write logs as JSON")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Write logs to a daily file in this directory")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogging configures the global logger from the global flags. Logging stays off
// unless one of the logging flags is set.
func initLogging() error {
	level := slog.LevelInfo
	switch {
	case trace:
		level = logger.LevelTrace
	case verbose:
		level = slog.LevelDebug
	}
	return logger.Init(logger.Options{
		Enabled: verbose || trace || logDir != "",
		JSON:    jsonLog,
		LogDir:  logDir,
		Level:   level,
	})
}

// Helper functions for output

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

// reportWriter is where engine reports go: stdout, or nowhere in quiet mode.
func reportWriter() io.Writer {
	if quiet {
		return io.Discard
	}
	return os.Stdout
}
