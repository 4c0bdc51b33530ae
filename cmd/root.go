// Package cmd implements the darkwing CLI: a root command with persistent
// flags and one subcommand per externally callable supervisor operation.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"darkwing/logging"
)

// Version information, set at build time.
var (
	Version   = "0.1.0"
	SpecVer   = "1.0.2"
	BuildTime = "unknown"
)

// Global flags, shared by every subcommand.
var (
	globalContext   string
	globalRoot      string
	globalLog       string
	globalLogFormat string
	globalDebug     bool
)

var rootCmd = &cobra.Command{
	Use:   "darkwing",
	Short: "supervises a single OCI container through runc",
	Long: `darkwing drives a low-level OCI runtime (runc or a compatible binary)
through the create/start/state/delete lifecycle for one container at a time,
pumping its stdio and forwarding signals like a small init process.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetContext returns a context that cancels on SIGINT/SIGTERM, for the
// short-lived runtime subprocess invocations (state/kill/delete) that don't
// go through the Executor's own signal loop.
func GetContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalContext, "context", "default", "context namespace for this container")
	rootCmd.PersistentFlags().StringVar(&globalRoot, "root", "", "runtime state base directory (default: context's runtime.base)")
	rootCmd.PersistentFlags().StringVar(&globalLog, "log", "", "set the log file path")
	rootCmd.PersistentFlags().StringVar(&globalLogFormat, "log-format", "text", "set the format for log output (text or json)")
	rootCmd.PersistentFlags().BoolVar(&globalDebug, "debug", false, "enable debug logging and pass --debug through to the runtime")
}

func setupLogging() {
	logOutput := os.Stderr
	if globalLog != "" {
		f, err := os.OpenFile(globalLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err == nil {
			logOutput = f
		}
	}

	level := slog.LevelInfo
	if globalDebug {
		level = slog.LevelDebug
	}

	logger := logging.NewLogger(logging.Config{
		Level:  level,
		Format: globalLogFormat,
		Output: logOutput,
	})
	logging.SetDefault(logger)
}
