// Command gsv2p-tts runs the GSV2P text-to-speech chat plugin.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/spf13/cobra"

	"github.com/book-expert/gsv2p-tts/internal/config"
	"github.com/book-expert/gsv2p-tts/internal/plugin"
)

// Version is overridden at build time.
var Version = plugin.Version

const (
	flagConfig     = "config"
	flagConfigDesc = "Path to a TOML config file (defaults to the project configurator lookup)"

	bootstrapLogFile = "gsv2p-tts-bootstrap.log"
)

// Error messages.
const (
	errFmtBootstrapLogger = "failed to create bootstrap logger: %w"
	errFmtLoadConfig      = "failed to load configuration: %w"
	errFmtFinalLogger     = "failed to create final logger: %w"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "gsv2p-tts exited with error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "gsv2p-tts",
		Short:        plugin.Description,
		Version:      Version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configPath, flagConfig, "c", "", flagConfigDesc)
	root.AddCommand(newServeCmd(&configPath), newSayCmd(&configPath), newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the plugin name and version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", plugin.Name, Version)
		},
	}
}

// setup loads the configuration with a bootstrap logger, then opens the
// final logger under the configured log directory.
func setup(configPath, logFile string) (*config.Config, *logger.Logger, error) {
	bootstrapLog, err := logger.New(os.TempDir(), bootstrapLogFile)
	if err != nil {
		return nil, nil, fmt.Errorf(errFmtBootstrapLogger, err)
	}

	defer closeLogger(bootstrapLog)

	cfg, err := loadConfig(configPath, bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return nil, nil, fmt.Errorf(errFmtLoadConfig, err)
	}

	finalLog, err := logger.New(cfg.Paths.BaseLogsDir, logFile)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return nil, nil, fmt.Errorf(errFmtFinalLogger, err)
	}

	return cfg, finalLog, nil
}

func loadConfig(configPath string, log *logger.Logger) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}

	return config.Load(log)
}

func closeLogger(log *logger.Logger) {
	err := log.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error closing logger: %v\n", err)
	}
}
