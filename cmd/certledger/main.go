package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"certledger/internal/platform/config"
	"certledger/internal/platform/logger"
)

const programName = "certledger"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...),
		"component", programName,
	)
}

var globalFlags = struct {
	debug      bool
	configFile string
}{}

// commonRun builds the process logger and sizes GOMAXPROCS to the container
// quota.
func commonRun(cfg *config.Config) *slog.Logger {
	level := cfg.Log.Level
	if globalFlags.debug {
		level = "debug"
	}
	log := logger.New(os.Stdout, level, cfg.Log.Format)
	slog.SetDefault(log)
	if _, err := maxprocs.Set(maxprocs.Logger(slogPrintf)); err != nil {
		log.Warn("failed to set GOMAXPROCS", "error", err)
	}
	log.Info("version: "+version, "component", programName)
	return log
}

// configFrom returns the configuration loaded by the root command.
func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, fmt.Errorf("no config found in context")
	}
	return cfg, nil
}

func rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Issue, resolve and verify ledger-backed certificates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&globalFlags.configFile, "config", "", "path to config file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(globalFlags.configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cmd.SetContext(config.WithContext(cmd.Context(), &cfg))
		return nil
	}

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(issueBatchCommand())
	rootCmd.AddCommand(resolveCommand())
	rootCmd.AddCommand(verifyLegacyCommand())
	rootCmd.AddCommand(reconcileCommand())
	rootCmd.AddCommand(tokenCommand())
	rootCmd.AddCommand(versionCommand())
	return rootCmd
}

func main() {
	if err := rootCommand().Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
