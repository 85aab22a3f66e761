package main

import (
	"fmt"
	"os"

	"ALZHEIMER_MRI/go-frontend/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "alzassess"

var (
	verbose bool
	envFile string

	cfg    *config.Config
	logger *zap.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   serviceName,
		Short: "Alzheimer's clinical assessment server",
		Long: `alzassess serves the clinical assessment page and its JSON API.

Five clinical values are collected step by step and sent to the prediction
service; the classification, confidence and explanation are shown back.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadConfig(envFiles()...)
			if err != nil {
				return err
			}
			logger, err = buildLogger(cfg.LogLevel, verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "Env file to load (default: .env when present)")

	root.AddCommand(newServeCmd(), newAssessCmd())
	return root
}

func envFiles() []string {
	if envFile == "" {
		return nil
	}
	return []string{envFile}
}

func buildLogger(level string, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl := zapcore.InfoLevel
	if verbose {
		lvl = zapcore.DebugLevel
	} else if parsed, err := zapcore.ParseLevel(level); err == nil {
		lvl = parsed
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
