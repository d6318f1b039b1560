package main

import (
	"os"

	"github.com/sifan077/FlexQR/config"
	"github.com/sifan077/FlexQR/internal/infra/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "qrctl",
	Short: "Operator tool for FlexQR QR codes.",
	Long: `qrctl talks to the FlexQR storage backend directly.

It creates QR codes, prints scan analytics and mints API tokens using the
same configuration (config.yaml, .env, environment) as the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func main() {
	logger.MustInit(logger.Config{Level: "warn", Encoding: "console", Service: "qrctl"})
	defer func() { _ = logger.Sync() }()

	rootCmd.AddCommand(newCreateCmd(), newStatsCmd(), newTokenCmd())
	if err := rootCmd.Execute(); err != nil {
		logger.L().Debug("command failed", zap.Error(err))
		os.Exit(1)
	}
}
