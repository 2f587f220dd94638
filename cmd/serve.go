package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"helpfinder/internal/app"
	"helpfinder/internal/config"
	"helpfinder/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the marketplace HTTP API and the notification workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		log, err := logger.New(cfg.Log.Development)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.New(cfg, log)
		if err != nil {
			log.Error("[app] init failed", zap.Error(err))
			return err
		}
		defer a.Close()

		if err := a.Run(ctx); err != nil {
			log.Error("[app] server failed", zap.Error(err))
			return err
		}
		log.Info("[app] shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
