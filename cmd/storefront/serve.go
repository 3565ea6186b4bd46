package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Humphrey-He/storefront/configs"
	"github.com/Humphrey-He/storefront/internal/catalogapi"
	"github.com/Humphrey-He/storefront/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the development catalog server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		logger, err := serverLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		srv, err := catalogapi.NewServer(cfg, logger.Named("catalogapi"))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx)
	},
}

// serverLogger builds the logger of the log section, or a console debug
// logger when --debug is set.
func serverLogger(cfg *configs.Config) (*zap.Logger, error) {
	if debug {
		return logging.Development(), nil
	}
	logger, _, err := logging.New(cfg.Log)
	return logger, err
}

// loadConfig reads path through viper so STOREFRONT_* variables apply, or
// returns the defaults when path is empty.
func loadConfig(path string) (*configs.Config, error) {
	if err := configs.LoadDotEnv(); err != nil {
		return nil, err
	}
	if path == "" {
		return configs.DefaultConfig(), nil
	}
	vc, err := configs.NewViperConfig(path)
	if err != nil {
		return nil, err
	}
	return vc.Get(), nil
}
