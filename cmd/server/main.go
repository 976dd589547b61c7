package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tarang-screening-server/internal/api"
	"github.com/tarang-screening-server/internal/config"
	"github.com/tarang-screening-server/internal/mcp"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "tarang-server",
		Short:        "Pediatric autism screening server",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default: search ., ./config, /etc/tarang)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Manager, error) {
	m, err := config.NewManagerWithFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(logger *logrus.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			logger.Info("Shutdown signal received, gracefully shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			configManager, err := loadConfig()
			if err != nil {
				return err
			}
			cfg := configManager.GetConfig()
			logger, err := newLogger(cfg.Logging)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(logger)
			defer cancel()

			app, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			server := api.NewServer(configManager, api.Dependencies{
				Screening: app.screening,
				Outcomes:  app.outcomes,
				Reviews:   app.reviews,
				Checks:    app.healthChecks(),
				Logger:    logger,
			})

			logger.WithFields(logrus.Fields{
				"host":        cfg.Server.Host,
				"port":        cfg.Server.Port,
				"environment": cfg.Environment,
			}).Info("Starting screening API")

			if err := server.Start(ctx); err != nil {
				return err
			}
			logger.Info("Server stopped")
			return nil
		},
	}
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the screening tools over MCP stdio, backed by PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			configManager, err := loadConfig()
			if err != nil {
				return err
			}
			cfg := configManager.GetConfig()

			// stdout carries the protocol.
			cfg.Logging.Output = "stderr"
			logger, err := newLogger(cfg.Logging)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(logger)
			defer cancel()

			app, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			server := mcp.NewServer(mcp.ServerInfo{
				Name:    cfg.MCP.ServerName,
				Version: cfg.MCP.ServerVersion,
			}, mcp.Services{
				Screening: app.screening,
				Outcomes:  app.outcomes,
				Reviews:   app.reviews,
			}, logger)

			return server.Start(ctx)
		},
	}
}
