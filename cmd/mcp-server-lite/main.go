// Command mcp-server-lite serves the screening tools over MCP stdio using
// SQLite files in a local data directory. It needs no external databases.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tarang-screening-server/internal/config"
	"github.com/tarang-screening-server/internal/mcp"
	"github.com/tarang-screening-server/internal/setup"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          setup.BinaryName,
		Short:        "Standalone screening MCP server (SQLite, stdio)",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
	rootCmd.AddCommand(setupCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer() error {
	cfg := config.LoadLiteConfig()

	logger := logrus.New()
	// stdout carries the protocol.
	logger.SetOutput(os.Stderr)
	if cfg.LogFormat == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	logger.WithField("data_dir", cfg.DataDir).Info("Starting screening MCP server (lite)")

	server, err := mcp.NewLiteServer(cfg, mcp.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		return err
	}
	logger.Info("Screening MCP server (lite) stopped")
	return nil
}

func setupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register this server with a desktop MCP client",
	}

	var clientConfig string
	cmd.PersistentFlags().StringVar(&clientConfig, "client-config", "", "client config file (default: Claude Desktop location)")

	resolve := func() (string, error) {
		if clientConfig != "" {
			return clientConfig, nil
		}
		return setup.DefaultClientConfigPath()
	}

	var opts setup.Options
	register := &cobra.Command{
		Use:   "claude-desktop",
		Short: "Add or update the server entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolve()
			if err != nil {
				return err
			}
			entry, err := setup.Register(path, opts)
			if err != nil {
				return err
			}
			if opts.DataDir != "" {
				if err := (&config.LiteConfig{DataDir: opts.DataDir}).EnsureDataDir(); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s in %s\n  command: %s\n", setup.ServerName, path, entry.Command)
			fmt.Fprintln(cmd.OutOrStdout(), "Restart the client to load the screening tools.")
			return nil
		},
	}
	register.Flags().StringVarP(&opts.BinaryPath, "binary", "b", "", "path to the server binary (default: search PATH)")
	register.Flags().StringVarP(&opts.DataDir, "data-dir", "d", "", "data directory for SQLite files and exports")
	register.Flags().StringVar(&opts.ModelPath, "model", "", "optional classifier model artifact")
	cmd.AddCommand(register)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolve()
			if err != nil {
				return err
			}
			status, err := setup.GetStatus(path, config.DefaultLiteConfig().DataDir)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		},
	})

	return cmd
}
