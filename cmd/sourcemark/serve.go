package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/polisai/sourcemark/internal/server"
	"github.com/polisai/sourcemark/pkg/config"
	"github.com/polisai/sourcemark/pkg/logging"
	"github.com/polisai/sourcemark/pkg/telemetry"
)

// ServeOptions holds the parsed serve flags
type ServeOptions struct {
	Config   string
	Port     int
	LogLevel string
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().StringP("config", "c", "", "Path to configuration file (YAML)")
	cmd.Flags().IntP("port", "p", 0, "Port to listen on (overrides config if non-zero)")
	cmd.Flags().StringP("log-level", "l", "", "Log level (debug, info, warn, error)")

	return cmd
}

// parseServeOptions parses command line flags
func parseServeOptions(cmd *cobra.Command) (*ServeOptions, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return nil, fmt.Errorf("failed to get port flag: %w", err)
	}
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-level flag: %w", err)
	}
	return &ServeOptions{Config: configPath, Port: port, LogLevel: logLevel}, nil
}

// buildConfig reads the configuration file, if any, and applies flag overrides to a
// copy. With a file, the returned Loader holds the snapshot that was read so the
// watcher starts from the same configuration the server runs with.
func buildConfig(opts *ServeOptions) (*config.Loader, *config.Config, error) {
	var (
		loader *config.Loader
		base   *config.Config
		err    error
	)
	if opts.Config != "" {
		loader, err = config.NewLoader(opts.Config, nil)
		if err != nil {
			return nil, nil, err
		}
		base, err = loader.Load()
	} else {
		base, err = config.Load("")
	}
	if err != nil {
		return nil, nil, err
	}

	cfg := *base
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
		if err := cfg.Logging.Validate(); err != nil {
			return nil, nil, err
		}
	}
	return loader, &cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	opts, err := parseServeOptions(cmd)
	if err != nil {
		return err
	}

	loader, cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}

	logger := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var endpoint string
	if cfg.Tracing.Enabled {
		endpoint = cfg.Tracing.Endpoint
	}
	shutdownTracing, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version,
		Endpoint:    endpoint,
		Environment: cfg.Tracing.Environment,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		logger.Error("Failed to set up tracing", "error", err)
		return err
	}

	srv, err := server.New(cfg, logger, telemetry.NewMetrics())
	if err != nil {
		logger.Error("Failed to initialize server", "error", err)
		return err
	}

	if loader != nil {
		if err := loader.Watch(srv.ApplyConfig, srv.ConfigReloadFailed); err != nil {
			logger.Warn("Failed to start config watcher", "error", err)
		} else {
			logger.Info("Watching configuration", "path", loader.Path())
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(fmt.Sprintf(":%d", cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", "error", err)
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Warn("Failed to flush traces", "error", err)
	}

	logger.Info("Server stopped")
	return nil
}
