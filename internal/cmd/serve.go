package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Hamhunter23/verifi-data-agent/internal/config"
	errwrap "github.com/Hamhunter23/verifi-data-agent/internal/errors"
	"github.com/Hamhunter23/verifi-data-agent/internal/metrics"
	"github.com/Hamhunter23/verifi-data-agent/internal/observability"
	"github.com/Hamhunter23/verifi-data-agent/internal/server"
	"github.com/Hamhunter23/verifi-data-agent/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server exposing chat, direct structured requests and health.

Endpoints:
  POST /v1/chat       free-text question, answered as a chat reply
  POST /v1/requests   structured request, subject to the per-requester quota
  GET  /v1/kinds      supported entity kinds
  GET  /health        liveness report

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (logged; restart to apply)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "config load failed")
		}

		observability.InitServerLogger(config.AppName, cfg.Logging.Level, config.AppName)
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(config.AppName, cfg.Metrics.Port); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
		}

		rt, err := buildAgent(cmd.Context(), cfg, logger)
		if err != nil {
			logger.Error("Failed to build agent", zap.Error(err))
			return errwrap.WrapInternal(cmd.Context(), err, "agent initialization failed")
		}

		logger.Info("Initializing server",
			zap.String("agent", rt.Health().AgentName),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("metrics", cfg.Metrics.Enabled),
			zap.Int("metrics_port", observability.MetricsPort()),
			zap.String("store_driver", cfg.Store.Driver),
			zap.String("store", storeLocation(cfg)),
			zap.Int("quota_threshold", cfg.Quota.Threshold),
			zap.Duration("quota_window", cfg.Quota.Window))

		handlers.SetAppName(config.AppName)
		srv := server.New(rt.Agent, server.Options{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
			Version:      versionInfo.Version,
			AdminToken:   os.Getenv(config.EnvPrefix + "ADMIN_TOKEN"),
		})

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Shutdown handlers run LIFO: HTTP server, record cache, then logger.
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Flushing logger...")
			if err := logger.Sync(); err != nil {
				// stderr may already be closed
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			if err := observability.StopMetrics(); err != nil {
				logger.Warn("Failed to stop metrics exporter", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			if err := rt.Close(); err != nil {
				logger.Warn("Failed to close record cache", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			logger.Info("Received SIGHUP: validating configuration")

			reloaded, err := config.LoadFile(ctx, cfgFile)
			if err != nil {
				logger.Error("Config reload failed", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "config reload failed")
			}

			// components are built once; a restart applies the new values
			logger.Info("Configuration is valid; restart to apply changes",
				zap.Int("quota_threshold", reloaded.Quota.Threshold),
				zap.String("store_driver", reloaded.Store.Driver))
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		started := time.Now()
		metrics.SetServerStartTime(started.Unix())
		metrics.RecordOperation("serve", true)

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				metrics.SetServerUptime(int64(time.Since(started).Seconds()))
			}
		}()

		if err := <-errChan; err != nil {
			metrics.RecordOperation("serve", false)
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
