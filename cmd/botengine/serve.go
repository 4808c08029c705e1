package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	botengine "github.com/malcolmmathew-zz/bot-engine"
	"github.com/malcolmmathew-zz/bot-engine/pkg/adapters/delivery"
	httpAdapter "github.com/malcolmmathew-zz/bot-engine/pkg/adapters/http"
	"github.com/malcolmmathew-zz/bot-engine/pkg/observability"
	"github.com/malcolmmathew-zz/bot-engine/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook HTTP server",
	Long: `Starts the engine behind a messaging webhook (GET/POST /webhook), a flat
event endpoint (POST /events) and the /health, /metrics and /graph endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("trace") {
			cfg.TraceOutput, _ = cmd.Flags().GetString("trace")
		}

		deps, err := setup(cfg)
		if err != nil {
			return err
		}
		defer deps.Close()
		logger := deps.logger

		if cfg.TraceOutput != "" {
			shutdown, err := initTracing(cfg.TraceOutput)
			if err != nil {
				return err
			}
			defer shutdown(context.Background())
		}

		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := observability.NewMetrics(registry)

		var deliverer ports.Deliverer = delivery.NewLog(deps.resolver, logger)
		if cfg.RelayURL != "" {
			deliverer = delivery.NewHTTP(cfg.RelayURL, deps.resolver, delivery.WithToken(cfg.RelayToken))
		}

		engine, err := deps.engine(deliverer, metrics.Hooks(), observability.LogHooks(logger))
		if err != nil {
			return fmt.Errorf("error initializing engine: %w", err)
		}

		handler := httpAdapter.NewHandler(engine,
			httpAdapter.WithVerifyToken(cfg.VerifyToken),
			httpAdapter.WithAppSecret(cfg.AppSecret),
			httpAdapter.WithMetrics(registry),
			httpAdapter.WithLogger(logger),
		)

		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("starting botengine server",
				"addr", srv.Addr,
				"flow", cfg.FlowPath,
				"store", cfg.Store,
				"version", botengine.Version,
			)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutdown started", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("botengine server stopped gracefully")
			return nil
		}
	},
}

func initTracing(output string) (func(context.Context) error, error) {
	if output == "stdout" {
		return observability.InitTracing("botengine", botengine.Version, os.Stdout)
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	shutdown, err := observability.InitTracing("botengine", botengine.Version, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return func(ctx context.Context) error {
		defer f.Close()
		return shutdown(ctx)
	}, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
	serveCmd.Flags().String("trace", "", `Export spans as JSON to "stdout" or a file`)
}
