// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/openresources/internal/metrics"
	"github.com/pdiddy/openresources/internal/server"
	"github.com/pdiddy/openresources/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the search HTTP API",
	Long: `Serve starts the HTTP API:

  GET /api/search?q=&type=&page=&limit=   ranked, merged search results
  GET /api/providers                      configured providers
  GET /api/history?limit=                 recent searches
  GET /healthz                            liveness
  GET /metrics                            Prometheus metrics

The server shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(appConfig.Telemetry, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promReg)

	reg, err := newRegistry()
	if err != nil {
		return err
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	opts := []server.Option{server.WithLogger(log), server.WithMetrics(m)}
	if store != nil {
		defer store.Close()
		opts = append(opts, server.WithHistory(store))
	}

	srv := server.New(newService(reg, store, m), appConfig.Server, opts...)
	log.Info("starting server",
		zap.String("addr", appConfig.Server.Addr),
		zap.String("version", version),
		zap.Bool("history", store != nil),
		zap.Bool("tracing", appConfig.Telemetry.Enabled),
	)
	return srv.Run(ctx)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}
