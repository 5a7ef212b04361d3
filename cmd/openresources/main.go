// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the openresources CLI. It runs the
// federated search API server and offers the same search from the terminal.
package main

import (
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/openresources/internal/config"
	"github.com/pdiddy/openresources/internal/history"
	"github.com/pdiddy/openresources/internal/logger"
	"github.com/pdiddy/openresources/internal/metrics"
	"github.com/pdiddy/openresources/internal/registry"
	"github.com/pdiddy/openresources/internal/search"
	"github.com/pdiddy/openresources/internal/secrets"
	"github.com/pdiddy/openresources/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Populated by PersistentPreRunE before any subcommand runs.
var (
	appConfig     types.AppConfig
	log           *zap.Logger
	loadedSecrets secrets.Secrets
)

// rootCmd is the base command for the openresources CLI.
var rootCmd = &cobra.Command{
	Use:   "openresources",
	Short: "Federated search over papers, datasets, code, models, hardware and videos",
	Long: `openresources fans one query out to many public resource providers
(arXiv, Semantic Scholar, OpenAlex, GitHub, Hugging Face, OSHWA, YouTube),
merges duplicates, ranks everything on one scale and pages the result.

Run "openresources serve" for the HTTP API or "openresources search" to query
from the terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		v := viper.GetViper()
		config.Setup(v, cfgFile)
		if err := config.Read(v); err != nil {
			return err
		}
		cfg, err := config.Unmarshal(v)
		if err != nil {
			return err
		}
		appConfig = cfg

		l, err := logger.New(cfg.Log)
		if err != nil {
			return err
		}
		log = l
		if used := v.ConfigFileUsed(); used != "" {
			log.Debug("using config file", zap.String("path", used))
		}

		s, err := secrets.Load(".secrets/", log)
		if err != nil {
			return err
		}
		loadedSecrets = s
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	config.SetDefaults(viper.GetViper())

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./openresources.yaml or ~/.config/openresources/openresources.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// newRegistry builds the provider registry from the loaded configuration.
func newRegistry() (*registry.Registry, error) {
	client := &http.Client{Timeout: appConfig.Search.Timeout}
	return registry.Build(appConfig, loadedSecrets, client, log)
}

// openHistory opens the history store, or returns nil when history is
// disabled.
func openHistory() (*history.Store, error) {
	if !appConfig.History.Enabled {
		return nil, nil
	}
	return history.Open(appConfig.History.Path)
}

// newService wires a search service with history when the store is open.
func newService(reg *registry.Registry, store *history.Store, m *metrics.Metrics) *search.Service {
	opts := []search.Option{search.WithLogger(log), search.WithMetrics(m)}
	if store != nil {
		opts = append(opts, search.WithHistory(store))
	}
	return search.NewService(reg, appConfig.Search, opts...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
