package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"remix/internal/config"
	"remix/internal/metrics"
	"remix/internal/remix"
	"remix/internal/storage"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:                "remix",
		Short:              "Fork documents and keep your edits as deltas",
		SilenceUsage:       true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: func(*cobra.Command, []string) error { return teardown() },
	}
	dbPath     string
	configPath string
	ownerID    string

	cfg      *config.Config
	logger   *logrus.Logger
	registry *prom.Registry
	store    *storage.SQLiteStore
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		_ = teardown()
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the document database (SQLite); overrides config")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "remix.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVarP(&ownerID, "owner", "u", defaultOwner(), "User that owns forks")

	rootCmd.AddCommand(importCmd, forkCmd, forksCmd, viewCmd, editCmd, syncCmd)
	rootCmd.AddCommand(diffCmd, applyCmd, pruneCmd)
}

func defaultOwner() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	logger = logrus.New()
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}

func teardown() error {
	var errs []string
	if store != nil {
		if err := store.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		store = nil
	}
	if registry != nil && cfg != nil && cfg.Metrics.Textfile != "" {
		if err := prom.WriteToTextfile(cfg.Metrics.Textfile, registry); err != nil {
			errs = append(errs, fmt.Sprintf("failed to write metrics: %v", err))
		}
		registry = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// initService opens the store and wires the fork service.
func initService() (*remix.Service, error) {
	var err error
	store, err = storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Textfile != "" {
		registry = prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registry)
	}

	return remix.NewService(store, remix.WithLogger(logger), remix.WithRecorder(recorder)), nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
