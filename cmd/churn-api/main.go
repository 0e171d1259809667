package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"churn-insights/internal/api"
	"churn-insights/internal/api/handler"
	"churn-insights/internal/config"
	"churn-insights/internal/metrics"
	"churn-insights/internal/session"
	"churn-insights/internal/store"
	"churn-insights/pkg/logger"
	"churn-insights/pkg/router"
)

// @title Churn Insights API
// @version 1.0
// @description Customer churn dashboard summaries and a random forest churn model.
// @BasePath /
func main() {
	configPath := flag.String("config", os.Getenv("CHURN_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	opts := session.Options{Logger: log, Metrics: m, Train: cfg.TrainOptions(), TrainTimeout: cfg.JobTimeout}
	var runs handler.RunReader
	if cfg.DBPath != "" {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			log.Fatal("failed to open store", "path", cfg.DBPath, "error", err)
		}
		defer st.Close()
		opts.Recorder = st
		runs = st
	}
	s := session.New(opts)

	// Load early so a bad file shows up in the startup logs. Requests still
	// answer 503 until the file is fixed.
	if ds, err := s.Dataset(cfg.DataPath); err != nil {
		log.Warn("dataset not loaded", "path", cfg.DataPath, "error", err)
	} else {
		log.Info("dataset loaded", "source", ds.Source, "rows", ds.Len(), "rejected", ds.Stats.RowsRejected)
	}

	h := handler.NewChurnHandler(cfg.DataPath, s, runs, log)
	h.Timeout = cfg.JobTimeout
	mux := api.NewRouter(h, api.Options{
		Logger:   log,
		Metrics:  m,
		Gatherer: reg,
		Color:    cfg.LogMode != "prod" && cfg.LogMode != "production",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := router.Serve(ctx, cfg.ListenAddr, mux, log); err != nil {
		log.Error("server stopped", "error", err)
	}
}
