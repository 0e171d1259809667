package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"churn-insights/internal/config"
	"churn-insights/internal/pipeline"
	"churn-insights/internal/store"
	"churn-insights/pkg/logger"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("CHURN_CONFIG"), "path to a YAML config file")
		dataPath   = flag.String("data", "", "churn CSV file, overrides the config")
		skipModel  = flag.Bool("skip-model", false, "only print the insights report")
		exportDir  = flag.String("export", "", "directory to write the dashboard tables to")
		format     = flag.String("format", pipeline.FormatCSV, "export format: csv or json")
	)
	flag.Parse()

	if err := run(*configPath, *dataPath, *skipModel, *exportDir, *format); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath, dataPath string, skipModel bool, exportDir, format string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dataPath != "" {
		cfg.DataPath = dataPath
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	var rec pipeline.RunRecorder
	if cfg.DBPath != "" && !skipModel {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		rec = st
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := pipeline.Run(ctx, pipeline.Job{
		DataPath:     cfg.DataPath,
		Timeout:      cfg.JobTimeout,
		SkipModel:    skipModel,
		Train:        cfg.TrainOptions(),
		ExportDir:    exportDir,
		ExportFormat: format,
	}, rec, log)
	if err != nil {
		return err
	}

	out := os.Stdout
	if _, err := res.Report.WriteTo(out); err != nil {
		return err
	}

	switch {
	case res.Model != nil:
		mt := res.Model.Metrics
		fmt.Fprintf(out, "\nModel (%d trees, %d train / %d test rows):\n", res.Model.Trees, mt.TrainSize, mt.TestSize)
		fmt.Fprintf(out, "  Accuracy: %.4f  Precision: %.4f  Recall: %.4f  F1: %.4f\n", mt.Accuracy, mt.Precision, mt.Recall, mt.F1)
		fmt.Fprintln(out, "\nTop Churn Drivers:")
		for i, fi := range res.Model.RankedImportances() {
			if i == 5 {
				break
			}
			fmt.Fprintf(out, "  %-30s %.4f\n", fi.Feature, fi.Importance)
		}
	case res.ModelErr != nil:
		fmt.Fprintf(out, "\nModel unavailable: %v\n", res.ModelErr)
	}

	for _, e := range res.Exports {
		fmt.Fprintf(out, "exported %-16s %4d rows -> %s\n", e.Table, e.RecordCount, e.Path)
	}
	return nil
}
