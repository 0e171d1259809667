package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"churn-insights/internal/model"
	"churn-insights/pkg/logger"
)

// RunRecorder persists the audit entry of a training run.
type RunRecorder interface {
	SaveTrainingRun(ctx context.Context, run model.TrainingRun) error
}

// Job configures one batch run: load, report, train, export.
type Job struct {
	DataPath     string
	Timeout      time.Duration // default 5m
	SkipModel    bool
	Train        TrainOptions
	ExportDir    string // empty disables the export stage
	ExportFormat string // csv (default) or json
}

// Result is everything a batch run produced. ModelErr is set when training
// failed; the dataset and report stay usable.
type Result struct {
	Dataset  *model.Dataset
	Report   Report
	Model    *TrainedModel
	ModelErr error
	Exports  []ExportResult
	Stages   []StageMetrics
	Duration time.Duration
}

// ------------------- Pipeline Runner -------------------

// Run loads the dataset, builds the insights report, trains the model and
// exports the dashboard tables. A missing file fails the run; a model that
// cannot be trained does not.
func Run(ctx context.Context, job Job, rec RunRecorder, log *logger.Logger) (*Result, error) {
	start := time.Now()
	log = logger.OrNop(log)
	log.Info("starting pipeline", "path", job.DataPath)

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tracker := NewStageTracker(log)

	// --- LOAD STAGE ---
	tracker.StartStage(StageLoad)
	ds, err := NewLoader(log).Load(job.DataPath)
	if err != nil {
		tracker.EndStage(StageLoad, 0, err)
		return nil, fmt.Errorf("load stage: %w", err)
	}
	tracker.EndStage(StageLoad, ds.Len(), nil)

	// --- REPORT STAGE ---
	tracker.StartStage(StageReport)
	res := &Result{Dataset: ds, Report: BuildReport(ds)}
	tracker.EndStage(StageReport, ds.Len(), nil)

	// --- TRAIN STAGE ---
	if job.SkipModel {
		tracker.SkipStage(StageTrain)
	} else {
		tracker.StartStage(StageTrain)
		opts := job.Train
		opts.Logger = log
		m, err := TrainContext(ctx, ds, opts)
		switch {
		case err == nil:
			tracker.EndStage(StageTrain, m.Rows, nil)
			res.Model = m
			if rec != nil {
				if err := rec.SaveTrainingRun(ctx, m.TrainingRun(ds.Source)); err != nil {
					log.Warn("failed to record training run", "run_id", m.RunID, "error", err)
				}
			}
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			tracker.EndStage(StageTrain, 0, err)
			return nil, fmt.Errorf("train stage: %w", err)
		default:
			tracker.EndStage(StageTrain, 0, err)
			log.Warn("model unavailable", "error", err)
			res.ModelErr = err
		}
	}

	// --- EXPORT STAGE ---
	if job.ExportDir == "" {
		tracker.SkipStage(StageExport)
	} else {
		tracker.StartStage(StageExport)
		format := job.ExportFormat
		if format == "" {
			format = FormatCSV
		}
		tables := DashboardTables(BuildDashboard(ds, DashboardOptions{}))
		exports, err := ExportTables(job.ExportDir, format, tables, log)
		tracker.EndStage(StageExport, len(exports), err)
		if err != nil {
			return nil, fmt.Errorf("export stage: %w", err)
		}
		res.Exports = exports
	}

	res.Stages = tracker.Stages()
	res.Duration = time.Since(start)
	log.Info("pipeline completed", "rows", ds.Len(), "duration", res.Duration.String())
	return res, nil
}
