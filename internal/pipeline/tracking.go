package pipeline

import (
	"sync"
	"time"

	"churn-insights/pkg/logger"
)

// Stage names of a batch run
const (
	StageLoad   = "load"
	StageReport = "report"
	StageTrain  = "train"
	StageExport = "export"
)

// Stage statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// StageMetrics tracks one stage of a batch run
type StageMetrics struct {
	Stage            string        `json:"stage"`
	StartTime        time.Time     `json:"start_time"`
	Duration         time.Duration `json:"duration"`
	RecordsProcessed int           `json:"records_processed"`
	Status           string        `json:"status"`
	Error            string        `json:"error,omitempty"`
}

// StageTracker records stage timings in start order.
type StageTracker struct {
	mu     sync.Mutex
	stages []StageMetrics
	log    *logger.Logger
}

func NewStageTracker(log *logger.Logger) *StageTracker {
	return &StageTracker{log: logger.OrNop(log)}
}

// StartStage marks the start of a stage.
func (t *StageTracker) StartStage(stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stages = append(t.stages, StageMetrics{Stage: stage, StartTime: time.Now(), Status: StatusRunning})
	t.log.Debug("stage started", "stage", stage)
}

// EndStage closes the most recent run of stage. A non-nil err marks it failed.
func (t *StageTracker) EndStage(stage string, records int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.stages) - 1; i >= 0; i-- {
		s := &t.stages[i]
		if s.Stage != stage || s.Status != StatusRunning {
			continue
		}
		s.Duration = time.Since(s.StartTime)
		s.RecordsProcessed = records
		s.Status = StatusCompleted
		if err != nil {
			s.Status = StatusFailed
			s.Error = err.Error()
			t.log.Warn("stage failed", "stage", stage, "duration", s.Duration.String(), "error", err)
			return
		}
		t.log.Info("stage completed", "stage", stage, "records", records, "duration", s.Duration.String())
		return
	}
}

// SkipStage records a stage that was not run.
func (t *StageTracker) SkipStage(stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stages = append(t.stages, StageMetrics{Stage: stage, StartTime: time.Now(), Status: StatusSkipped})
}

// Stages returns a copy of the recorded stages.
func (t *StageTracker) Stages() []StageMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]StageMetrics(nil), t.stages...)
}
