package model

import "time"

// TrainingRun is the audit entry written after a model is trained
type TrainingRun struct {
	ID        string    `json:"id"`
	DatasetID string    `json:"dataset_id"`
	Source    string    `json:"source"`
	Rows      int       `json:"rows"`
	Trees     int       `json:"trees"`
	Seed      int64     `json:"seed"`
	Metrics   Metrics   `json:"metrics"`
	Duration  string    `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
}

// PredictionRecord is the audit entry written for each what-if request
type PredictionRecord struct {
	ID          string         `json:"id"`
	RunID       string         `json:"run_id"`
	DatasetID   string         `json:"dataset_id"`
	Input       map[string]any `json:"input"`
	Probability float64        `json:"probability"`
	Churn       bool           `json:"churn"`
	CreatedAt   time.Time      `json:"created_at"`
}

// LoadStats summarises a load: how many rows were read, kept and repaired
type LoadStats struct {
	RowsRead     int            `json:"rows_read"`
	RowsKept     int            `json:"rows_kept"`
	RowsRejected int            `json:"rows_rejected"`
	Coerced      map[string]int `json:"coerced"` // cells that failed numeric coercion, per column
	Imputed      map[string]int `json:"imputed"` // cells filled with the median, per column
}
