package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"churn-insights/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// Store is the sqlite audit log of training runs and predictions.
// The trained model itself is never persisted.
type Store struct {
	db *sql.DB
}

// Open connects to the sqlite database at dbPath and creates the tables.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	// Create tables if not exists
	runTable := `
	CREATE TABLE IF NOT EXISTS training_runs (
		id TEXT PRIMARY KEY,
		dataset_id TEXT,
		source TEXT,
		row_count INTEGER,
		trees INTEGER,
		seed INTEGER,
		metrics TEXT,
		duration TEXT,
		created_at DATETIME
	);
	`
	predictionTable := `
	CREATE TABLE IF NOT EXISTS predictions (
		id TEXT PRIMARY KEY,
		run_id TEXT,
		dataset_id TEXT,
		input TEXT,
		probability REAL,
		churn BOOLEAN,
		created_at DATETIME
	);
	`
	for _, stmt := range []string{runTable, predictionTable} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// SaveTrainingRun stores the audit entry of a training run
func (s *Store) SaveTrainingRun(ctx context.Context, run model.TrainingRun) error {
	metricsJSON, err := json.Marshal(run.Metrics)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO training_runs (id, dataset_id, source, row_count, trees, seed, metrics, duration, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.DatasetID, run.Source, run.Rows, run.Trees, run.Seed, string(metricsJSON), run.Duration, run.CreatedAt.UTC())
	return err
}

// SavePrediction stores one what-if request and its answer
func (s *Store) SavePrediction(ctx context.Context, p model.PredictionRecord) error {
	inputJSON, err := json.Marshal(p.Input)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO predictions (id, run_id, dataset_id, input, probability, churn, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.RunID, p.DatasetID, string(inputJSON), p.Probability, p.Churn, p.CreatedAt.UTC())
	return err
}

// ListTrainingRuns returns the newest runs first. limit <= 0 means 50.
func (s *Store) ListTrainingRuns(ctx context.Context, limit int) ([]model.TrainingRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dataset_id, source, row_count, trees, seed, metrics, duration, created_at
		 FROM training_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []model.TrainingRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetTrainingRun fetches a single run
func (s *Store) GetTrainingRun(ctx context.Context, id string) (model.TrainingRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, dataset_id, source, row_count, trees, seed, metrics, duration, created_at
		 FROM training_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TrainingRun{}, fmt.Errorf("training run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// ListPredictions returns the newest predictions of a run first. limit <= 0 means 50.
func (s *Store) ListPredictions(ctx context.Context, runID string, limit int) ([]model.PredictionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, dataset_id, input, probability, churn, created_at
		 FROM predictions WHERE run_id = ? ORDER BY created_at DESC LIMIT ?`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.PredictionRecord{}
	for rows.Next() {
		var p model.PredictionRecord
		var inputJSON string
		var createdAt time.Time
		if err := rows.Scan(&p.ID, &p.RunID, &p.DatasetID, &inputJSON, &p.Probability, &p.Churn, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(inputJSON), &p.Input); err != nil {
			return nil, err
		}
		p.CreatedAt = createdAt
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (model.TrainingRun, error) {
	var run model.TrainingRun
	var metricsJSON string
	var createdAt time.Time
	if err := row.Scan(&run.ID, &run.DatasetID, &run.Source, &run.Rows, &run.Trees, &run.Seed,
		&metricsJSON, &run.Duration, &createdAt); err != nil {
		return model.TrainingRun{}, err
	}
	if err := json.Unmarshal([]byte(metricsJSON), &run.Metrics); err != nil {
		return model.TrainingRun{}, err
	}
	run.CreatedAt = createdAt
	return run, nil
}
