package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"CHURN_DATA_PATH", "CHURN_LISTEN_ADDR", "CHURN_DB_PATH", "CHURN_LOG_MODE",
		"CHURN_MODEL_TREES", "CHURN_MODEL_SEED", "CHURN_JOB_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "churn.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_path: data/churn.csv
listen_addr: ":9090"
job_timeout: 1m
model:
  trees: 20
  seed: 7
  test_ratio: 0.25
`), 0o644))

	t.Setenv("CHURN_MODEL_TREES", "50")
	t.Setenv("CHURN_JOB_TIMEOUT", "45")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data/churn.csv", cfg.DataPath)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "churn.db", cfg.DBPath)
	assert.Equal(t, 50, cfg.Model.Trees)
	assert.Equal(t, int64(7), cfg.Model.Seed)
	assert.Equal(t, 0.25, cfg.Model.TestRatio)
	assert.Equal(t, 45*time.Second, cfg.JobTimeout)

	opts := cfg.TrainOptions()
	assert.Equal(t, 50, opts.Trees)
	assert.Equal(t, int64(7), opts.Seed)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "bad yaml", file: "model: [oops"},
		{name: "bad trees env", env: map[string]string{"CHURN_MODEL_TREES": "many"}},
		{name: "bad timeout env", env: map[string]string{"CHURN_JOB_TIMEOUT": "soon"}},
		{name: "zero trees", file: "model:\n  trees: 0\n"},
		{name: "ratio out of range", file: "model:\n  test_ratio: 1.5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = filepath.Join(t.TempDir(), "churn.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0o644))
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestDurationFormats(t *testing.T) {
	t.Setenv("X_TIMEOUT", "2m")
	d, err := Duration("X_TIMEOUT", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)

	t.Setenv("X_TIMEOUT", "")
	d, err = Duration("X_TIMEOUT", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)
}
