package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"churn-insights/internal/pipeline"
)

// Config is the runtime configuration of both binaries.
type Config struct {
	DataPath   string        `yaml:"data_path"`
	ListenAddr string        `yaml:"listen_addr"`
	DBPath     string        `yaml:"db_path"` // empty disables the audit store
	LogMode    string        `yaml:"log_mode"`
	JobTimeout time.Duration `yaml:"job_timeout"`
	Model      ModelConfig   `yaml:"model"`
}

type ModelConfig struct {
	Trees     int     `yaml:"trees"`
	Seed      int64   `yaml:"seed"`
	TestRatio float64 `yaml:"test_ratio"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataPath:   "mtn_customer_churn.csv",
		ListenAddr: ":8080",
		DBPath:     "churn.db",
		LogMode:    "dev",
		JobTimeout: 30 * time.Second,
		Model: ModelConfig{
			Trees:     100,
			Seed:      42,
			TestRatio: 0.2,
		},
	}
}

// Load reads the optional YAML file at path over the defaults, then applies
// CHURN_* environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	c.DataPath = String("CHURN_DATA_PATH", c.DataPath)
	c.ListenAddr = String("CHURN_LISTEN_ADDR", c.ListenAddr)
	c.DBPath = String("CHURN_DB_PATH", c.DBPath)
	c.LogMode = String("CHURN_LOG_MODE", c.LogMode)

	var err error
	if c.Model.Trees, err = Int("CHURN_MODEL_TREES", c.Model.Trees); err != nil {
		return err
	}
	if c.Model.Seed, err = Int64("CHURN_MODEL_SEED", c.Model.Seed); err != nil {
		return err
	}
	if c.JobTimeout, err = Duration("CHURN_JOB_TIMEOUT", c.JobTimeout); err != nil {
		return err
	}
	return nil
}

// Validate rejects values the pipeline cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DataPath) == "" {
		return errors.New("config: data_path is required")
	}
	if c.Model.Trees < 1 {
		return fmt.Errorf("config: model.trees must be positive, got %d", c.Model.Trees)
	}
	if c.Model.TestRatio <= 0 || c.Model.TestRatio >= 1 {
		return fmt.Errorf("config: model.test_ratio must be in (0, 1), got %v", c.Model.TestRatio)
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("config: job_timeout must be positive, got %s", c.JobTimeout)
	}
	return nil
}

// TrainOptions maps the model section onto pipeline options.
func (c Config) TrainOptions() pipeline.TrainOptions {
	return pipeline.TrainOptions{
		Trees:     c.Model.Trees,
		Seed:      c.Model.Seed,
		TestRatio: c.Model.TestRatio,
	}
}

// ------------------- env helpers -------------------

func String(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func Int(name string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", name, err)
	}
	return i, nil
}

func Int64(name string, def int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	i, err := cast.ToInt64E(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", name, err)
	}
	return i, nil
}

// Duration accepts Go durations ("45s") and bare seconds ("45").
func Duration(name string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	if secs, err := cast.ToInt64E(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}
