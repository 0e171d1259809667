package pipeline

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"churn-insights/internal/model"
	"churn-insights/pkg/logger"
)

// ------------------- Source resolution -------------------

// ResolvePath returns path when it exists, otherwise ../path, otherwise ErrDataNotFound.
func ResolvePath(path string) (string, error) {
	candidates := []string{path}
	if !filepath.IsAbs(path) {
		candidates = append(candidates, filepath.Join("..", path))
	}
	for _, c := range candidates {
		info, err := os.Stat(c)
		if err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrDataNotFound, path)
}

// ReadSource resolves path and reads the whole file.
func ReadSource(path string) (string, []byte, error) {
	resolved, err := ResolvePath(path)
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("%w: %s", ErrDataNotFound, resolved)
		}
		return "", nil, fmt.Errorf("failed to read data file: %w", err)
	}
	return resolved, data, nil
}

// Digest is the snapshot identity of a file's bytes.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ------------------- Loading -------------------

// Loader turns a delimited churn file into a typed Dataset.
type Loader struct {
	Schema model.Schema
	log    *logger.Logger
}

// NewLoader returns a loader for the churn schema. A nil logger discards output.
func NewLoader(log *logger.Logger) *Loader {
	return &Loader{Schema: model.ChurnSchema(), log: logger.OrNop(log)}
}

// Load reads the dataset at path with a default loader.
func Load(path string) (*model.Dataset, error) {
	return NewLoader(nil).Load(path)
}

// LoadBytes parses already-read file contents with a default loader.
func LoadBytes(source string, data []byte) (*model.Dataset, error) {
	return NewLoader(nil).LoadBytes(source, data)
}

// Load resolves and reads path, then parses it.
func (l *Loader) Load(path string) (*model.Dataset, error) {
	resolved, data, err := ReadSource(path)
	if err != nil {
		l.log.Error("data file not found", "path", path)
		return nil, err
	}
	return l.LoadBytes(resolved, data)
}

// LoadBytes parses, validates, coerces and imputes. Identical bytes always
// produce an identical Dataset.
func (l *Loader) LoadBytes(source string, data []byte) (*model.Dataset, error) {
	start := time.Now()
	log := l.log.With("source", source)
	log.Info("loading dataset", "bytes", len(data))

	headers, rows, err := readCSV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	if err := validateHeader(l.Schema, headers); err != nil {
		log.Error("dataset rejected", "error", err)
		return nil, err
	}

	index := columnIndex(l.Schema, headers)
	stats := model.LoadStats{
		RowsRead: len(rows),
		Coerced:  map[string]int{},
		Imputed:  map[string]int{},
	}
	caser := newStatusCaser()

	records := make([]model.CustomerRecord, 0, len(rows))
	for line, row := range rows {
		rec := parseRow(l.Schema, index, row, caser, stats.Coerced)
		if err := validateRecord(rec); err != nil {
			stats.RowsRejected++
			if stats.RowsRejected <= 5 {
				log.Warn("row rejected", "line", line+2, "error", err)
			}
			continue
		}
		records = append(records, rec)
	}
	stats.RowsKept = len(records)

	medians := imputeMedians(l.Schema, index, records, stats.Imputed)

	present := make([]string, 0, len(headers))
	for _, h := range headers {
		if _, ok := l.Schema.Column(h); ok {
			present = append(present, h)
		}
	}

	ds := model.NewDataset(Digest(data), source, l.Schema, present, medians, records)
	ds.Stats = stats

	log.Info("dataset loaded",
		"rows", stats.RowsKept,
		"rejected", stats.RowsRejected,
		"columns", len(present),
		"duration", time.Since(start).String(),
	)
	return ds, nil
}

// readCSV returns cleaned header names and the raw data rows.
func readCSV(data []byte) ([]string, [][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	csvReader := csv.NewReader(bytes.NewReader(data))
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty file: %w", ErrMissingColumn)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i, h := range headers {
		headers[i] = cleanHeader(h)
	}

	var rows [][]string
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("CSV read error: %w", err)
		}
		if isBlankRow(record) {
			continue
		}
		rows = append(rows, record)
	}
	return headers, rows, nil
}

// columnIndex maps every schema column present in the header to its position.
// The first occurrence wins when a header repeats.
func columnIndex(schema model.Schema, headers []string) map[string]int {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, ok := schema.Column(h); !ok {
			continue
		}
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	return index
}

func isBlankRow(record []string) bool {
	for _, cell := range record {
		if cell != "" {
			return false
		}
	}
	return true
}
