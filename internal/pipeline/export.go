package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"churn-insights/internal/model"
	"churn-insights/pkg/logger"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ExportResult represents the result of one exported table
type ExportResult struct {
	Table       string    `json:"table"`
	Path        string    `json:"path"`
	RecordCount int       `json:"record_count"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	ExportedAt  time.Time `json:"exported_at"`
}

// Table is a named grid of formatted cells.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// DashboardTables flattens the dashboard sections into exportable tables.
// Sections that were not computed are skipped.
func DashboardTables(d model.Dashboard) []Table {
	k := d.KPIs
	tables := []Table{{
		Name:   "kpis",
		Header: []string{"total_customers", "churned", "churn_rate", "total_revenue", "avg_satisfaction"},
		Rows: [][]string{{
			strconv.Itoa(k.TotalCustomers), strconv.Itoa(k.Churned),
			formatFloat(k.ChurnRate), formatFloat(k.TotalRevenue), formatFloat(k.AvgSatisfaction),
		}},
	}}
	tables = append(tables, countTable("composition", model.ColChurnStatus, d.Composition))
	if len(d.ChurnReasons) > 0 {
		tables = append(tables, countTable("churn_reasons", model.ColChurnReason, d.ChurnReasons))
	}
	tables = append(tables, countTable("churn_by_state", model.ColState, d.ChurnByState))

	byPlan := Table{Name: "churn_by_plan", Header: []string{model.ColPlan, "customers", "churned", "churn_rate"}}
	for _, g := range d.ChurnByPlan {
		byPlan.Rows = append(byPlan.Rows, []string{g.Label, strconv.Itoa(g.Customers), strconv.Itoa(g.Churned), formatFloat(g.ChurnRate)})
	}
	tables = append(tables, byPlan)

	if len(d.RevenueByPlan) > 0 {
		rev := Table{Name: "revenue_by_plan", Header: []string{model.ColPlan, model.ColTotalRevenue}}
		for _, g := range d.RevenueByPlan {
			rev.Rows = append(rev.Rows, []string{g.Label, formatFloat(g.Total)})
		}
		tables = append(tables, rev)
	}
	return tables
}

func countTable(name, column string, counts []model.CategoryCount) Table {
	t := Table{Name: name, Header: []string{column, "count"}}
	for _, c := range counts {
		t.Rows = append(t.Rows, []string{c.Label, strconv.Itoa(c.Count)})
	}
	return t
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ExportTables writes each table to dir as <name>.csv or <name>.json.
// A failed table does not stop the others; the returned error reports the first failure.
func ExportTables(dir, format string, tables []Table, log *logger.Logger) ([]ExportResult, error) {
	log = logger.OrNop(log)
	format = strings.ToLower(strings.TrimSpace(format))
	if format != FormatCSV && format != FormatJSON {
		return nil, fmt.Errorf("unsupported export format %q, want %s or %s", format, FormatCSV, FormatJSON)
	}
	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	var firstErr error
	results := make([]ExportResult, 0, len(tables))
	for _, t := range tables {
		path := filepath.Join(dir, t.Name+"."+format)
		var err error
		if format == FormatCSV {
			err = exportToCSV(path, t)
		} else {
			err = exportToJSON(path, t)
		}

		result := ExportResult{
			Table:       t.Name,
			Path:        path,
			RecordCount: len(t.Rows),
			Success:     err == nil,
			ExportedAt:  time.Now().UTC(),
		}
		if err != nil {
			result.RecordCount = 0
			result.Error = err.Error()
			log.Error("export failed", "table", t.Name, "path", path, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		} else {
			log.Debug("exported table", "table", t.Name, "path", path, "records", len(t.Rows))
		}
		results = append(results, result)
	}
	return results, firstErr
}

// exportToCSV writes the header row then one line per table row
func exportToCSV(path string, t Table) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return writer.Error()
}

// exportToJSON writes the rows as an array of objects keyed by header
func exportToJSON(path string, t Table) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	records := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Header))
		for i, h := range t.Header {
			if i < len(row) {
				rec[h] = row[i]
			}
		}
		records = append(records, rec)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(map[string]interface{}{
		"table":        t.Name,
		"record_count": len(records),
		"data":         records,
	}); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
