package pipeline

import (
	"math"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"churn-insights/internal/model"
)

// cleanHeader trims whitespace, removes quotes and snake-cases a header name.
func cleanHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.ReplaceAll(h, `"`, "")
	h = strings.ToLower(h)
	return strings.Join(strings.Fields(h), "_")
}

// newStatusCaser returns a title caser. Casers are stateful, one per load.
func newStatusCaser() cases.Caser {
	return cases.Title(language.Und)
}

// normalizeStatus collapses "yes ", "YES" and "Yes" into one canonical form.
func normalizeStatus(caser cases.Caser, raw string) string {
	return caser.String(strings.TrimSpace(raw))
}

// parseRow builds a typed record from raw cells. Cells that fail numeric
// coercion are counted per column in coerced.
func parseRow(schema model.Schema, index map[string]int, row []string, caser cases.Caser, coerced map[string]int) model.CustomerRecord {
	rec := model.EmptyRecord()
	for _, col := range schema.Columns {
		i, ok := index[col.Name]
		if !ok || i >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[i])

		if col.Kind == model.Categorical {
			if col.Name == model.ColChurnStatus {
				cell = normalizeStatus(caser, cell)
			}
			rec.SetCategorical(col.Name, cell)
			continue
		}

		v, ok := coerceNumeric(cell)
		if !ok && cell != "" {
			coerced[col.Name]++
		}
		rec.SetNumeric(col.Name, v)
	}
	return rec
}

// coerceNumeric parses a cell. Blank, non-numeric, infinite and negative
// values are missing (NaN).
func coerceNumeric(cell string) (float64, bool) {
	if cell == "" {
		return math.NaN(), false
	}
	v, err := cast.ToFloat64E(cell)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return math.NaN(), false
	}
	return v, true
}

// imputeMedians fills missing values of every present Impute column with the
// column median over all records. Columns with no observed value stay missing
// and get no median entry.
func imputeMedians(schema model.Schema, index map[string]int, records []model.CustomerRecord, imputed map[string]int) map[string]float64 {
	medians := make(map[string]float64)
	for _, col := range schema.Columns {
		if !col.Impute || col.Kind != model.Numeric {
			continue
		}
		if _, ok := index[col.Name]; !ok {
			continue
		}

		var observed []float64
		for _, r := range records {
			if v, _ := r.Numeric(col.Name); !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}
		if len(observed) == 0 {
			continue
		}
		m := median(observed)
		medians[col.Name] = m

		for i := range records {
			if v, _ := records[i].Numeric(col.Name); math.IsNaN(v) {
				records[i].SetNumeric(col.Name, m)
				imputed[col.Name]++
			}
		}
	}
	return medians
}

// median averages the two middle values for even lengths. Sorts xs in place.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sort.Float64s(xs)
	mid := len(xs) / 2
	if len(xs)%2 == 1 {
		return xs[mid]
	}
	return (xs[mid-1] + xs[mid]) / 2
}
