package pipeline

import (
	"fmt"
	"sort"

	"churn-insights/internal/model"
)

// FilterColumns are the dimensions the dashboard lets users filter on.
var FilterColumns = []string{model.ColState, model.ColPlan}

// Filter returns the rows of v matching every active constraint of spec
// (AND across columns, exact match). Constraints set to "All" or "" are
// ignored; with none left v itself is returned. The result holds indices
// into v and never copies or mutates rows.
func Filter(v model.View, spec model.FilterSpec) (model.View, error) {
	active := spec.Active()
	if len(active) == 0 {
		return v, nil
	}

	schema := model.ChurnSchema()
	for col := range active {
		if !schema.IsCategorical(col) {
			return nil, fmt.Errorf("%w: cannot filter on %q, not a categorical column", ErrSchemaMismatch, col)
		}
		if !v.Has(col) {
			return nil, fmt.Errorf("%w: cannot filter on %q, column not present", ErrSchemaMismatch, col)
		}
	}

	// Single pass: a row passes if it matches ALL constraints
	n := v.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		rec := v.At(i)
		pass := true
		for col, want := range active {
			if got, _ := rec.Categorical(col); got != want {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}
	return model.NewFilteredView(v, indices), nil
}

// FilterOptions lists, per present column, "All" followed by the sorted
// distinct values of that column.
func FilterOptions(v model.View, columns []string) map[string][]string {
	out := make(map[string][]string, len(columns))
	for _, col := range columns {
		if !v.Has(col) {
			continue
		}
		seen := make(map[string]bool)
		var values []string
		for i := 0; i < v.Len(); i++ {
			val, ok := v.At(i).Categorical(col)
			if !ok || val == "" || seen[val] {
				continue
			}
			seen[val] = true
			values = append(values, val)
		}
		sort.Strings(values)
		out[col] = append([]string{model.FilterAll}, values...)
	}
	return out
}
