package pipeline

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"churn-insights/internal/model"
)

const sampleCSV = `" State ",Subscription Plan,customer_churn_status,total_revenue,customer_tenure_in_months,data_usage,age,reasons_for_churn
Lagos,Plan A,yes ,100,10,5.5,30,High Call Tarriffs
Abuja,Plan B,NO,abc,,2,-4,
Kano,Plan A,Yes,300,20,,40,Better Offers From Competitors
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// sameRecords compares records by their printed form so NaN equals NaN.
func sameRecords(a, b []model.CustomerRecord) bool {
	return fmt.Sprintf("%+v", a) == fmt.Sprintf("%+v", b)
}

// rec builds a complete record for aggregation tests.
func rec(state, plan, status string, revenue float64) model.CustomerRecord {
	r := model.EmptyRecord()
	r.State = state
	r.SubscriptionPlan = plan
	r.ChurnStatus = status
	r.TotalRevenue = revenue
	return r
}

// editRecords returns a copy of ds with edit applied to its rows.
func editRecords(ds *model.Dataset, edit func([]model.CustomerRecord)) *model.Dataset {
	records := ds.Records()
	edit(records)
	return model.NewDataset(ds.ID, ds.Source, ds.Schema, ds.Columns, ds.Medians(), records)
}

func dataset(columns []string, records ...model.CustomerRecord) *model.Dataset {
	return model.NewDataset("test", "memory", model.ChurnSchema(), columns, map[string]float64{}, records)
}

var baseColumns = []string{model.ColState, model.ColPlan, model.ColChurnStatus, model.ColTotalRevenue}

// trainingDataset returns n rows where short-tenure Basic customers churn and
// long-tenure Premium customers stay. Every other feature is constant.
func trainingDataset(n int) *model.Dataset {
	columns := []string{
		model.ColState, model.ColPlan, model.ColChurnStatus, model.ColGender,
		model.ColAge, model.ColTenure, model.ColDataUsage, model.ColTotalRevenue,
	}
	records := make([]model.CustomerRecord, 0, n)
	for i := 0; i < n; i++ {
		r := model.EmptyRecord()
		r.State = "Lagos"
		r.Gender = "Female"
		r.Age = 30
		r.DataUsage = 12.5
		r.TotalRevenue = 5000
		if i%2 == 0 {
			r.SubscriptionPlan = "Basic"
			r.TenureMonths = float64(1 + i%10)
			r.ChurnStatus = model.ChurnYes
		} else {
			r.SubscriptionPlan = "Premium"
			r.TenureMonths = float64(30 + i%10)
			r.ChurnStatus = model.ChurnNo
		}
		records = append(records, r)
	}
	return model.NewDataset("train-fixture", "memory", model.ChurnSchema(), columns, map[string]float64{}, records)
}

func validVector() FeatureVector {
	return FeatureVector{
		model.ColAge:          30,
		model.ColGender:       "Female",
		model.ColState:        "Lagos",
		model.ColTenure:       2,
		model.ColPlan:         "Basic",
		model.ColDataUsage:    12.5,
		model.ColTotalRevenue: "5000",
	}
}

func nan() float64 { return math.NaN() }

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
