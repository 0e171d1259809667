package pipeline

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churn-insights/internal/model"
)

func TestLoadBytesCleansAndImputes(t *testing.T) {
	ds, err := LoadBytes("sample.csv", []byte(sampleCSV))
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())

	assert.Equal(t, []string{
		model.ColState, model.ColPlan, model.ColChurnStatus, model.ColTotalRevenue,
		model.ColTenure, model.ColDataUsage, model.ColAge, model.ColChurnReason,
	}, ds.Columns)
	assert.True(t, ds.Has(model.ColState))
	assert.False(t, ds.Has(model.ColGender))

	// status normalized
	assert.Equal(t, model.ChurnYes, ds.At(0).ChurnStatus)
	assert.Equal(t, model.ChurnNo, ds.At(1).ChurnStatus)
	assert.Equal(t, model.ChurnYes, ds.At(2).ChurnStatus)

	// global medians fill the imputed columns
	median, ok := ds.Median(model.ColTotalRevenue)
	require.True(t, ok)
	assert.Equal(t, 200.0, median)
	assert.Equal(t, 200.0, ds.At(1).TotalRevenue)
	assert.Equal(t, 15.0, ds.At(1).TenureMonths)
	assert.Equal(t, 3.75, ds.At(2).DataUsage)

	// negative age is missing and age is not imputed
	assert.True(t, math.IsNaN(ds.At(1).Age))
	assert.Equal(t, 40.0, ds.At(2).Age)

	assert.Equal(t, 3, ds.Stats.RowsRead)
	assert.Equal(t, 3, ds.Stats.RowsKept)
	assert.Equal(t, map[string]int{model.ColTotalRevenue: 1, model.ColAge: 1}, ds.Stats.Coerced)
	assert.Equal(t, map[string]int{
		model.ColTotalRevenue: 1, model.ColTenure: 1, model.ColDataUsage: 1,
	}, ds.Stats.Imputed)
}

func TestLoadBytesDeterministic(t *testing.T) {
	a, err := LoadBytes("a.csv", []byte(sampleCSV))
	require.NoError(t, err)
	b, err := LoadBytes("a.csv", []byte(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, Digest([]byte(sampleCSV)), a.ID)
	assert.True(t, sameRecords(a.Records(), b.Records()))
	assert.Equal(t, a.Medians(), b.Medians())
}

func TestLoadBytesRejectsInvalidStatus(t *testing.T) {
	data := "state,subscription_plan,customer_churn_status\nLagos,A,Yes\nKano,B,Maybe\nOyo,A,\n"
	ds, err := LoadBytes("x.csv", []byte(data))
	require.NoError(t, err)

	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, 2, ds.Stats.RowsRejected)
}

func TestLoadBytesErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"missing required column", "state,customer_churn_status\nLagos,Yes\n", ErrMissingColumn},
		{"empty file", "", ErrMissingColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes("x.csv", []byte(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadBytesEmptyDataset(t *testing.T) {
	ds, err := LoadBytes("x.csv", []byte("state,subscription_plan,customer_churn_status,total_revenue\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
	assert.Empty(t, ds.Medians())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "churn.csv", sampleCSV)

	ds, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, ds.Source)
	assert.Equal(t, 3, ds.Len())
}

func TestLoadFallsBackToParentDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "churn.csv", sampleCSV)
	sub := filepath.Join(dir, "pages")
	require.NoError(t, os.Mkdir(sub, 0o755))
	chdir(t, sub)

	ds, err := Load("churn.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("..", "churn.csv"), ds.Source)
}

func TestLoadDataNotFound(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := Load("does-not-exist.csv")
	assert.ErrorIs(t, err, ErrDataNotFound)
}

func TestCleanHeader(t *testing.T) {
	assert.Equal(t, "subscription_plan", cleanHeader(` "Subscription  Plan" `))
	assert.Equal(t, "state", cleanHeader("STATE"))
}

func TestCoerceNumeric(t *testing.T) {
	tests := []struct {
		cell string
		want float64
		ok   bool
	}{
		{"12.5", 12.5, true},
		{"0", 0, true},
		{"", math.NaN(), false},
		{"abc", math.NaN(), false},
		{"-3", math.NaN(), false},
		{"NaN", math.NaN(), false},
	}
	for _, tt := range tests {
		got, ok := coerceNumeric(tt.cell)
		assert.Equal(t, tt.ok, ok, tt.cell)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.cell)
		} else {
			assert.True(t, math.IsNaN(got), tt.cell)
		}
	}
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
	assert.True(t, math.IsNaN(median(nil)))
}
