package pipeline

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churn-insights/internal/model"
)

func TestBuildReport(t *testing.T) {
	ds, err := LoadBytes("sample.csv", []byte(sampleCSV))
	require.NoError(t, err)

	r := BuildReport(ds)
	assert.Equal(t, 3, r.TotalCustomers)
	assert.InDelta(t, 66.67, r.ChurnRate, 0.01)
	require.NotNil(t, r.Revenue)
	assert.Equal(t, 600.0, r.Revenue.Total)
	assert.Equal(t, 400.0, r.Revenue.Lost)
	assert.Len(t, r.TopReasons, 2)
	assert.Equal(t, "Plan A", r.TopPlans[0].Label)

	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	out := buf.String()
	assert.Contains(t, out, "Total Customers: 3\n")
	assert.Contains(t, out, "Churn Rate: 66.67%\n")
	assert.Contains(t, out, "Total Revenue: N600.00\n")
	assert.Contains(t, out, "Lost Revenue: N400.00 (66.67%)\n")
	assert.Contains(t, out, "Better Offers From Competitors")
	assert.Contains(t, out, "Highest Churn Plans:")
}

func TestReportGroupsThousands(t *testing.T) {
	r := Report{TotalCustomers: 1200, Revenue: &model.RevenueSummary{Total: 1234567.891}}
	var buf bytes.Buffer
	_, err := r.WriteTo(&buf)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "Total Customers: 1,200")
	assert.Contains(t, buf.String(), "Total Revenue: N1,234,567.89")
	assert.Contains(t, buf.String(), "(none)")
}

func TestReportNotesRejectedRows(t *testing.T) {
	csv := "state,subscription_plan,customer_churn_status\n" +
		"Lagos,Basic,Yes\n" +
		"Lagos,Basic,Maybe\n" +
		"Lagos,Premium,No\n" +
		"Lagos,Premium,\n"
	ds, err := LoadBytes("rejected.csv", []byte(csv))
	require.NoError(t, err)

	r := BuildReport(ds)
	assert.Equal(t, 2, r.TotalCustomers)
	assert.Equal(t, 2, r.RowsRejected)

	var buf bytes.Buffer
	_, err = r.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Note: 2 rows with an invalid churn status are excluded from these totals\n")

	// filtered views carry no load statistics
	view, err := Filter(ds, model.FilterSpec{model.ColPlan: "Basic"})
	require.NoError(t, err)
	assert.Zero(t, BuildReport(view).RowsRejected)

	buf.Reset()
	_, err = BuildReport(view).WriteTo(&buf)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "Note:")
}

type recorderStub struct {
	runs []model.TrainingRun
	err  error
}

func (r *recorderStub) SaveTrainingRun(_ context.Context, run model.TrainingRun) error {
	r.runs = append(r.runs, run)
	return r.err
}

func TestRunTrainsAndRecords(t *testing.T) {
	var csv bytes.Buffer
	csv.WriteString("state,subscription_plan,customer_churn_status,customer_tenure_in_months\n")
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			csv.WriteString("Lagos,Basic,Yes,2\n")
		} else {
			csv.WriteString("Lagos,Premium,No,30\n")
		}
	}
	path := writeFile(t, t.TempDir(), "churn.csv", csv.String())

	rec := &recorderStub{}
	res, err := Run(context.Background(), Job{DataPath: path, Train: TrainOptions{Trees: 5}}, rec, nil)
	require.NoError(t, err)

	assert.Equal(t, 20, res.Dataset.Len())
	assert.Equal(t, 20, res.Report.TotalCustomers)
	require.NotNil(t, res.Model)
	assert.NoError(t, res.ModelErr)
	require.Len(t, rec.runs, 1)
	assert.Equal(t, res.Model.RunID, rec.runs[0].ID)
	assert.Equal(t, path, rec.runs[0].Source)

	require.Len(t, res.Stages, 4)
	assert.Equal(t, StageLoad, res.Stages[0].Stage)
	assert.Equal(t, StatusCompleted, res.Stages[2].Status)
	assert.Equal(t, StatusSkipped, res.Stages[3].Status)
}

func TestRunExportsTables(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "churn.csv", sampleCSV)
	out := filepath.Join(dir, "out")

	res, err := Run(context.Background(), Job{DataPath: path, SkipModel: true, ExportDir: out, ExportFormat: FormatJSON}, nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.Exports)
	for _, e := range res.Exports {
		assert.True(t, e.Success, e.Table)
		assert.FileExists(t, e.Path)
	}
	assert.Equal(t, StatusSkipped, res.Stages[2].Status)
	assert.Equal(t, StatusCompleted, res.Stages[3].Status)
	assert.Equal(t, len(res.Exports), res.Stages[3].RecordsProcessed)
}

func TestStageTrackerFailure(t *testing.T) {
	tr := NewStageTracker(nil)
	tr.StartStage(StageTrain)
	tr.EndStage(StageTrain, 0, ErrInsufficientData)
	tr.EndStage(StageLoad, 5, nil) // never started, ignored

	stages := tr.Stages()
	require.Len(t, stages, 1)
	assert.Equal(t, StatusFailed, stages[0].Status)
	assert.Equal(t, ErrInsufficientData.Error(), stages[0].Error)
}

func TestRunKeepsReportWhenModelFails(t *testing.T) {
	path := writeFile(t, t.TempDir(), "churn.csv", sampleCSV)

	rec := &recorderStub{err: errors.New("disk full")}
	res, err := Run(context.Background(), Job{DataPath: path}, rec, nil)
	require.NoError(t, err)

	assert.Nil(t, res.Model)
	assert.ErrorIs(t, res.ModelErr, ErrInsufficientData)
	assert.Equal(t, 3, res.Report.TotalCustomers)
	assert.Equal(t, StatusFailed, res.Stages[2].Status)
	assert.Empty(t, rec.runs)
}

func TestRunDataNotFound(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := Run(context.Background(), Job{DataPath: "missing.csv"}, nil, nil)
	assert.ErrorIs(t, err, ErrDataNotFound)
}
