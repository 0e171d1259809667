package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churn-insights/internal/metrics"
	"churn-insights/internal/model"
	"churn-insights/internal/pipeline"
)

func TestMemoCachesValues(t *testing.T) {
	m := NewMemo[string, int]()
	calls := 0
	fn := func() (int, error) { calls++; return 42, nil }

	v, hit, err := m.Get("a", fn)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.False(t, hit)

	v, hit, err = m.Get("a", fn)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, hit)
	assert.Equal(t, 1, calls)

	m.Forget("a")
	assert.Equal(t, 0, m.Len())
	_, hit, _ = m.Get("a", fn)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
}

func TestMemoDoesNotCacheErrors(t *testing.T) {
	m := NewMemo[string, int]()
	boom := errors.New("boom")

	_, _, err := m.Get("a", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, m.Len())

	v, _, err := m.Get("a", func() (int, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestMemoSharesConcurrentMisses(t *testing.T) {
	m := NewMemo[string, int]()
	var calls atomic.Int32
	fn := func() (int, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return 7, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := m.Get("k", fn)
			assert.NoError(t, err)
			assert.Equal(t, 7, v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestMemoWaiterCanGiveUp(t *testing.T) {
	m := NewMemo[string, int]()
	release := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := m.GetContext(ctx, "k", func() (int, error) {
		<-release
		return 7, nil
	})
	require.ErrorIs(t, err, context.Canceled)

	// the computation outlives the caller and is still cached
	close(release)
	require.Eventually(t, func() bool {
		v, ok := m.Peek("k")
		return ok && v == 7
	}, time.Second, 5*time.Millisecond)

	v, hit, err := m.GetContext(context.Background(), "k", func() (int, error) { return 0, errors.New("unused") })
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 7, v)
}

type memRecorder struct {
	mu          sync.Mutex
	runs        []model.TrainingRun
	predictions []model.PredictionRecord
}

func (r *memRecorder) SaveTrainingRun(_ context.Context, run model.TrainingRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *memRecorder) runCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func (r *memRecorder) SavePrediction(_ context.Context, p model.PredictionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predictions = append(r.predictions, p)
	return nil
}

func churnCSV(rows int) string {
	var b strings.Builder
	b.WriteString("state,subscription_plan,customer_churn_status,customer_tenure_in_months\n")
	for i := 0; i < rows; i++ {
		if i%2 == 0 {
			fmt.Fprintf(&b, "Lagos,Basic,Yes,%d\n", 1+i%5)
		} else {
			fmt.Fprintf(&b, "Lagos,Premium,No,%d\n", 30+i%5)
		}
	}
	return b.String()
}

func newTestSession(t *testing.T) (*Session, *metrics.Metrics, *memRecorder) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	rec := &memRecorder{}
	s := New(Options{Metrics: m, Recorder: rec, Train: pipeline.TrainOptions{Trees: 5}})
	return s, m, rec
}

func TestSessionDatasetCache(t *testing.T) {
	s, m, _ := newTestSession(t)
	path := filepath.Join(t.TempDir(), "churn.csv")
	require.NoError(t, os.WriteFile(path, []byte(churnCSV(10)), 0o644))

	a, err := s.Dataset(path)
	require.NoError(t, err)
	b, err := s.Dataset(path)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("dataset", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("dataset", "miss")))

	// new content is a new snapshot and replaces the old one
	require.NoError(t, os.WriteFile(path, []byte(churnCSV(12)), 0o644))
	c, err := s.Dataset(path)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, c.ID)
	assert.Equal(t, 12, c.Len())
	assert.Equal(t, 1, s.datasets.Len())
}

func TestSessionDatasetNotFound(t *testing.T) {
	s, _, _ := newTestSession(t)
	_, err := s.Dataset(filepath.Join(t.TempDir(), "nope", "churn.csv"))
	assert.ErrorIs(t, err, pipeline.ErrDataNotFound)
}

func TestSessionModelCache(t *testing.T) {
	s, m, rec := newTestSession(t)
	ds, err := pipeline.LoadBytes("churn.csv", []byte(churnCSV(20)))
	require.NoError(t, err)

	_, ok := s.CachedModel(ds)
	assert.False(t, ok)

	a, err := s.Model(context.Background(), ds)
	require.NoError(t, err)
	b, err := s.Model(context.Background(), ds)
	require.NoError(t, err)

	assert.Same(t, a, b)
	require.Len(t, rec.runs, 1)
	assert.Equal(t, a.RunID, rec.runs[0].ID)
	assert.Equal(t, 1, testutil.CollectAndCount(m.TrainingDuration))

	cached, ok := s.CachedModel(ds)
	assert.True(t, ok)
	assert.Same(t, a, cached)
}

func TestSessionModelErrorsAreNotCached(t *testing.T) {
	s, m, rec := newTestSession(t)
	ds, err := pipeline.LoadBytes("churn.csv", []byte(churnCSV(3)))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := s.Model(context.Background(), ds)
		assert.ErrorIs(t, err, pipeline.ErrInsufficientData)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TrainingFailures))
	assert.Empty(t, rec.runs)
}

func TestSessionPredictRecords(t *testing.T) {
	s, m, rec := newTestSession(t)
	ds, err := pipeline.LoadBytes("churn.csv", []byte(churnCSV(20)))
	require.NoError(t, err)

	fv := pipeline.FeatureVector{
		model.ColState:  "Lagos",
		model.ColPlan:   "Basic",
		model.ColTenure: 2,
	}
	pred, err := s.Predict(context.Background(), ds, fv)
	require.NoError(t, err)
	assert.True(t, pred.Churn)

	require.Len(t, rec.predictions, 1)
	assert.Equal(t, pred.ID, rec.predictions[0].ID)
	assert.Equal(t, ds.ID, rec.predictions[0].DatasetID)
	assert.Equal(t, rec.runs[0].ID, rec.predictions[0].RunID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Predictions.WithLabelValues(pred.Label)))

	fv[model.ColState] = "Kano"
	_, err = s.Predict(context.Background(), ds, fv)
	assert.ErrorIs(t, err, pipeline.ErrUnknownCategory)
	assert.Len(t, rec.predictions, 1)
}

func TestSessionDatasetSkipsUnchangedFile(t *testing.T) {
	s, m, _ := newTestSession(t)
	path := filepath.Join(t.TempDir(), "churn.csv")
	original := []byte(churnCSV(10))
	require.NoError(t, os.WriteFile(path, original, 0o644))
	stamp := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, stamp, stamp))

	a, err := s.Dataset(path)
	require.NoError(t, err)

	// same size and modification time: the file is not read again
	edited := []byte(strings.Replace(string(original), "Lagos", "Abuja", 1))
	require.Len(t, edited, len(original))
	require.NoError(t, os.WriteFile(path, edited, 0o644))
	require.NoError(t, os.Chtimes(path, stamp, stamp))

	b, err := s.Dataset(path)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("dataset", "hit")))

	// a new modification time triggers a read, which finds the new content
	later := stamp.Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	c, err := s.Dataset(path)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, c.ID)
	assert.Equal(t, "Abuja", c.At(0).State)
	assert.Equal(t, 1, s.datasets.Len())

	// touching the file without changing it keeps the parsed snapshot
	latest := later.Add(time.Minute)
	require.NoError(t, os.Chtimes(path, latest, latest))
	d, err := s.Dataset(path)
	require.NoError(t, err)
	assert.Same(t, c, d)
}

func TestSessionModelSurvivesCanceledCaller(t *testing.T) {
	s, _, rec := newTestSession(t)
	ds, err := pipeline.LoadBytes("churn.csv", []byte(churnCSV(200)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Model(ctx, ds); err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}

	var wg sync.WaitGroup
	models := make([]*pipeline.TrainedModel, 4)
	for i := range models {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := s.Model(context.Background(), ds)
			assert.NoError(t, err)
			models[i] = m
		}()
	}
	wg.Wait()

	for _, m := range models {
		require.NotNil(t, m)
		assert.Same(t, models[0], m)
	}
	assert.Equal(t, 1, rec.runCount())
}

func TestSessionModelsArePerPath(t *testing.T) {
	s, _, _ := newTestSession(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.csv")
	second := filepath.Join(dir, "second.csv")
	require.NoError(t, os.WriteFile(first, []byte(churnCSV(20)), 0o644))
	require.NoError(t, os.WriteFile(second, []byte(churnCSV(20)), 0o644))

	a, err := s.Dataset(first)
	require.NoError(t, err)
	b, err := s.Dataset(second)
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)

	ma, err := s.Model(context.Background(), a)
	require.NoError(t, err)
	mb, err := s.Model(context.Background(), b)
	require.NoError(t, err)
	assert.NotSame(t, ma, mb)

	// changing one file leaves the other path's model cached
	require.NoError(t, os.WriteFile(first, []byte(churnCSV(24)), 0o644))
	_, err = s.Dataset(first)
	require.NoError(t, err)

	cached, ok := s.CachedModel(b)
	require.True(t, ok)
	assert.Same(t, mb, cached)
	_, ok = s.CachedModel(a)
	assert.False(t, ok)
}

func TestSessionOlderReadDoesNotReplaceNewer(t *testing.T) {
	s, _, _ := newTestSession(t)
	older := DatasetKey{Path: "churn.csv", Digest: "old"}
	newer := DatasetKey{Path: "churn.csv", Digest: "new"}
	for _, k := range []DatasetKey{older, newer} {
		_, _, err := s.datasets.Get(k, func() (*model.Dataset, error) {
			return pipeline.LoadBytes("churn.csv", []byte(churnCSV(4)))
		})
		require.NoError(t, err)
	}

	// the newer read finishes first
	s.replaceSnapshot(snapshot{key: newer, seq: 2})
	s.replaceSnapshot(snapshot{key: older, seq: 1})

	assert.Equal(t, newer, s.latest["churn.csv"].key)
	_, ok := s.datasets.Peek(newer)
	assert.True(t, ok)
	_, ok = s.datasets.Peek(older)
	assert.False(t, ok)
}
