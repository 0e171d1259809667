package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"churn-insights/internal/metrics"
	"churn-insights/internal/model"
	"churn-insights/internal/pipeline"
	"churn-insights/pkg/logger"
)

// DefaultTrainTimeout bounds a shared training run when Options.TrainTimeout is unset.
const DefaultTrainTimeout = 5 * time.Minute

// Recorder persists the audit trail of training runs and predictions.
type Recorder interface {
	pipeline.RunRecorder
	SavePrediction(ctx context.Context, p model.PredictionRecord) error
}

// DatasetKey identifies a dataset snapshot: where it was read and what it contained.
type DatasetKey struct {
	Path   string
	Digest string
}

// KeyOf returns the snapshot key of a loaded dataset.
func KeyOf(ds *model.Dataset) DatasetKey {
	return DatasetKey{Path: ds.Source, Digest: ds.ID}
}

// Options configure a Session. Every field is optional.
type Options struct {
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	Recorder Recorder
	Train    pipeline.TrainOptions
	// TrainTimeout bounds one training run. It is not tied to any request.
	TrainTimeout time.Duration
}

// snapshot is the newest load of one path.
type snapshot struct {
	key     DatasetKey
	size    int64
	modTime time.Time
	seq     uint64
}

// Session owns the dataset and model caches shared by all requests.
// Both caches are keyed by path and content digest.
type Session struct {
	log          *logger.Logger
	metrics      *metrics.Metrics
	recorder     Recorder
	train        pipeline.TrainOptions
	trainTimeout time.Duration
	loader       *pipeline.Loader

	datasets *Memo[DatasetKey, *model.Dataset]
	models   *Memo[DatasetKey, *pipeline.TrainedModel]

	seq    atomic.Uint64
	mu     sync.Mutex
	latest map[string]snapshot // path -> newest snapshot
}

func New(opts Options) *Session {
	log := logger.OrNop(opts.Logger)
	train := opts.Train
	train.Logger = log
	timeout := opts.TrainTimeout
	if timeout <= 0 {
		timeout = DefaultTrainTimeout
	}
	return &Session{
		log:          log,
		metrics:      opts.Metrics,
		recorder:     opts.Recorder,
		train:        train,
		trainTimeout: timeout,
		loader:       pipeline.NewLoader(log),
		datasets:     NewMemo[DatasetKey, *model.Dataset](),
		models:       NewMemo[DatasetKey, *pipeline.TrainedModel](),
		latest:       make(map[string]snapshot),
	}
}

// Dataset returns the dataset at path. While the file's size and
// modification time are unchanged the cached snapshot is returned without
// reading the file. Otherwise it is read and hashed, and parsed only when
// its content changed.
func (s *Session) Dataset(path string) (*model.Dataset, error) {
	resolved, err := pipeline.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", pipeline.ErrDataNotFound, resolved)
	}
	if ds, ok := s.unchanged(resolved, info); ok {
		s.countLookup("dataset", true)
		return ds, nil
	}

	seq := s.seq.Add(1)
	resolved, data, err := pipeline.ReadSource(resolved)
	if err != nil {
		return nil, err
	}
	key := DatasetKey{Path: resolved, Digest: pipeline.Digest(data)}

	ds, hit, err := s.datasets.Get(key, func() (*model.Dataset, error) {
		return s.loader.LoadBytes(resolved, data)
	})
	s.countLookup("dataset", hit)
	if err != nil {
		return nil, err
	}
	s.replaceSnapshot(snapshot{key: key, size: info.Size(), modTime: info.ModTime(), seq: seq})
	return ds, nil
}

// unchanged returns the cached snapshot of path if the file still has the
// size and modification time it had when that snapshot was read.
func (s *Session) unchanged(path string, info os.FileInfo) (*model.Dataset, bool) {
	s.mu.Lock()
	snap, ok := s.latest[path]
	s.mu.Unlock()
	if !ok || snap.size != info.Size() || !snap.modTime.Equal(info.ModTime()) {
		return nil, false
	}
	return s.datasets.Peek(snap.key)
}

// replaceSnapshot makes next the current snapshot of its path and evicts the
// previous one with its model. A read that started before the current
// snapshot's read never replaces it.
func (s *Session) replaceSnapshot(next snapshot) {
	path := next.key.Path
	s.mu.Lock()
	prev, ok := s.latest[path]
	if ok && next.seq < prev.seq {
		s.mu.Unlock()
		if next.key != prev.key {
			s.evict(next.key)
		}
		return
	}
	s.latest[path] = next
	s.mu.Unlock()

	if ok && prev.key != next.key {
		s.evict(prev.key)
		s.log.Info("dataset changed, previous snapshot evicted", "path", path)
	}
}

func (s *Session) evict(key DatasetKey) {
	s.datasets.Forget(key)
	s.models.Forget(key)
}

// Model returns the model trained on ds, training it on first use. Training
// runs detached from ctx under the session's train timeout, so a caller that
// gives up does not fail the callers waiting on the same run.
func (s *Session) Model(ctx context.Context, ds *model.Dataset) (*pipeline.TrainedModel, error) {
	m, hit, err := s.models.GetContext(ctx, KeyOf(ds), func() (*pipeline.TrainedModel, error) {
		trainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.trainTimeout)
		defer cancel()

		start := time.Now()
		m, err := pipeline.TrainContext(trainCtx, ds, s.train)
		if s.metrics != nil {
			s.metrics.ObserveTraining(time.Since(start), err)
		}
		if err != nil {
			return nil, err
		}
		if s.recorder != nil {
			if err := s.recorder.SaveTrainingRun(trainCtx, m.TrainingRun(ds.Source)); err != nil {
				s.log.Warn("failed to record training run", "run_id", m.RunID, "error", err)
			}
		}
		return m, nil
	})
	s.countLookup("model", hit)
	return m, err
}

// Predict scores fv with the model of ds and records the prediction.
func (s *Session) Predict(ctx context.Context, ds *model.Dataset, fv pipeline.FeatureVector) (model.Prediction, error) {
	m, err := s.Model(ctx, ds)
	if err != nil {
		return model.Prediction{}, err
	}
	pred, err := m.Predict(fv)
	if err != nil {
		return model.Prediction{}, err
	}
	if s.metrics != nil {
		s.metrics.ObservePrediction(pred.Label)
	}
	if s.recorder != nil {
		rec := model.PredictionRecord{
			ID:          pred.ID,
			RunID:       m.RunID,
			DatasetID:   ds.ID,
			Input:       fv,
			Probability: pred.Probability,
			Churn:       pred.Churn,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.recorder.SavePrediction(ctx, rec); err != nil {
			s.log.Warn("failed to record prediction", "prediction_id", pred.ID, "error", err)
		}
	}
	return pred, nil
}

// CachedModel returns the model of ds if it has already been trained.
func (s *Session) CachedModel(ds *model.Dataset) (*pipeline.TrainedModel, bool) {
	return s.models.Peek(KeyOf(ds))
}

func (s *Session) countLookup(cache string, hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHit(cache)
	} else {
		s.metrics.CacheMiss(cache)
	}
}
