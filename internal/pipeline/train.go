package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"churn-insights/internal/classifier"
	"churn-insights/internal/model"
	"churn-insights/pkg/logger"
)

// MinTrainingRows is the smallest complete-row count Train accepts.
const MinTrainingRows = 5

// Labels of a prediction
const (
	LabelChurnRisk = "Churn Risk"
	LabelSafe      = "Safe"
)

// TrainOptions tune a training run. Zero values fall back to the defaults.
type TrainOptions struct {
	Trees     int      // default 100
	Seed      int64    // default 42
	TestRatio float64  // default 0.2
	Features  []string // default model.FeatureColumns
	Logger    *logger.Logger
}

// DefaultTrainOptions returns the reference configuration.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{Trees: 100, Seed: 42, TestRatio: 0.2, Features: model.FeatureColumns}
}

func (o TrainOptions) withDefaults() TrainOptions {
	def := DefaultTrainOptions()
	if o.Trees <= 0 {
		o.Trees = def.Trees
	}
	if o.Seed == 0 {
		o.Seed = def.Seed
	}
	if o.TestRatio <= 0 || o.TestRatio >= 1 {
		o.TestRatio = def.TestRatio
	}
	if len(o.Features) == 0 {
		o.Features = def.Features
	}
	o.Logger = logger.OrNop(o.Logger)
	return o
}

// TrainedModel is an immutable fitted forest with the encoders and feature
// order it was trained with.
type TrainedModel struct {
	RunID       string
	DatasetID   string
	Metrics     model.Metrics
	Importances []model.FeatureImportance // in feature order
	TrainedAt   time.Time
	Duration    time.Duration
	Rows        int // complete rows used for the split
	Trees       int
	Seed        int64

	forest  *classifier.RandomForest
	encoder *Encoder
}

// Train fits a model on v with a background context.
func Train(v model.View, opts TrainOptions) (*TrainedModel, error) {
	return TrainContext(context.Background(), v, opts)
}

// TrainContext drops incomplete rows, splits 80/20 with a fixed seed, fits the
// forest on the train part and scores it on the test part.
func TrainContext(ctx context.Context, v model.View, opts TrainOptions) (*TrainedModel, error) {
	start := time.Now()
	opts = opts.withDefaults()
	dsID := viewID(v)
	log := opts.Logger.With("dataset", shortID(dsID))

	schema := model.ChurnSchema()
	var present []string
	for _, f := range opts.Features {
		if _, ok := schema.Column(f); !ok {
			return nil, fmt.Errorf("%w: %s is not a declared column", ErrSchemaMismatch, f)
		}
		if v.Has(f) {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil, fmt.Errorf("%w: none of the feature columns are present", ErrInsufficientData)
	}

	var keep []int
	for i := 0; i < v.Len(); i++ {
		if complete(schema, present, v.At(i)) {
			keep = append(keep, i)
		}
	}
	rows := model.NewFilteredView(v, keep)
	log.Info("training model", "rows", rows.Len(), "dropped", v.Len()-rows.Len(), "features", len(present))

	if rows.Len() < MinTrainingRows {
		return nil, fmt.Errorf("%w: %d complete rows, need at least %d", ErrInsufficientData, rows.Len(), MinTrainingRows)
	}

	enc, err := NewEncoder(rows, present)
	if err != nil {
		return nil, err
	}
	X := make([][]float64, rows.Len())
	y := make([]int, rows.Len())
	positives := 0
	for i := 0; i < rows.Len(); i++ {
		rec := rows.At(i)
		if X[i], err = enc.EncodeRecord(rec); err != nil {
			return nil, fmt.Errorf("failed to encode row %d: %w", i, err)
		}
		y[i] = EncodeTarget(rec.ChurnStatus)
		positives += y[i]
	}
	if positives == 0 || positives == len(y) {
		return nil, fmt.Errorf("%w: target has a single class", ErrInsufficientData)
	}

	trainIdx, testIdx := classifier.TrainTestSplit(len(X), opts.TestRatio, opts.Seed)
	XTrain, yTrain := classifier.Gather(X, y, trainIdx)
	XTest, yTest := classifier.Gather(X, y, testIdx)

	forest := classifier.NewRandomForest(
		classifier.WithNEstimators(opts.Trees),
		classifier.WithSeed(opts.Seed),
	)
	if err := forest.Fit(ctx, XTrain, yTrain); err != nil {
		return nil, fmt.Errorf("failed to fit forest: %w", err)
	}

	yPred := forest.Predict(XTest)
	prec, rec, f1 := classifier.PrecisionRecallF1(yTest, yPred)
	metrics := model.Metrics{
		Accuracy:  classifier.Accuracy(yTest, yPred),
		Precision: prec,
		Recall:    rec,
		F1:        f1,
		TrainSize: len(trainIdx),
		TestSize:  len(testIdx),
	}

	features := enc.Features()
	raw := forest.FeatureImportances()
	importances := make([]model.FeatureImportance, len(features))
	for j, f := range features {
		importances[j] = model.FeatureImportance{Feature: f, Importance: raw[j]}
	}

	m := &TrainedModel{
		RunID:       uuid.NewString(),
		DatasetID:   dsID,
		Metrics:     metrics,
		Importances: importances,
		TrainedAt:   time.Now().UTC(),
		Duration:    time.Since(start),
		Rows:        rows.Len(),
		Trees:       opts.Trees,
		Seed:        opts.Seed,
		forest:      forest,
		encoder:     enc,
	}
	log.Info("model trained",
		"run_id", m.RunID,
		"accuracy", metrics.Accuracy,
		"f1", metrics.F1,
		"duration", m.Duration.String(),
	)
	return m, nil
}

// Predict estimates the churn probability of one hypothetical customer.
func (m *TrainedModel) Predict(fv FeatureVector) (model.Prediction, error) {
	p, err := m.PredictProba(fv)
	if err != nil {
		return model.Prediction{}, err
	}
	pred := model.Prediction{ID: uuid.NewString(), Probability: p, Churn: p > 0.5, Label: LabelSafe}
	if pred.Churn {
		pred.Label = LabelChurnRisk
	}
	return pred, nil
}

// PredictProba returns p(churn = Yes) for fv.
func (m *TrainedModel) PredictProba(fv FeatureVector) (float64, error) {
	row, err := m.encoder.EncodeVector(fv)
	if err != nil {
		return 0, err
	}
	return m.forest.PredictProba([][]float64{row})[0], nil
}

// Encoder returns the encoders the model was trained with.
func (m *TrainedModel) Encoder() *Encoder { return m.encoder }

// Features returns the ordered feature names.
func (m *TrainedModel) Features() []string { return m.encoder.Features() }

// RankedImportances returns the importances sorted by descending weight.
func (m *TrainedModel) RankedImportances() []model.FeatureImportance {
	out := append([]model.FeatureImportance(nil), m.Importances...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		return out[i].Feature < out[j].Feature
	})
	return out
}

// Summary describes the model for the presentation layer.
func (m *TrainedModel) Summary() model.ModelSummary {
	return model.ModelSummary{
		RunID:       m.RunID,
		DatasetID:   m.DatasetID,
		Features:    m.Features(),
		Metrics:     m.Metrics,
		Importances: m.RankedImportances(),
		TrainedAt:   m.TrainedAt,
	}
}

// TrainingRun is the audit entry for this model.
func (m *TrainedModel) TrainingRun(source string) model.TrainingRun {
	return model.TrainingRun{
		ID:        m.RunID,
		DatasetID: m.DatasetID,
		Source:    source,
		Rows:      m.Rows,
		Trees:     m.Trees,
		Seed:      m.Seed,
		Metrics:   m.Metrics,
		Duration:  m.Duration.String(),
		CreatedAt: m.TrainedAt,
	}
}

func viewID(v model.View) string {
	if ds, ok := v.(*model.Dataset); ok {
		return ds.ID
	}
	return ""
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
