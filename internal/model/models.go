package model

import "time"

// Metrics are held-out evaluation scores of a trained model
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	TrainSize int     `json:"train_size"`
	TestSize  int     `json:"test_size"`
}

// FeatureImportance ranks one model input as a churn driver
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// ModelSummary describes a trained model without its parameters
type ModelSummary struct {
	RunID       string              `json:"run_id"`
	DatasetID   string              `json:"dataset_id"`
	Features    []string            `json:"features"`
	Metrics     Metrics             `json:"metrics"`
	Importances []FeatureImportance `json:"importances"`
	TrainedAt   time.Time           `json:"trained_at"`
}

// Prediction is the answer to a what-if request
type Prediction struct {
	ID          string  `json:"id,omitempty"`
	Probability float64 `json:"probability"` // p(churn = Yes)
	Churn       bool    `json:"churn"`
	Label       string  `json:"label"` // "Churn Risk" or "Safe"
}

// FormField describes one input of the what-if form.
// Categorical fields carry Options, numeric fields carry Min/Max/Default.
type FormField struct {
	Name    string     `json:"name"`
	Label   string     `json:"label"`
	Kind    ColumnKind `json:"kind"`
	Options []string   `json:"options,omitempty"`
	Min     float64    `json:"min"`
	Max     float64    `json:"max"`
	Default float64    `json:"default"`
}
