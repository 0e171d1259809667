package pipeline

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"churn-insights/internal/model"
)

// EncodingMap is a fixed bijection between the observed values of one
// categorical column and the codes 0..n-1, in lexicographic order.
type EncodingMap struct {
	Column  string
	classes []string
	codes   map[string]int
}

// NewEncodingMap builds the map from values; duplicates and blanks are ignored.
func NewEncodingMap(column string, values []string) *EncodingMap {
	seen := make(map[string]bool)
	var classes []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		classes = append(classes, v)
	}
	sort.Strings(classes)

	codes := make(map[string]int, len(classes))
	for i, c := range classes {
		codes[c] = i
	}
	return &EncodingMap{Column: column, classes: classes, codes: codes}
}

// Encode returns the code of value or an *UnknownCategoryError.
func (m *EncodingMap) Encode(value string) (int, error) {
	code, ok := m.codes[value]
	if !ok {
		return 0, &UnknownCategoryError{Column: m.Column, Value: value}
	}
	return code, nil
}

// Decode returns the value behind code.
func (m *EncodingMap) Decode(code int) (string, error) {
	if code < 0 || code >= len(m.classes) {
		return "", fmt.Errorf("%w: code %d out of range for column %s", ErrUnknownCategory, code, m.Column)
	}
	return m.classes[code], nil
}

// Classes returns the category list ordered by code.
func (m *EncodingMap) Classes() []string {
	return append([]string(nil), m.classes...)
}

func (m *EncodingMap) Len() int { return len(m.classes) }

// EncodeTarget maps the churn status to the class label: "Yes" is 1, anything else 0.
func EncodeTarget(status string) int {
	if status == model.ChurnYes {
		return 1
	}
	return 0
}

// FeatureVector is one prediction input keyed by feature column name.
// Categorical features take their original string value, numeric ones any
// value cast can turn into a float.
type FeatureVector map[string]any

// Encoder holds the ordered model features and the EncodingMap of every
// categorical one.
type Encoder struct {
	schema   model.Schema
	features []string
	maps     map[string]*EncodingMap
}

// NewEncoder keeps the features present in v, in the given order, and builds
// an EncodingMap for each categorical one from the values observed in v.
func NewEncoder(v model.View, features []string) (*Encoder, error) {
	schema := model.ChurnSchema()
	enc := &Encoder{schema: schema, maps: make(map[string]*EncodingMap)}

	for _, f := range features {
		if _, ok := schema.Column(f); !ok {
			return nil, fmt.Errorf("%w: %s is not a declared column", ErrSchemaMismatch, f)
		}
		if !v.Has(f) {
			continue
		}
		enc.features = append(enc.features, f)
		if !schema.IsCategorical(f) {
			continue
		}
		values := make([]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			val, _ := v.At(i).Categorical(f)
			values = append(values, val)
		}
		enc.maps[f] = NewEncodingMap(f, values)
	}
	if len(enc.features) == 0 {
		return nil, fmt.Errorf("%w: none of the feature columns are present", ErrSchemaMismatch)
	}
	return enc, nil
}

// Features returns the ordered feature names.
func (e *Encoder) Features() []string {
	return append([]string(nil), e.features...)
}

// Map returns the EncodingMap of a categorical feature.
func (e *Encoder) Map(feature string) (*EncodingMap, bool) {
	m, ok := e.maps[feature]
	return m, ok
}

// IsCategorical reports whether feature is encoded.
func (e *Encoder) IsCategorical(feature string) bool {
	_, ok := e.maps[feature]
	return ok
}

// Complete reports whether rec has a value for every feature and a churn status.
func (e *Encoder) Complete(rec model.CustomerRecord) bool {
	return complete(e.schema, e.features, rec)
}

func complete(schema model.Schema, features []string, rec model.CustomerRecord) bool {
	if rec.ChurnStatus == "" {
		return false
	}
	for _, f := range features {
		if schema.IsCategorical(f) {
			if v, _ := rec.Categorical(f); v == "" {
				return false
			}
			continue
		}
		if v, _ := rec.Numeric(f); math.IsNaN(v) {
			return false
		}
	}
	return true
}

// EncodeRecord turns a dataset row into a feature row.
func (e *Encoder) EncodeRecord(rec model.CustomerRecord) ([]float64, error) {
	row := make([]float64, len(e.features))
	for j, f := range e.features {
		if m, ok := e.maps[f]; ok {
			v, _ := rec.Categorical(f)
			code, err := m.Encode(v)
			if err != nil {
				return nil, err
			}
			row[j] = float64(code)
			continue
		}
		v, _ := rec.Numeric(f)
		if math.IsNaN(v) {
			return nil, fmt.Errorf("%w: missing value for %s", ErrSchemaMismatch, f)
		}
		row[j] = v
	}
	return row, nil
}

// EncodeVector turns a prediction input into a feature row. Missing features,
// unusable numbers and unseen categories fail with ErrSchemaMismatch.
func (e *Encoder) EncodeVector(fv FeatureVector) ([]float64, error) {
	row := make([]float64, len(e.features))
	for j, f := range e.features {
		raw, ok := fv[f]
		if !ok || raw == nil {
			return nil, fmt.Errorf("%w: missing feature %s", ErrSchemaMismatch, f)
		}
		// cast turns booleans into 1/0 and "true"/"false"
		if _, ok := raw.(bool); ok {
			return nil, fmt.Errorf("%w: feature %s must not be a boolean", ErrSchemaMismatch, f)
		}

		if m, ok := e.maps[f]; ok {
			s, err := cast.ToStringE(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: feature %s must be a category, got %T", ErrSchemaMismatch, f, raw)
			}
			code, err := m.Encode(strings.TrimSpace(s))
			if err != nil {
				return nil, err
			}
			row[j] = float64(code)
			continue
		}

		if s, ok := raw.(string); ok {
			if s = strings.TrimSpace(s); s == "" {
				return nil, fmt.Errorf("%w: missing feature %s", ErrSchemaMismatch, f)
			}
			raw = s
		}
		v, err := cast.ToFloat64E(raw)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: feature %s must be numeric, got %v", ErrSchemaMismatch, f, raw)
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: feature %s must not be negative, got %v", ErrSchemaMismatch, f, v)
		}
		row[j] = v
	}
	return row, nil
}
