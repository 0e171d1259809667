package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churn-insights/internal/model"
)

func TestEncodingMapRoundTrip(t *testing.T) {
	m := NewEncodingMap(model.ColState, []string{"Oyo", "Abuja", "", "Lagos", "Abuja"})

	assert.Equal(t, []string{"Abuja", "Lagos", "Oyo"}, m.Classes())
	assert.Equal(t, 3, m.Len())
	for _, v := range m.Classes() {
		code, err := m.Encode(v)
		require.NoError(t, err)
		back, err := m.Decode(code)
		require.NoError(t, err)
		assert.Equal(t, v, back)
	}

	code, err := m.Encode("Abuja")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestEncodingMapUnknownCategory(t *testing.T) {
	m := NewEncodingMap(model.ColState, []string{"Lagos"})

	_, err := m.Encode("Kano")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownCategory)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	var uce *UnknownCategoryError
	require.ErrorAs(t, err, &uce)
	assert.Equal(t, "Kano", uce.Value)
	assert.Equal(t, model.ColState, uce.Column)

	_, err = m.Decode(5)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestEncodeTarget(t *testing.T) {
	assert.Equal(t, 1, EncodeTarget("Yes"))
	assert.Equal(t, 0, EncodeTarget("No"))
	assert.Equal(t, 0, EncodeTarget("yes"))
	assert.Equal(t, 0, EncodeTarget(""))
}

func TestNewEncoder(t *testing.T) {
	ds := trainingDataset(10)

	enc, err := NewEncoder(ds, model.FeatureColumns)
	require.NoError(t, err)

	// absent columns are skipped, order is kept
	assert.Equal(t, []string{
		model.ColAge, model.ColGender, model.ColState, model.ColTenure,
		model.ColPlan, model.ColDataUsage, model.ColTotalRevenue,
	}, enc.Features())
	assert.True(t, enc.IsCategorical(model.ColPlan))
	assert.False(t, enc.IsCategorical(model.ColTenure))

	plan, ok := enc.Map(model.ColPlan)
	require.True(t, ok)
	assert.Equal(t, []string{"Basic", "Premium"}, plan.Classes())

	_, err = NewEncoder(ds, []string{"favourite_colour"})
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = NewEncoder(ds, []string{model.ColDevice})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestEncodeVector(t *testing.T) {
	enc, err := NewEncoder(trainingDataset(10), model.FeatureColumns)
	require.NoError(t, err)

	row, err := enc.EncodeVector(validVector())
	require.NoError(t, err)
	assert.Equal(t, []float64{30, 0, 0, 2, 0, 12.5, 5000}, row)

	tests := []struct {
		name   string
		mutate func(FeatureVector)
	}{
		{"missing feature", func(fv FeatureVector) { delete(fv, model.ColTenure) }},
		{"nil feature", func(fv FeatureVector) { fv[model.ColAge] = nil }},
		{"non numeric", func(fv FeatureVector) { fv[model.ColAge] = "old" }},
		{"negative", func(fv FeatureVector) { fv[model.ColDataUsage] = -1.0 }},
		{"blank numeric", func(fv FeatureVector) { fv[model.ColAge] = " " }},
		{"unknown category", func(fv FeatureVector) { fv[model.ColState] = "Kano" }},
		{"boolean numeric", func(fv FeatureVector) { fv[model.ColAge] = true }},
		{"boolean category", func(fv FeatureVector) { fv[model.ColState] = false }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fv := validVector()
			tt.mutate(fv)
			_, err := enc.EncodeVector(fv)
			assert.ErrorIs(t, err, ErrSchemaMismatch)
		})
	}
}

func TestEncodeRecordMissingValue(t *testing.T) {
	ds := trainingDataset(4)
	enc, err := NewEncoder(ds, model.FeatureColumns)
	require.NoError(t, err)

	r := ds.At(0)
	assert.True(t, enc.Complete(r))
	r.TenureMonths = nan()
	assert.False(t, enc.Complete(r))
	_, err = enc.EncodeRecord(r)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}
