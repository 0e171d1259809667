package pipeline

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"churn-insights/internal/model"
)

// Form describes the what-if inputs of m: the encoder classes of each
// categorical feature, and min/max/mean over v of each numeric one.
func Form(m *TrainedModel, v model.View) []model.FormField {
	caser := cases.Title(language.English)
	enc := m.Encoder()

	fields := make([]model.FormField, 0, len(enc.Features()))
	for _, f := range enc.Features() {
		field := model.FormField{
			Name:  f,
			Label: caser.String(strings.ReplaceAll(f, "_", " ")),
		}
		if em, ok := enc.Map(f); ok {
			field.Kind = model.Categorical
			field.Options = em.Classes()
			fields = append(fields, field)
			continue
		}

		field.Kind = model.Numeric
		var xs []float64
		for i := 0; i < v.Len(); i++ {
			if x, _ := v.At(i).Numeric(f); !math.IsNaN(x) {
				xs = append(xs, x)
			}
		}
		if len(xs) > 0 {
			field.Min = floats.Min(xs)
			field.Max = floats.Max(xs)
			field.Default = stat.Mean(xs, nil)
		}
		fields = append(fields, field)
	}
	return fields
}
