package pipeline

import (
	"fmt"
	"strings"

	"churn-insights/internal/model"
)

// validateHeader checks that every required column of the schema is present.
func validateHeader(schema model.Schema, headers []string) error {
	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		seen[h] = true
	}

	var missing []string
	for _, name := range schema.Required() {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// validateRecord enforces the row invariants that survive coercion.
func validateRecord(rec model.CustomerRecord) error {
	switch rec.ChurnStatus {
	case model.ChurnYes, model.ChurnNo:
	default:
		return fmt.Errorf("invalid %s %q: want %s or %s",
			model.ColChurnStatus, rec.ChurnStatus, model.ChurnYes, model.ChurnNo)
	}
	return nil
}
