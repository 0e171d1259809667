package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrDataNotFound: the source file is missing at every candidate path.
	ErrDataNotFound = errors.New("data not found")
	// ErrMissingColumn: a required structural column is absent from the header.
	ErrMissingColumn = errors.New("missing required column")
	// ErrSchemaMismatch: input is inconsistent with the declared or trained schema.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrUnknownCategory: a categorical value was not seen when the encoder was built.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrInsufficientData: too few rows or target classes to train.
	ErrInsufficientData = errors.New("insufficient data")
)

// UnknownCategoryError names the column and value that failed to encode.
// It matches both ErrUnknownCategory and ErrSchemaMismatch.
type UnknownCategoryError struct {
	Column string
	Value  string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q for column %s", e.Value, e.Column)
}

func (e *UnknownCategoryError) Is(target error) bool {
	return target == ErrUnknownCategory || target == ErrSchemaMismatch
}
