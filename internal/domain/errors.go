package domain

import "errors"

// Common domain errors used across the pipeline.
var (
	// ErrValidation is returned when a record fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFormat is returned when data is not in the expected format.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrInvalidLevel is returned when a difficulty is not a CEFR level.
	ErrInvalidLevel = errors.New("invalid CEFR level")

	// ErrInvalidExerciseType is returned when an exercise type is not in the fixed set.
	ErrInvalidExerciseType = errors.New("invalid exercise type")

	// ErrInvalidContentType is returned for a content kind other than vocabulary or grammar.
	ErrInvalidContentType = errors.New("invalid content type")
)
