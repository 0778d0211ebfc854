package ai

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmptyEmbedding is returned when a backend answers without a vector.
	ErrEmptyEmbedding = errors.New("provider returned an empty embedding")
)
