package pipeline

import "errors"

var (
	// ErrSourceRequired is returned when a document source is not provided.
	ErrSourceRequired = errors.New("document source required")

	// ErrStoreRequired is returned when a vector store is not provided.
	ErrStoreRequired = errors.New("vector store required")

	// ErrProviderRequired is returned when an embedding provider is not provided.
	ErrProviderRequired = errors.New("embedding provider required")

	// ErrDuplicateDocumentID is recorded for a file whose document id was
	// already claimed by another file of the same category in this run.
	ErrDuplicateDocumentID = errors.New("duplicate document id")
)
