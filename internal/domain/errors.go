package domain

import "errors"

// Pipeline errors. Callers match them with errors.Is; adapters wrap them
// with context using fmt.Errorf("...: %w", err).
var (
	// ErrInvalidConfig indicates bad chunking, retrieval or assembly parameters.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrEmptyInput indicates an empty document or an empty question.
	ErrEmptyInput = errors.New("empty input")

	// ErrUnsupportedType indicates a document format with no extractor.
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrMalformedDocument indicates content that does not match its declared type.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrDuplicateDocument indicates the same content was already ingested.
	ErrDuplicateDocument = errors.New("document already ingested")

	// ErrNotFound indicates a requested document or session does not exist.
	ErrNotFound = errors.New("not found")

	// Index integrity errors. Fatal for the index instance.

	// ErrDimensionMismatch indicates a vector whose length disagrees with the index.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrCorruptIndex indicates the persisted file pair is inconsistent.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrEmptyIndex indicates there is nothing to search yet.
	ErrEmptyIndex = errors.New("index is empty")

	// External service errors. Retried with backoff before being surfaced.

	// ErrEmbeddingUnavailable indicates the embedding service could not be reached.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrEmbeddingTimeout indicates an embedding call exceeded its deadline.
	ErrEmbeddingTimeout = errors.New("embedding service timeout")

	// ErrGenerationUnavailable indicates the generative model could not be reached.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrGenerationTimeout indicates a generation call exceeded its deadline.
	ErrGenerationTimeout = errors.New("generation service timeout")
)

// IsTransient reports whether err is an external service failure that the
// caller may retry later.
func IsTransient(err error) bool {
	return errors.Is(err, ErrEmbeddingUnavailable) ||
		errors.Is(err, ErrEmbeddingTimeout) ||
		errors.Is(err, ErrGenerationUnavailable) ||
		errors.Is(err, ErrGenerationTimeout)
}
