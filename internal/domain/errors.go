package domain

import (
	"errors"
	"fmt"
)

// Embedding stage.
var (
	// ErrProviderUnavailable signals an embedding backend failure that is not throttling.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	// ErrRateLimited signals that throttling persisted through every retry attempt.
	ErrRateLimited = errors.New("embedding provider rate limited")
	// ErrInvalidResponse signals a malformed embedding payload.
	ErrInvalidResponse = errors.New("invalid embedding response")
	// ErrDimensionMismatch signals a vector whose length differs from the configured dimensions.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrThrottled is returned by backends on a single "too many requests" reply.
	// The retry layer consumes it; callers outside the embedding stage never see it.
	ErrThrottled = errors.New("embedding provider throttled")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmptyText signals that there is nothing to embed.
	ErrEmptyText = errors.New("text is empty")
)

// Filter stage.
var (
	// ErrInvalidFilterSpec signals a structurally invalid filter payload.
	ErrInvalidFilterSpec = errors.New("invalid filter spec")
)

// Search stage.
var (
	// ErrSearchUnavailable signals a corpus store connectivity or pool failure.
	ErrSearchUnavailable = errors.New("search unavailable")
	// ErrInvalidLimit signals a non-positive result limit.
	ErrInvalidLimit = errors.New("limit must be positive")
)

// Text extraction (consumed by the HTTP layer and CLI).
var (
	// ErrUnsupportedType signals an upload format we cannot extract text from.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrExtractionFailed signals that a supported file could not be read.
	ErrExtractionFailed = errors.New("text extraction failed")
)

// Text generation (résumé rewrite and cover letter).
var (
	// ErrGenerationUnavailable signals a text model failure that is not throttling.
	ErrGenerationUnavailable = errors.New("text generation unavailable")
	// ErrGenerationThrottled signals that the text model refused for rate reasons.
	ErrGenerationThrottled = errors.New("text generation rate limited")
	// ErrMissingField signals a required request field that is absent or blank.
	ErrMissingField = errors.New("required field missing")
)

// MissingFieldError names the absent request field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, ErrMissingField.Error())
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// DimensionMismatchError carries both sides of a dimension check.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrDimensionMismatch.Error(), e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(expected, actual int) error {
	return &DimensionMismatchError{Expected: expected, Actual: actual}
}
