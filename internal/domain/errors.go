package domain

import "errors"

var (
	// ErrNotIndexed means a document has no complete artifact pair.
	ErrNotIndexed = errors.New("document not indexed")

	// ErrMalformedSource means the source document could not be parsed.
	ErrMalformedSource = errors.New("malformed source document")

	// ErrServiceUnavailable means an external model service failed after
	// the allowed number of attempts.
	ErrServiceUnavailable = errors.New("service temporarily unavailable")

	// ErrInvariantViolation signals corrupted index state, such as
	// misaligned ids or mismatched vector dimensions.
	ErrInvariantViolation = errors.New("index invariant violated")
)
