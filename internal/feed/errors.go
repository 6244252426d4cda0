package feed

import "errors"

var (
	// ErrTransientSource marks failures worth retrying with backoff, such as
	// network errors and rate limits.
	ErrTransientSource = errors.New("transient source failure")

	// ErrMalformedRecord marks a single unparseable record. It is skipped and
	// counted, never propagated past the adapter.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrSourceUnavailable marks a source category that exhausted retries.
	// The run continues with degraded coverage.
	ErrSourceUnavailable = errors.New("source unavailable")
)
