package utils

import "errors"

var (
	// Terminal for the request; no ledger entry is created.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrStaleEvent       = errors.New("webhook event outside freshness window")
	ErrRateLimited      = errors.New("rate limit exceeded")

	// Not an error for the caller: the ledger insert lost the race and the
	// delivery short-circuits to a duplicate response.
	ErrDuplicateEvent = errors.New("event already processed")

	// Structurally malformed event; recorded as failed but never retried by
	// the dispatcher's backoff loop.
	ErrHandlerValidation = errors.New("handler validation failed")

	ErrRecordNotFound = errors.New("record not found")
	ErrNotReplayable  = errors.New("event is not replayable")
	ErrDatabaseError  = errors.New("database error")
	ErrInvalidPage    = errors.New("invalid page parameter")
)

// IsTerminal reports whether err must not consume dispatcher retry budget.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrHandlerValidation)
}
