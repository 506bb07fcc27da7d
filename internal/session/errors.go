package session

import (
	"errors"
	"fmt"
)

// Domain error kinds. These indicate a local view that went stale against
// the authoritative store (a race with the partner device or a duplicate
// submit), not infrastructure failures.
var (
	ErrNotYourTurn      = errors.New("not your turn")
	ErrAlreadyAnswered  = errors.New("already answered")
	ErrWrongAnswerCount = errors.New("wrong answer count")
	ErrNotFound         = errors.New("match not found")
	ErrCompleted        = errors.New("match already completed")
	ErrInvalidMove      = errors.New("move not valid for current chain")
)

// TransientError marks a store/network failure that is safe to retry.
// Poll ticks swallow these; user-initiated calls surface them.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient store error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. Returns nil for nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is a retryable store failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsStale reports whether err indicates the caller acted on an outdated
// view of the match and should re-fetch before retrying.
func IsStale(err error) bool {
	return errors.Is(err, ErrNotYourTurn) ||
		errors.Is(err, ErrAlreadyAnswered) ||
		errors.Is(err, ErrWrongAnswerCount) ||
		errors.Is(err, ErrCompleted) ||
		errors.Is(err, ErrInvalidMove)
}
