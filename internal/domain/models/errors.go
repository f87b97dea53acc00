package models

import (
	"errors"
	"fmt"
)

// Failure taxonomy. Callers branch with errors.Is: an upstream outage is
// retried on the next scheduled tick, missing history is a warm-up condition,
// a storage fault is an internal error.
var (
	// ErrUpstreamUnavailable: the price source was unreachable or returned a
	// malformed payload. Never retried inline.
	ErrUpstreamUnavailable = errors.New("price source unavailable")

	// ErrInsufficientData: not enough feature-complete (and, for training,
	// target-complete) rows yet.
	ErrInsufficientData = errors.New("insufficient history")

	// ErrArtifactMissing: no persisted model artifact. Handled by one
	// automatic retrain-and-retry before surfacing.
	ErrArtifactMissing = errors.New("model artifact missing")

	// ErrNoData: the history table is empty.
	ErrNoData = errors.New("no history data")
)

// StorageError wraps a transactional failure against the history or
// prediction store. Prior state is guaranteed intact by the stores.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err with the failed operation name.
func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
