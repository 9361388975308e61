package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnknownCard         = errors.New("unknown card")
	ErrInsufficientHolding = errors.New("insufficient holding")
	ErrStorageUnavailable  = errors.New("storage unavailable")
)

// ValidationError rejects a request before any state is read.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

type InsufficientHoldingError struct {
	Account string
	CardID  string
	Have    int
	Want    int
}

func (e *InsufficientHoldingError) Error() string {
	return fmt.Sprintf("account %s holds %d of %s, needs %d", e.Account, e.Have, e.CardID, e.Want)
}

func (e *InsufficientHoldingError) Is(target error) bool {
	return target == ErrInsufficientHolding
}

// wrapStoreError passes domain errors through and marks everything else as a
// storage failure.
func wrapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInsufficientHolding) || errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

// result labels an error for metrics.
func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, ErrInsufficientHolding):
		return "insufficient"
	default:
		return "unavailable"
	}
}
