package services

import (
	"errors"

	"github.com/datapeak/curator/internal/repository"
)

var (
	// ErrValidation covers malformed or missing required input. Surfaced
	// synchronously; no state is mutated.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState is returned for operations against a submission that
	// is not in the expected lifecycle state.
	ErrInvalidState = repository.ErrInvalidState

	ErrNotFound = repository.ErrNotFound

	// ErrLedger means the primary-ledger approval call failed. The whole
	// approval aborts and the submission stays PENDING for a manual retry.
	ErrLedger = errors.New("primary ledger approval failed")

	// ErrNoRelayAddress means the user has no registered secondary-ledger
	// address. Relay jobs fail explicitly instead of guessing a fallback
	// destination.
	ErrNoRelayAddress = errors.New("no secondary ledger address registered")
)
