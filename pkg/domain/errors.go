package domain

import "errors"

// Sentinel errors reported by the growth engine. None of them is fatal: callers
// inspect them with errors.Is and keep the simulation running.
var (
	// ErrGatingFailed reports that the environment does not satisfy the next stage's requirement.
	ErrGatingFailed = errors.New("growth conditions not met")
	// ErrBusy reports that another advance is already in flight.
	ErrBusy = errors.New("advance already in progress")
	// ErrAlreadyMature reports an advance attempted from the terminal stage.
	ErrAlreadyMature = errors.New("already mature")
	ErrUnknownField  = errors.New("unknown environment field")
	ErrInvalidValue  = errors.New("invalid environment value")
	// ErrPersistenceUnavailable wraps snapshot load and save failures.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)
