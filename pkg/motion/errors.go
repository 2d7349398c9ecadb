package motion

import "errors"

var (
	// ErrInvalidPhase is returned for a phase that cannot be played.
	ErrInvalidPhase = errors.New("invalid phase")
	// ErrUnknownRoutine is returned by Lookup for a name not in the catalogue.
	ErrUnknownRoutine = errors.New("unknown routine")
)
