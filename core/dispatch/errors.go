package dispatch

import (
	"errors"
	"fmt"

	"github.com/medride/dispatch/core/ride"
)

// ErrValidation is returned when a request is rejected before any side
// effect because of missing or malformed fields.
var ErrValidation = errors.New("dispatch: invalid request")

// Sentinel errors surfaced from the ride store, re-exported so API callers
// only depend on this package.
var (
	ErrNotFound               = ride.ErrNotFound
	ErrConcurrentModification = ride.ErrConcurrentModification
	ErrRideExpired            = ride.ErrExpired
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
