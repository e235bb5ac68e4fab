package booking

import (
	"errors"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

var (
	// ErrInvalidDateRange is the same value as daterange.ErrInvalidRange so either matches with errors.Is.
	ErrInvalidDateRange       = daterange.ErrInvalidRange
	ErrDateRangeUnavailable   = errors.New("booking: requested dates overlap an existing booking")
	ErrBookingNotFound        = errors.New("booking: not found")
	ErrInvalidTransition      = errors.New("booking: invalid status transition")
	ErrUnauthorized           = errors.New("booking: actor is not allowed to perform this action")
	ErrConcurrentModification = errors.New("booking: booking was modified concurrently")
	ErrInvalidAdvance         = errors.New("booking: advance must be between zero and the total price")
	ErrGuestRequired          = errors.New("booking: guest id required")
	ErrReceiptRequired        = errors.New("booking: receipt reference required")
	ErrUnknownDecision        = errors.New("booking: decision must be confirm or reject")
)

// PersistenceError wraps a failure of a storage or messaging collaborator.
// Callers may retry the operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "booking: " + e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err unless it is nil or already carries a domain meaning.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) || isDomainError(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func isDomainError(err error) bool {
	for _, target := range []error{ErrBookingNotFound, ErrConcurrentModification, ErrDateRangeUnavailable, listings.ErrListingNotFound} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
