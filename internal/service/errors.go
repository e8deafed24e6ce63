package service

import "errors"

var (
	// ErrDrawExists is returned when attempting to create a draw whose ID is taken
	ErrDrawExists = errors.New("draw already exists")

	// ErrDrawNotFound is returned when a draw cannot be found
	ErrDrawNotFound = errors.New("draw not found")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrRunAtInPast is returned when a new draw is scheduled before now in its timezone
	ErrRunAtInPast = errors.New("draw date must be in the future")

	// ErrInvalidPromoPeriods is matched by every *PromoPeriodsError
	ErrInvalidPromoPeriods = errors.New("invalid promotional periods")
)

// PromoPeriodsError carries the single reason a promo period set was rejected.
type PromoPeriodsError struct {
	Reason string
}

func (e *PromoPeriodsError) Error() string {
	return ErrInvalidPromoPeriods.Error() + ": " + e.Reason
}

// Is lets errors.Is(err, ErrInvalidPromoPeriods) match.
func (e *PromoPeriodsError) Is(target error) bool {
	return target == ErrInvalidPromoPeriods
}
