package domain

import "errors"

// Domain errors
var (
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrUpstreamUnavailable = errors.New("upstream source unavailable")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInternalError       = errors.New("internal server error")
)

// IsUnavailable checks if an error indicates the persistence layer is down.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
