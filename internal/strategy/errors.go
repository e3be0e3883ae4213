package strategy

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData means the series is shorter than the long window.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidParameter means a strategy or run parameter was rejected before computing anything.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// InsufficientDataError carries the required and available bar counts.
type InsufficientDataError struct {
	Need int
	Got  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("not enough data: need %d bars, got %d", e.Need, e.Got)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// InvalidParameter builds an error wrapping ErrInvalidParameter.
func InvalidParameter(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}
