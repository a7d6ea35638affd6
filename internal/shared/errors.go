package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credential")
	// ErrInvalidToken indicates a bearer token that failed verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrValidation indicates a malformed request payload.
	ErrValidation = errors.New("validation failed")
	// ErrServiceUnavailable indicates the data layer could not be reached.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrDenied is the base of every Denial.
	ErrDenied = errors.New("denied")
)

var (
	// ErrForbidden is returned when the access enforcer rejects an operation.
	ErrForbidden error = &Denial{Reason: "forbidden"}
	// ErrAlreadyExists is returned when signup targets a registered identifier.
	ErrAlreadyExists error = &Denial{Reason: "already exists"}
)

// Denial is a refusal that callers should surface without further detail.
type Denial struct {
	Reason string
}

func (d *Denial) Error() string {
	return "denied: " + d.Reason
}

// Is lets errors.Is(err, ErrDenied) match every Denial.
func (d *Denial) Is(target error) bool {
	return target == ErrDenied
}

// Unavailable wraps a data-layer failure so it classifies as ErrServiceUnavailable.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrServiceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
}

// Validation wraps a payload error so it classifies as ErrValidation.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// UserSafeMessage returns a message that can be shown to API callers.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return err.Error()
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidToken):
		return ErrInvalidCredentials.Error()
	case errors.Is(err, ErrAlreadyExists):
		return "already exists"
	case errors.Is(err, ErrDenied):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrServiceUnavailable):
		return "service unavailable, try again later"
	default:
		return "internal error"
	}
}
