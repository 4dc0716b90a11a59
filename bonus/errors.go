package bonus

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a malformed request, rejected before any store access.
	ErrValidation = errors.New("validation error")
	// ErrPersistence marks a store read or write failure.
	ErrPersistence = errors.New("persistence error")
	// ErrDuplicateClaim is returned by stores when (user, date) is already claimed.
	// The engine never surfaces it to callers.
	ErrDuplicateClaim = errors.New("daily claim already exists")
)

func validationErr(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
