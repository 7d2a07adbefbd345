package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/lumenbank/backend/internal/database"
)

// ErrNotFound re-exports the store sentinel so callers can match
// lookups that found nothing without importing the database package.
var ErrNotFound = database.ErrNotFound

var (
	// ErrInvalidCredentials covers both an unknown username and a
	// wrong password; login never distinguishes the two.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountLocked is returned once failed logins reach the
	// lockout threshold and the user is deactivated.
	ErrAccountLocked = errors.New("account locked after too many failed login attempts")

	// ErrDuplicateUsername rejects registration under a taken name.
	ErrDuplicateUsername = errors.New("username already exists")
)

// ValidationError reports client input that failed a business rule.
// Handlers map it to a 400 response carrying the message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// asValidationError flattens validator tag failures into one readable
// message.
func asValidationError(err error) *ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Message: err.Error()}
	}
	msg := "Validation failed:"
	for i, fe := range verrs {
		if i > 0 {
			msg += ";"
		}
		msg += fmt.Sprintf(" %s fails %s", fe.Field(), fe.Tag())
	}
	return &ValidationError{Message: msg}
}
