package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// PasswordMismatchMessage is the field error shown when the two password
// fields of the registration form differ.
const PasswordMismatchMessage = "The two password fields didn't match."

var (
	// ErrInvalidCredentials is returned on any login failure. It is
	// deliberately generic so callers cannot tell an unknown email from a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden is returned when an authenticated user acts on a
	// profile they do not own.
	ErrForbidden = errors.New("forbidden")
)

// ValidationErrors maps form field names to user-facing messages. It is
// recoverable: handlers re-render the form with these messages attached.
type ValidationErrors map[string]string

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
