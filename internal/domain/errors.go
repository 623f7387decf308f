package domain

import (
	"errors"
	"fmt"
	"strings"
)

type ValidationError struct {
	Message string
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError is returned when seats are held or confirmed by someone else.
type ConflictError struct {
	Message     string
	Unavailable []string
}

func NewSeatConflict(unavailable []string) *ConflictError {
	return &ConflictError{
		Message:     "seats not available: " + strings.Join(unavailable, ", "),
		Unavailable: unavailable,
	}
}

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct {
	Entity string
	Key    string
}

func NewNotFound(entity string, key any) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

type StateError struct {
	Entity string
	Status string
	Op     string
}

func NewStateError(entity, op string, status any) *StateError {
	return &StateError{Entity: entity, Status: fmt.Sprint(status), Op: op}
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s %s with status %s", e.Op, e.Entity, e.Status)
}

// IntegrityError is a uniqueness violation reported by the store.
type IntegrityError struct {
	Constraint string
	Err        error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation on %s", e.Constraint)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsState(err error) bool {
	var target *StateError
	return errors.As(err, &target)
}

func IsIntegrity(err error) bool {
	var target *IntegrityError
	return errors.As(err, &target)
}
