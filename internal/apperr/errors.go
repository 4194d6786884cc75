package apperr

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the backup engine and the upgrade workflow.
// Validation and not-found errors carry enough detail for the caller to act;
// I/O and codec errors are logged with context by the caller and surfaced to
// end users as a generic failure.

// ValidationError signals a violated precondition (bad input, wrong state,
// duplicate pending request).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NotFoundError signals that a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// IOError wraps an archive read/write failure.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

// SerializationError wraps a snapshot encode failure.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string { return fmt.Sprintf("serialize snapshot: %v", e.Err) }
func (e *SerializationError) Unwrap() error { return e.Err }

// DeserializationError wraps a snapshot decode failure, including an absent
// or unsupported version tag.
type DeserializationError struct {
	Reason string
	Err    error
}

func (e *DeserializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("deserialize snapshot: %s: %v", e.Reason, e.Err)
	}
	return "deserialize snapshot: " + e.Reason
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// DependencyError wraps a downstream collaborator failure (store, lock,
// object storage).
type DependencyError struct {
	Dep string
	Err error
}

func (e *DependencyError) Error() string { return fmt.Sprintf("%s: %v", e.Dep, e.Err) }
func (e *DependencyError) Unwrap() error { return e.Err }

func Validation(field, reason string) error { return &ValidationError{Field: field, Reason: reason} }
func NotFound(entity, id string) error      { return &NotFoundError{Entity: entity, ID: id} }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}
