package core

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is matched by every MissingFieldError.
	ErrMissingField = errors.New("required upstream field is missing")

	// ErrExternalCall is matched by every ExternalError.
	ErrExternalCall = errors.New("external call failed")

	// ErrFieldRegression is returned when a stage unsets a field an earlier stage populated.
	ErrFieldRegression = errors.New("stage removed a previously populated field")

	// ErrInvalidDetailLevel is returned for an unknown preference value.
	ErrInvalidDetailLevel = errors.New("invalid detail level")
)

// MissingFieldError reports a stage that required a key no prior stage set.
type MissingFieldError struct {
	Stage string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("stage %s: required field %q is missing", e.Stage, e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// Missing is shorthand for constructing a MissingFieldError.
func Missing(stage, field string) error {
	return &MissingFieldError{Stage: stage, Field: field}
}

// ExternalError wraps a failing call to a collaborator (search, sql, llm, macro).
type ExternalError struct {
	Service string
	Op      string
	Err     error
}

func (e *ExternalError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s call failed: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s call failed (%s): %v", e.Service, e.Op, e.Err)
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

func (e *ExternalError) Is(target error) bool {
	return target == ErrExternalCall
}

// External wraps err as an ExternalError; a nil err stays nil.
func External(service, op string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalError{Service: service, Op: op, Err: err}
}
