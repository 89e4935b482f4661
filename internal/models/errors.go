package models

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the category of a load-time validation error. All of
// these are fatal: they are detected before any task executes and abort the
// run, because they indicate an authoring defect in the profile rather than a
// runtime condition.
type ErrorKind string

const (
	// ErrMalformedProfile means the document deviates structurally from the
	// profile shape (wrong top-level type, tasks not a sequence, ...).
	ErrMalformedProfile ErrorKind = "malformed_profile"

	// ErrMissingFamily means a task entry names neither a family nor an
	// algorithm.
	ErrMissingFamily ErrorKind = "missing_family"

	// ErrUnknownFamily means a task names a family absent from the registry.
	ErrUnknownFamily ErrorKind = "unknown_family"

	// ErrUnknownParameter means a supplied parameter is not declared by the
	// family's schema.
	ErrUnknownParameter ErrorKind = "unknown_parameter"

	// ErrInvalidParameterValue means a merged parameter value violates its
	// declared domain, or a timeout is negative.
	ErrInvalidParameterValue ErrorKind = "invalid_parameter_value"
)

// ValidationError is a fatal profile authoring error. TaskIndex is -1 when the
// error is not tied to a particular task entry.
type ValidationError struct {
	Kind      ErrorKind
	TaskIndex int
	Family    string
	Param     string
	Detail    string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	if e.TaskIndex >= 0 {
		msg = fmt.Sprintf("task %d: %s", e.TaskIndex, msg)
	}
	if e.Family != "" {
		msg += fmt.Sprintf(" (family %q", e.Family)
		if e.Param != "" {
			msg += fmt.Sprintf(", parameter %q", e.Param)
		}
		msg += ")"
	} else if e.Param != "" {
		msg += fmt.Sprintf(" (parameter %q)", e.Param)
	}
	return msg
}

// IsValidation reports whether err is a ValidationError of the given kind.
func IsValidation(err error, kind ErrorKind) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Kind == kind
}
