package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable marks a best-effort status store write that could
	// not be delivered. Jobs still complete when this happens.
	ErrStoreUnavailable = errors.New("status store unavailable")

	// ErrSaturated is returned by Submit when the lifecycle's in-flight cap
	// has been reached.
	ErrSaturated = errors.New("too many in-flight jobs")
)

// ValidationError reports a field whose value failed type coercion or its
// declared constraint.
type ValidationError struct {
	Field      string
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %q: %s", e.Field, e.Constraint)
}

// MissingRequiredFieldError reports a required field absent from the request.
type MissingRequiredFieldError struct {
	Field string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("required field %q is missing", e.Field)
}

// CrossTaskParameterError reports a field that belongs to a different task
// type's exclusive set, e.g. num_frames on a text2img request.
type CrossTaskParameterError struct {
	Field string
	Task  TaskType
}

func (e *CrossTaskParameterError) Error() string {
	return fmt.Sprintf("parameter %q not allowed in %s requests", e.Field, e.Task)
}

// OutOfResourcesError wraps a device or memory exhaustion failure raised by
// the synthesis capability.
type OutOfResourcesError struct {
	Cause error
}

func (e *OutOfResourcesError) Error() string {
	return fmt.Sprintf("synthesis out of resources: %v", e.Cause)
}

func (e *OutOfResourcesError) Unwrap() error { return e.Cause }

// SynthesisError wraps any other generation failure.
type SynthesisError struct {
	Stage string
	Cause error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed in %s: %v", e.Stage, e.Cause)
}

func (e *SynthesisError) Unwrap() error { return e.Cause }

// PersistenceError wraps a storage failure that could not be absorbed by the
// inline fallback encoding.
type PersistenceError struct {
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed: %v", e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

// ErrorKind names an error's taxonomy slot for status store records.
func ErrorKind(err error) string {
	var (
		validation *ValidationError
		missing    *MissingRequiredFieldError
		crossTask  *CrossTaskParameterError
		oom        *OutOfResourcesError
		synthesis  *SynthesisError
		persist    *PersistenceError
	)
	switch {
	case errors.As(err, &oom):
		return "OutOfResourcesError"
	case errors.As(err, &synthesis):
		return "SynthesisError"
	case errors.As(err, &persist):
		return "PersistenceError"
	case errors.As(err, &crossTask):
		return "CrossTaskParameterError"
	case errors.As(err, &missing):
		return "MissingRequiredFieldError"
	case errors.As(err, &validation):
		return "ValidationError"
	default:
		return "Error"
	}
}
