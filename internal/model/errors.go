package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies cleaning failures.
type ErrorKind string

const (
	// ErrConfiguration covers unknown columns and invalid strategies or
	// thresholds. The caller can correct these.
	ErrConfiguration ErrorKind = "configuration"
	// ErrUnsupportedType is a numeric strategy on a non-numeric column.
	ErrUnsupportedType ErrorKind = "unsupported_type"
	// ErrInsufficientData means a statistic is undefined (e.g. all-null column).
	ErrInsufficientData ErrorKind = "insufficient_data"
	// ErrInternalInvariant indicates a bug, such as a row-count mismatch.
	ErrInternalInvariant ErrorKind = "internal_invariant"
)

// CleaningError is the error type returned by every resolver and by config
// validation.
type CleaningError struct {
	Kind     ErrorKind
	Column   string
	Strategy string
	Err      error
}

func (e *CleaningError) Error() string {
	msg := string(e.Kind)
	if e.Column != "" {
		msg += fmt.Sprintf(" (column %q", e.Column)
		if e.Strategy != "" {
			msg += fmt.Sprintf(", strategy %q", e.Strategy)
		}
		msg += ")"
	} else if e.Strategy != "" {
		msg += fmt.Sprintf(" (strategy %q)", e.Strategy)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CleaningError) Unwrap() error {
	return e.Err
}

// UserActionable reports whether the caller can fix the problem.
func (e *CleaningError) UserActionable() bool {
	return e.Kind != ErrInternalInvariant
}

func newCleaningError(kind ErrorKind, column, strategy, format string, args ...any) *CleaningError {
	return &CleaningError{
		Kind:     kind,
		Column:   column,
		Strategy: strategy,
		Err:      fmt.Errorf(format, args...),
	}
}

// ConfigError builds an ErrConfiguration error.
func ConfigError(column, strategy, format string, args ...any) *CleaningError {
	return newCleaningError(ErrConfiguration, column, strategy, format, args...)
}

// UnsupportedTypeError builds an ErrUnsupportedType error.
func UnsupportedTypeError(column, strategy, format string, args ...any) *CleaningError {
	return newCleaningError(ErrUnsupportedType, column, strategy, format, args...)
}

// InsufficientDataError builds an ErrInsufficientData error.
func InsufficientDataError(column, strategy, format string, args ...any) *CleaningError {
	return newCleaningError(ErrInsufficientData, column, strategy, format, args...)
}

// InvariantError builds an ErrInternalInvariant error.
func InvariantError(format string, args ...any) *CleaningError {
	return newCleaningError(ErrInternalInvariant, "", "", format, args...)
}

// IsKind reports whether err (or any error it wraps) is a CleaningError of kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *CleaningError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first CleaningError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var ce *CleaningError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}
