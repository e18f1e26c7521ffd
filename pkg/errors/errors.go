package errors

import (
	"errors"
	"fmt"
)

// Standard errors
var (
	// ErrNotFound is returned when a requested record is not found
	ErrNotFound = errors.New("record not found")

	// ErrEmptyMemory is returned when add is called with empty or
	// whitespace-only text
	ErrEmptyMemory = errors.New("memory text is empty")

	// ErrMalformedStore is returned when the store file exists but is not
	// a JSON array of records
	ErrMalformedStore = errors.New("store file is not a JSON array")

	// ErrLockTimeout is returned when the store lock cannot be acquired
	// within the timeout
	ErrLockTimeout = errors.New("timed out waiting for store lock")

	// ErrInvalidCriteria is returned when purge is called with zero or
	// more than one selection criterion
	ErrInvalidCriteria = errors.New("purge requires exactly one criterion")

	// ErrShapingFailure is returned when the remote shaping collaborator
	// fails; callers fall back to the deterministic output
	ErrShapingFailure = errors.New("remote shaping failed")

	// ErrInvalidConfig is returned when configuration fails validation
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrLuaExecution is returned when there's an error executing a Lua script
	ErrLuaExecution = errors.New("lua script execution error")
)

// Wrap wraps an error with additional context
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience function that wraps errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target, and if so, sets
// target to that error value and returns true. Otherwise, it returns false.
// This is a convenience function that wraps errors.As
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
// This is a convenience function that wraps errors.New
func New(text string) error {
	return errors.New(text)
}
