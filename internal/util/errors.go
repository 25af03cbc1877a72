package util

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aryankumar/bandmean/internal/collective"
	"github.com/aryankumar/bandmean/internal/raster"
)

// Common error types for the bandmean CLI
var (
	// ErrInvalidConfig indicates a configuration error
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidDirectory indicates the input path is not a scannable directory
	ErrInvalidDirectory = errors.New("invalid input directory")

	// ErrUsage indicates the command line is malformed
	ErrUsage = errors.New("usage error")
)

// FileError wraps an error with the raster file it concerns
type FileError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("file %q: %v", e.Path, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/As compatibility
func (e *FileError) Unwrap() error {
	return e.Err
}

// WrapFileError wraps an error with file context
func WrapFileError(path string, err error) error {
	if err == nil {
		return nil
	}
	return &FileError{Path: path, Err: err}
}

// MultiError aggregates multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:", len(m.Errors)))
	for i, err := range m.Errors {
		if i < 10 { // Limit to first 10 errors in the message
			sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
		} else if i == 10 {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more errors", len(m.Errors)-10))
			break
		}
	}
	return sb.String()
}

// Unwrap returns the errors for errors.Is/As compatibility
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the multi-error
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// ErrorOrNil returns nil if no errors were added, otherwise returns the MultiError
func (m *MultiError) ErrorOrNil() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	if v.Value != nil {
		return fmt.Sprintf("validation failed for field %q (value: %v): %s", v.Field, v.Value, v.Message)
	}
	return fmt.Sprintf("validation failed for field %q: %s", v.Field, v.Message)
}

// Unwrap marks every validation failure as ErrInvalidConfig
func (v *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsUsageError reports whether err should print usage and exit with status 1
func IsUsageError(err error) bool {
	return errors.Is(err, ErrUsage) || errors.Is(err, ErrInvalidDirectory)
}

// IsFatalGroupError reports whether err tore the worker group down
func IsFatalGroupError(err error) bool {
	return errors.Is(err, collective.ErrCollectiveMismatch) || errors.Is(err, collective.ErrAborted)
}

// FriendlyError converts technical errors to user-friendly messages
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidDirectory):
		return "The provided path is not a valid directory. Pass a directory containing raster files."
	case errors.Is(err, ErrInvalidConfig):
		return "Invalid configuration. Please check your config file and command-line flags: " + err.Error()
	case errors.Is(err, collective.ErrCollectiveMismatch):
		return "Workers diverged in a collective operation and the run was terminated: " + err.Error()
	case errors.Is(err, context.Canceled):
		return "Operation was cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "Operation timed out. Increase the timeout value with --timeout flag."
	case IsFatalGroupError(err):
		return "A worker failed and the run was terminated: " + err.Error()
	case errors.Is(err, raster.ErrOpen):
		return "Failed to open raster file: " + err.Error()
	case errors.Is(err, raster.ErrRead):
		return "Failed to read raster band: " + err.Error()
	default:
		return err.Error()
	}
}
