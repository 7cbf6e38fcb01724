// Package cerrors implements the typed error taxonomy shared across every
// domain package: a Category classifying which subsystem raised the error
// and a Severity driving how a CLI or REST boundary should react to it.
package cerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Category identifies which domain raised an error.
type Category string

const (
	CategoryConfig        Category = "Config"
	CategoryDimension     Category = "Dimension"
	CategoryUnit          Category = "Unit"
	CategoryRunner        Category = "Runner"
	CategoryImage         Category = "Image"
	CategoryDeploymentLog Category = "DeploymentLog"
	CategoryCli           Category = "Cli"
	CategoryApi           Category = "Api"
	CategoryValidation    Category = "Validation"
	CategoryExternal      Category = "External"
	CategoryCritical      Category = "Critical"
)

// Severity controls how a boundary (CLI/REST) reacts to an error.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Error is a typed, wrapped error carrying a Category and Severity.
// Critical severity always means the CLI/REST boundary should exit/abort;
// every other severity is returned to the caller as a plain error for the
// boundary to classify and log appropriately.
type Error struct {
	Category Category
	Severity Severity
	Message  string
	cause    error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s/%s] %s: %v", e.Category, e.Severity, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s/%s] %s", e.Category, e.Severity, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *Error) Unwrap() error { return e.cause }

// Cause returns the underlying error (github.com/pkg/errors-compatible).
func (e *Error) Cause() error { return e.cause }

// New builds an Error with no underlying cause.
func New(category Category, severity Severity, message string) *Error {
	return &Error{Category: category, Severity: severity, Message: message}
}

// Newf builds an Error with a formatted message and no underlying cause.
func Newf(category Category, severity Severity, format string, args ...interface{}) *Error {
	return &Error{Category: category, Severity: severity, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a category/severity to an existing error, preserving its
// stack trace via github.com/pkg/errors.
func Wrap(err error, category Category, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Category: category, Severity: severity, Message: message, cause: errors.Wrap(err, message)}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, category Category, severity Severity, format string, args ...interface{}) *Error {
	return Wrap(err, category, severity, fmt.Sprintf(format, args...))
}

// IsCritical reports whether err is (or wraps) a cerrors.Error of Critical
// severity. CLI/REST entrypoints use this to decide whether to abort the
// process after logging.
func IsCritical(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Severity == SeverityCritical
	}
	return false
}
