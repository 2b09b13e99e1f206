// Package errors provides structured error types and exit codes for testops.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess          = 0 // Success
	ExitRuntimeError     = 1 // Runtime error (upload failed, project failed, etc.)
	ExitConfigError      = 2 // Configuration error (invalid config, etc.)
	ExitEnvironmentError = 3 // Environment error (missing token, unreadable report, etc.)
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	KindNotFound
	KindValidation
	KindEnvironment
	KindAPI
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindNotFound:
		return "not-found"
	case KindValidation:
		return "validation"
	case KindEnvironment:
		return "environment"
	case KindAPI:
		return "api"
	default:
		return "runtime"
	}
}

// ReporterError is the base error type for testops.
type ReporterError struct {
	Kind      ErrorKind
	Message   string
	Project   string // Project code if applicable
	Operation string // Operation name if applicable (create run, upload results, ...)
	Cause     error  // Underlying error
}

func (e *ReporterError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		if msg == "" {
			msg = e.Cause.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Cause)
		}
	}
	if e.Project != "" && e.Operation != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Project, e.Operation, msg)
	}
	if e.Project != "" {
		return fmt.Sprintf("[%s] %s", e.Project, msg)
	}
	return msg
}

func (e *ReporterError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *ReporterError) ExitCode() int {
	switch e.Kind {
	case KindConfig, KindValidation:
		return ExitConfigError
	case KindEnvironment:
		return ExitEnvironmentError
	default:
		return ExitRuntimeError
	}
}

// New creates a new runtime error.
func New(message string) *ReporterError {
	return &ReporterError{
		Kind:    KindRuntime,
		Message: message,
	}
}

// Newf creates a new runtime error with formatting.
func Newf(format string, args ...interface{}) *ReporterError {
	return New(fmt.Sprintf(format, args...))
}

// Config creates a new configuration error.
func Config(message string) *ReporterError {
	return &ReporterError{
		Kind:    KindConfig,
		Message: message,
	}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...interface{}) *ReporterError {
	return Config(fmt.Sprintf(format, args...))
}

// Environment creates a new environment error.
func Environment(message string) *ReporterError {
	return &ReporterError{
		Kind:    KindEnvironment,
		Message: message,
	}
}

// Environmentf creates a new environment error with formatting.
func Environmentf(format string, args ...interface{}) *ReporterError {
	return Environment(fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) *ReporterError {
	return &ReporterError{
		Kind:    KindRuntime,
		Message: message,
		Cause:   err,
	}
}

// ProjectError creates an error for a specific project.
func ProjectError(project, operation, message string) *ReporterError {
	return &ReporterError{
		Kind:      KindRuntime,
		Project:   project,
		Operation: operation,
		Message:   message,
	}
}

// API wraps a failed API call made on behalf of a project.
func API(project, operation string, cause error) *ReporterError {
	return &ReporterError{
		Kind:      KindAPI,
		Project:   project,
		Operation: operation,
		Cause:     cause,
	}
}

// NotFound creates a not found error.
func NotFound(what, name string) *ReporterError {
	return &ReporterError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found: %s", what, name),
	}
}

// GetExitCode returns the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var re *ReporterError
	if stderrors.As(err, &re) {
		return re.ExitCode()
	}
	return ExitRuntimeError
}

// IsKind reports whether any ReporterError in err's chain has the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *ReporterError
	for err != nil {
		if !stderrors.As(err, &re) {
			return false
		}
		if re.Kind == kind {
			return true
		}
		err = re.Cause
	}
	return false
}
