package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeSetup         ErrorType = "setup"
	ErrorTypeScenario      ErrorType = "scenario"
	ErrorTypeMetric        ErrorType = "metric"
	ErrorTypeReport        ErrorType = "report"
	ErrorTypeInternal      ErrorType = "internal"
)

// AppError represents a harness error with context
type AppError struct {
	Type      ErrorType         `json:"type"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Cause     error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new harness error
func NewAppError(errorType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Details:   make(map[string]string),
		Timestamp: time.Now(),
	}
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Common error constructors

// NewConfigurationError reports invalid configuration (malformed stage list,
// threshold expression, missing required setting). Fatal at load time.
func NewConfigurationError(message string) *AppError {
	return NewAppError(ErrorTypeConfiguration, "CONFIGURATION_ERROR", message)
}

// NewSetupError reports a failed setup phase (e.g. the auth handshake against
// the target). Fatal; aborts the run before any load is generated.
func NewSetupError(message string) *AppError {
	return NewAppError(ErrorTypeSetup, "SETUP_FAILED", message)
}

// NewScenarioError reports a failed scenario iteration. Non-fatal; absorbed
// into metrics by the executor.
func NewScenarioError(scenarioName, message string) *AppError {
	return NewAppError(ErrorTypeScenario, "SCENARIO_ERROR", message).
		WithDetail("scenario", scenarioName)
}

// NewMetricNotFoundError reports a threshold rule referencing a metric or
// field absent from the final snapshot. Surfaces as a failed threshold.
func NewMetricNotFoundError(metric string) *AppError {
	return NewAppError(ErrorTypeMetric, "METRIC_NOT_FOUND", fmt.Sprintf("metric %q not found in snapshot", metric)).
		WithDetail("metric", metric)
}

// NewReportWriteError reports a failure writing a report artifact. Recovered
// by the stdout fallback; never changes the run's exit code.
func NewReportWriteError(artifact, message string) *AppError {
	return NewAppError(ErrorTypeReport, "REPORT_WRITE_ERROR", message).
		WithDetail("artifact", artifact)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, "INTERNAL_ERROR", message)
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == errorType
	}
	return false
}

// GetCode returns the error code if it's an AppError
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN_ERROR"
}

// GetType returns the error type if it's an AppError
func GetType(err error) ErrorType {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type
	}
	return ErrorTypeInternal
}
