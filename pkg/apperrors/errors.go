// Package apperrors provides structured application errors for the job engine.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for classification via errors.Is().
var (
	// ErrConnector indicates a connector could not be constructed from its
	// descriptor. Surfaces synchronously at submission time.
	ErrConnector = errors.New("connector error")

	// ErrConnection indicates a live connection could not be acquired.
	ErrConnection = errors.New("connection error")

	// ErrQuery indicates the driver reported an execution failure.
	ErrQuery = errors.New("query error")

	// ErrPersistence indicates an I/O failure while writing result artifacts.
	// Distinct from ErrQuery: the statement itself succeeded.
	ErrPersistence = errors.New("persistence error")

	// ErrNotReady indicates a result was accessed before the job finished.
	ErrNotReady = errors.New("job not ready")

	// ErrJobFailed indicates a result was accessed on a failed job.
	ErrJobFailed = errors.New("job failed")
)

// Error provides structured error with context.
type Error struct {
	Sentinel error  // Wrapped sentinel for errors.Is() classification
	Message  string // Human-readable message
	JobID    int64  // Job the error belongs to, 0 if none
	Op       string // Operation that failed (e.g., "sink.csv")
	Cause    error  // Underlying error
}

// Error returns the human-readable error message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the sentinel error for errors.Is() classification.
func (e *Error) Unwrap() error {
	return e.Sentinel
}

// Connector creates a connector construction error.
func Connector(message string) error {
	return &Error{
		Sentinel: ErrConnector,
		Message:  message,
	}
}

// Connection creates a connection acquisition error wrapping the driver cause.
func Connection(op string, cause error) error {
	return &Error{
		Sentinel: ErrConnection,
		Message:  fmt.Sprintf("%s: %v", op, cause),
		Op:       op,
		Cause:    cause,
	}
}

// Query creates an execution error carrying the driver message.
func Query(cause error) error {
	return &Error{
		Sentinel: ErrQuery,
		Message:  cause.Error(),
		Cause:    cause,
	}
}

// Persistence creates a result persistence error.
func Persistence(op string, cause error) error {
	return &Error{
		Sentinel: ErrPersistence,
		Message:  fmt.Sprintf("%s: %v", op, cause),
		Op:       op,
		Cause:    cause,
	}
}

// NotReady creates an error for accessing a result before completion.
func NotReady(jobID int64) error {
	return &Error{
		Sentinel: ErrNotReady,
		Message:  fmt.Sprintf("job %d is still running", jobID),
		JobID:    jobID,
	}
}

// JobFailed creates an error for accessing a result on a failed job.
// The recorded failure is preserved as the cause so its text stays visible.
func JobFailed(jobID int64, cause error) error {
	return &Error{
		Sentinel: ErrJobFailed,
		Message:  fmt.Sprintf("job %d failed: %v", jobID, cause),
		JobID:    jobID,
		Cause:    cause,
	}
}
