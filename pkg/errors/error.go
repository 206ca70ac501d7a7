package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType defines distinct categories for errors raised while slicing a video.
type ErrorType string

const (
	// ValidationError represents invalid input parameters (missing paths, segment length out of range).
	ValidationError ErrorType = "validation_error"
	// ProbeError represents a failure to obtain a usable duration from the encoder.
	ProbeError ErrorType = "probe_error"
	// ProcessError represents an encoder invocation that exited with a failure while cutting a segment.
	ProcessError ErrorType = "process_error"
	// IOError represents file system failures such as an output folder that cannot be created.
	IOError ErrorType = "io_error"
	// DownloadError represents failures fetching a remote input before slicing.
	DownloadError ErrorType = "download_error"
	// SystemError represents environment problems, e.g. the encoder binary is missing.
	SystemError ErrorType = "system_error"
	// CancelledError marks a run stopped on user request. It is a terminal state, not a failure.
	CancelledError ErrorType = "cancelled"
)

// StructuredError represents a detailed error originating from a slicing run.
// It includes a type, message, optional details, timestamp, and a specific error code.
type StructuredError struct {
	// Type categorizes the error (e.g., ProbeError, ProcessError).
	Type ErrorType `json:"type"`
	// Message provides a concise, human-readable description of the error.
	Message string `json:"message"`
	// Details offers additional context or the underlying error message, if available.
	Details string `json:"details,omitempty"`
	// Timestamp marks when the error occurred in RFC3339 format.
	Timestamp string `json:"timestamp"`
	// Code identifies the failure site; see codes.go.
	Code int `json:"code"`

	cause error
}

// Error implements the standard `error` interface for StructuredError.
func (e *StructuredError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("[%s] %s", e.Type, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Message, e.Details)
}

// Unwrap returns the error passed to Wrap, if any.
func (e *StructuredError) Unwrap() error {
	return e.cause
}

// UserMessage returns the sentence shown to the user for this error:
// the standardized message for its code followed by the details.
func (e *StructuredError) UserMessage() string {
	msg := GetErrorMessage(e.Code)
	if msg == unknownMessage {
		msg = e.Message
	}
	if e.Details != "" {
		return fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	return msg
}

// JSON returns the StructuredError serialized as a JSON string.
func (e *StructuredError) JSON() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// New creates a new StructuredError instance stamped with the current time.
func New(errorType ErrorType, message, details string, code int) *StructuredError {
	return &StructuredError{
		Type:      errorType,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().Format(time.RFC3339),
		Code:      code,
	}
}

// Wrap creates a new StructuredError, using the message from err as Details.
// If err is nil, Details will be empty.
func Wrap(err error, errorType ErrorType, message string, code int) *StructuredError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	e := New(errorType, message, details, code)
	e.cause = err
	return e
}

// As reports whether err is (or wraps) a StructuredError and returns it.
func As(err error) (*StructuredError, bool) {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsType reports whether err is a StructuredError of the given type.
func IsType(err error, t ErrorType) bool {
	se, ok := As(err)
	return ok && se.Type == t
}

// IsCancelled reports whether err marks a run cancelled by the user.
func IsCancelled(err error) bool {
	return IsType(err, CancelledError)
}
