// Package errors provides unified error handling with structured error codes.
// Codes map onto gRPC status codes for the health/control surface.
package errors

import (
	stderrors "errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code identifies an error kind.
type Code int

const (
	Unknown Code = iota
	Internal
	InvalidArgument
	Unavailable
	Timeout
	Cancelled

	// Capture
	DeviceNotFound
	ConfigurationError
	UnsupportedFormat
	StreamError
	AlreadyRecording
	EncodingError
	EmptyRecording

	// Session
	Busy

	// Collaborators
	TranscriptionFailed
	RateLimited
	UnknownAction
	CommandFailed
	TypingFailed

	// Config
	ConfigInvalid
)

var codeNames = map[Code]string{
	Unknown:             "UNKNOWN",
	Internal:            "INTERNAL",
	InvalidArgument:     "INVALID_ARGUMENT",
	Unavailable:         "UNAVAILABLE",
	Timeout:             "TIMEOUT",
	Cancelled:           "CANCELLED",
	DeviceNotFound:      "DEVICE_NOT_FOUND",
	ConfigurationError:  "CONFIGURATION_ERROR",
	UnsupportedFormat:   "UNSUPPORTED_FORMAT",
	StreamError:         "STREAM_ERROR",
	AlreadyRecording:    "ALREADY_RECORDING",
	EncodingError:       "ENCODING_ERROR",
	EmptyRecording:      "EMPTY_RECORDING",
	Busy:                "BUSY",
	TranscriptionFailed: "TRANSCRIPTION_FAILED",
	RateLimited:         "RATE_LIMITED",
	UnknownAction:       "UNKNOWN_ACTION",
	CommandFailed:       "COMMAND_FAILED",
	TypingFailed:        "TYPING_FAILED",
	ConfigInvalid:       "CONFIG_INVALID",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("CODE(%d)", int(c))
}

// grpcCodeMap maps error codes to gRPC status codes.
var grpcCodeMap = map[Code]codes.Code{
	Unknown:             codes.Unknown,
	Internal:            codes.Internal,
	InvalidArgument:     codes.InvalidArgument,
	Unavailable:         codes.Unavailable,
	Timeout:             codes.DeadlineExceeded,
	Cancelled:           codes.Canceled,
	DeviceNotFound:      codes.NotFound,
	ConfigurationError:  codes.FailedPrecondition,
	UnsupportedFormat:   codes.Unimplemented,
	StreamError:         codes.Internal,
	AlreadyRecording:    codes.AlreadyExists,
	EncodingError:       codes.Internal,
	EmptyRecording:      codes.InvalidArgument,
	Busy:                codes.Unavailable,
	TranscriptionFailed: codes.Internal,
	RateLimited:         codes.ResourceExhausted,
	UnknownAction:       codes.InvalidArgument,
	CommandFailed:       codes.Internal,
	TypingFailed:        codes.Internal,
	ConfigInvalid:       codes.InvalidArgument,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// GRPCStatus returns a gRPC status for the error.
func (e *AppError) GRPCStatus() *status.Status {
	return status.New(e.GRPCCode(), e.Error())
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// CodeOf returns the code of the first AppError in err's chain, or Unknown.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return Unknown
}

// IsCode checks if an error chain carries a specific error code.
func IsCode(err error, code Code) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case Unavailable, Timeout, RateLimited:
		return true
	default:
		return false
	}
}
