// Package apperr defines the failure taxonomy shared by the token client,
// the session controller, the exporter and the token intermediary.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable failure category. The credential codes double
// as the "code" field of the intermediary's JSON error bodies.
type Code string

const (
	CodeNoCredential             Code = "NO_API_KEY"
	CodeInvalidCredential        Code = "INVALID_API_KEY"
	CodeQuotaExceeded            Code = "QUOTA_EXCEEDED"
	CodeUpstream                 Code = "UPSTREAM_ERROR"
	CodeUnsupportedPlatform      Code = "UNSUPPORTED_PLATFORM"
	CodePermissionDenied         Code = "PERMISSION_DENIED"
	CodeCapability               Code = "CAPABILITY_ERROR"
	CodeExportSurfaceUnavailable Code = "EXPORT_SURFACE_UNAVAILABLE"
)

// Sentinels for errors.Is comparisons against a category.
var (
	ErrNoCredential             = &Error{Code: CodeNoCredential}
	ErrInvalidCredential        = &Error{Code: CodeInvalidCredential}
	ErrQuotaExceeded            = &Error{Code: CodeQuotaExceeded}
	ErrUpstream                 = &Error{Code: CodeUpstream}
	ErrUnsupportedPlatform      = &Error{Code: CodeUnsupportedPlatform}
	ErrPermissionDenied         = &Error{Code: CodePermissionDenied}
	ErrCapability               = &Error{Code: CodeCapability}
	ErrExportSurfaceUnavailable = &Error{Code: CodeExportSurfaceUnavailable}
)

// Error is a categorized failure.
type Error struct {
	Code    Code
	Message string
	// Status and Body carry the raw upstream response for UpstreamError.
	Status int
	Body   string
	Cause  error
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error that wraps cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Upstream creates an UpstreamError carrying the raw HTTP status and body.
func Upstream(status int, body string) *Error {
	return &Error{
		Code:    CodeUpstream,
		Message: fmt.Sprintf("upstream returned status %d", status),
		Status:  status,
		Body:    body,
	}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	} else {
		msg = string(e.Code) + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (cause: %v)", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the category of err. Uncategorized errors are reported as
// CodeCapability since they originate from the transcription engine.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeCapability
}
