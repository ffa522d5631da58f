package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed     = fmt.Errorf("authentication failed")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")
	ErrTokenNotFound  = fmt.Errorf("token record not found")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrNoPlayableTracks   = fmt.Errorf("no playable tracks in queue")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

// Error codes carried by [CodedError]. Callers branch on the code, never
// on provider-specific status text.
const (
	CodeTokenRevoked      = "TOKEN_REVOKED"
	CodeNoActiveDevice    = "NO_ACTIVE_DEVICE"
	CodeValidation        = "VALIDATION"
	CodeTransient         = "TRANSIENT"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

// CodedError is the normalized failure shape surfaced by the playback
// adapter and the token layer: a human-readable message plus a stable code.
type CodedError struct {
	Code           string
	Message        string
	RequiresReauth bool
	Err            error
}

func (e *CodedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (e *CodedError) Unwrap() error {
	return e.Err
}

// NewCodedError builds a [CodedError] wrapping cause (which may be nil).
func NewCodedError(code, message string, cause error) *CodedError {
	return &CodedError{Code: code, Message: message, Err: cause}
}

// ErrorCode extracts the taxonomy code from err, or CodeTransient when the
// error carries no code.
func ErrorCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeTransient
}

// IsTokenRevoked reports whether err is the terminal revoked-credential failure.
func IsTokenRevoked(err error) bool {
	return ErrorCode(err) == CodeTokenRevoked
}

// RequiresReauth reports whether err carries the re-authentication flag set
// after the single automatic refresh attempt is exhausted.
func RequiresReauth(err error) bool {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.RequiresReauth
	}
	return false
}
