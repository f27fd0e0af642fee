package session

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeEmptyCredentials  = "EMPTY_CREDENTIALS"
	textCodeInvalidCredential = "INVALID_CREDENTIALS"
	textCodeConnectionError   = "IDENTITY_SERVICE_UNREACHABLE"
	textCodeInvalidTransition = "INVALID_SESSION_TRANSITION"
)

// ErrSessionNotFound is the error for an empty or unreadable store
var ErrSessionNotFound = errors.New("session not found")

// ErrUnableToDecodeToken is the error for tokens the codec cannot decode
var ErrUnableToDecodeToken = errors.New("unable to decode session token")

// ErrTokenExpired is returned by codecs that check the expiry claim
var ErrTokenExpired = errors.New("session token is expired")

// ErrLoginSuperseded is returned to a login attempt whose result arrived
// after a later attempt (or a logout) already won.
var ErrLoginSuperseded = errors.New("login attempt superseded")

// ErrEmptyCredentials is returned before any network call is made.
var ErrEmptyCredentials = goerrors.New("email and password are required", goerrors.CategoryValidation).
	WithTextCode(textCodeEmptyCredentials).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidTransition is returned when a requested session state change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid session state transition", goerrors.CategoryConflict).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeConflict)

// connectionErrMessage is the generic user-facing message for transport
// failures and unreadable error payloads.
const connectionErrMessage = "connection error, check your network and try again"

// NewAuthError wraps a server-rejected authentication in a structured error
// carrying the best-effort human readable message.
func NewAuthError(message string) *goerrors.Error {
	if message == "" {
		message = connectionErrMessage
	}
	return goerrors.New(message, goerrors.CategoryAuth).
		WithTextCode(textCodeInvalidCredential).
		WithCode(goerrors.CodeUnauthorized)
}

// NewConnectionError wraps transport failures with the generic connectivity message.
func NewConnectionError(err error) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, connectionErrMessage).
		WithTextCode(textCodeConnectionError).
		WithCode(goerrors.CodeInternal)
}

// UserMessage extracts the message a UI should show for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Message != "" {
		return richErr.Message
	}

	return err.Error()
}
