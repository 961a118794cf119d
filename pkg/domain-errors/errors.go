// Package domainerrors carries coded errors across service boundaries.
//
// Services return *Error values; transports translate the Code into a status
// and an OAuth-style error envelope. Infrastructure facts (not found, expired,
// ...) stay in pkg/platform/sentinel and are translated by the service layer.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	CodeInternal           Code = "internal_error"
	CodeInvariantViolation Code = "invariant_violation"
	CodeValidation         Code = "validation_error"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvalidRequest     Code = "invalid_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"

	// Federation trust failures.
	CodeUntrustedProvider Code = "untrusted_provider"
	CodeTrustPathNotFound Code = "trust_path_not_found"

	// Home provider token failures.
	CodeTokenExchange    Code = "token_exchange_error"
	CodeBadSignature     Code = "invalid_signature"
	CodeTokenExpired     Code = "token_expired"
	CodeIssuerMismatch   Code = "issuer_mismatch"
	CodeAudienceMismatch Code = "audience_mismatch"

	// Backchannel outcomes and backend failures.
	CodeAccessDenied  Code = "access_denied"
	CodeExpired       Code = "expired_token"
	CodeSlowDown      Code = "slow_down"
	CodeDelivery      Code = "delivery_error"
	CodeConfiguration Code = "configuration_error"
)

// Error is a coded domain error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a domain error with the same code and message.
// It lets tests compare against a freshly built error with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates a domain error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// GetCode returns the code of the outermost domain error in the chain,
// or CodeInternal when there is none.
func GetCode(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any domain error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is reports whether the outermost domain error in err carries code.
func Is(err error, code Code) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}

// IsTokenValidation reports whether err is any of the token validation failures.
func IsTokenValidation(err error) bool {
	switch GetCode(err) {
	case CodeBadSignature, CodeTokenExpired, CodeIssuerMismatch, CodeAudienceMismatch:
		return true
	}
	return false
}

// IsTrustFailure reports whether err rejects a provider for federation purposes.
func IsTrustFailure(err error) bool {
	code := GetCode(err)
	return code == CodeUntrustedProvider || code == CodeTrustPathNotFound
}

// Message returns the message of the outermost domain error in err, or
// err.Error() when the chain has none.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
