package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Category is the normalized failure taxonomy for home provider calls.
type Category string

const (
	// CategoryTimeout indicates the home provider took too long to respond
	CategoryTimeout Category = "timeout"

	// CategoryOutage indicates the home provider is unreachable or failing
	CategoryOutage Category = "provider_outage"

	// CategoryRateLimited indicates the home provider throttled us
	CategoryRateLimited Category = "rate_limited"

	// CategoryBadData indicates a malformed or incomplete response
	CategoryBadData Category = "bad_data"

	// CategoryAuthentication indicates rejected client credentials or grant
	CategoryAuthentication Category = "authentication"

	// CategoryProtocol indicates an OAuth/CIBA protocol error response
	CategoryProtocol Category = "protocol"

	// CategoryInternal indicates an unexpected local failure
	CategoryInternal Category = "internal"
)

// Error wraps a home provider failure with a normalized category.
type Error struct {
	Category   Category
	ProviderID string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("home provider %s [%s]: %s: %v", e.ProviderID, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("home provider %s [%s]: %s", e.ProviderID, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError creates a normalized error. Timeouts, outages and rate limiting
// are retryable.
func NewError(category Category, providerID, message string, underlying error) *Error {
	retryable := category == CategoryTimeout ||
		category == CategoryOutage ||
		category == CategoryRateLimited

	return &Error{
		Category:   category,
		ProviderID: providerID,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// GetCategory extracts the category from an error.
func GetCategory(err error) Category {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return CategoryInternal
}

// classifyTransport normalizes a transport-level failure.
func classifyTransport(providerID, message string, err error) *Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(CategoryTimeout, providerID, message, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return NewError(CategoryTimeout, providerID, message, err)
	case errors.Is(err, context.Canceled):
		return NewError(CategoryInternal, providerID, message, err)
	default:
		return NewError(CategoryOutage, providerID, message, err)
	}
}

// classifyStatus normalizes an unsuccessful HTTP response.
func classifyStatus(providerID, message string, status int, err error) *Error {
	switch {
	case status == http.StatusTooManyRequests:
		return NewError(CategoryRateLimited, providerID, message, err)
	case status >= http.StatusInternalServerError:
		return NewError(CategoryOutage, providerID, message, err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewError(CategoryAuthentication, providerID, message, err)
	default:
		return NewError(CategoryProtocol, providerID, message, err)
	}
}
