package models

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	dErrors "trustbridge/pkg/domain-errors"
)

// MaxBindingMessageLength bounds the binding message shown on the
// authentication device.
const MaxBindingMessageLength = 64

// authReqID doubles as a file name in the file queue, so path separators and
// leading dots are excluded.
var authReqIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// Request is one registered backchannel authentication attempt.
type Request struct {
	AuthReqID       string
	ClientID        string
	Scope           string
	LoginHint       string
	BindingMessage  string
	RequestedExpiry int // seconds, 0 means provider default
	CreatedAt       time.Time
}

// RequestParams are the caller-supplied fields of a Request.
type RequestParams struct {
	AuthReqID       string
	ClientID        string
	Scope           string
	LoginHint       string
	BindingMessage  string
	RequestedExpiry int
}

// NewRequest validates params and stamps the creation time.
func NewRequest(p RequestParams, now time.Time) (*Request, error) {
	if err := ValidateAuthReqID(p.AuthReqID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.ClientID) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "client id is required")
	}
	if utf8.RuneCountInString(p.BindingMessage) > MaxBindingMessageLength {
		return nil, dErrors.New(dErrors.CodeValidation, "binding message is too long")
	}
	if p.RequestedExpiry < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "requested expiry must not be negative")
	}
	return &Request{
		AuthReqID:       p.AuthReqID,
		ClientID:        p.ClientID,
		Scope:           p.Scope,
		LoginHint:       p.LoginHint,
		BindingMessage:  p.BindingMessage,
		RequestedExpiry: p.RequestedExpiry,
		CreatedAt:       now,
	}, nil
}

// ValidateAuthReqID checks the identifier charset and length.
func ValidateAuthReqID(id string) error {
	if !authReqIDPattern.MatchString(id) {
		return dErrors.New(dErrors.CodeValidation, "invalid auth_req_id")
	}
	return nil
}

// ExpiresAt is the deadline implied by RequestedExpiry; zero when unset.
func (r *Request) ExpiresAt() time.Time {
	if r.RequestedExpiry <= 0 {
		return time.Time{}
	}
	return r.CreatedAt.Add(time.Duration(r.RequestedExpiry) * time.Second)
}

// IsExpired reports whether the requested expiry has passed at now.
func (r *Request) IsExpired(now time.Time) bool {
	deadline := r.ExpiresAt()
	return !deadline.IsZero() && now.After(deadline)
}

// DeliveryMode is how a client learns that an attempt completed.
type DeliveryMode string

const (
	DeliveryModePoll DeliveryMode = "poll"
	DeliveryModePing DeliveryMode = "ping"
	DeliveryModePush DeliveryMode = "push"
)

func (m DeliveryMode) IsValid() bool {
	return m == DeliveryModePoll || m == DeliveryModePing || m == DeliveryModePush
}
