package models

import (
	"strings"
	"time"

	dErrors "trustbridge/pkg/domain-errors"
)

// Status is the lifecycle state of one backchannel authentication attempt.
// PENDING is the only non-terminal state.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusDenied   Status = "DENIED"
	StatusExpired  Status = "EXPIRED"
	StatusError    Status = "ERROR"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDenied, StatusExpired, StatusError:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s.IsValid() && s != StatusPending
}

// ParseOutcome maps a resolution outcome ("approved", "DENIED", ...) to a terminal status.
func ParseOutcome(outcome string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(outcome)))
	if !s.IsTerminal() {
		return "", false
	}
	return s, true
}

// Outcome is the lowercase wire form of a terminal status.
func (s Status) Outcome() string {
	return strings.ToLower(string(s))
}

// AuthStatus is a point-in-time snapshot of an attempt.
type AuthStatus struct {
	AuthReqID        string
	Status           Status
	UserID           string
	Scope            string
	ErrorCode        string
	ErrorDescription string
	UpdatedAt        time.Time
}

// Pending returns the PENDING snapshot for authReqID. Providers also return it
// for ids they hold no record of.
func Pending(authReqID string, at time.Time) AuthStatus {
	return AuthStatus{AuthReqID: authReqID, Status: StatusPending, UpdatedAt: at}
}

// IsComplete reports whether the attempt reached a terminal state.
func (s AuthStatus) IsComplete() bool {
	return s.Status != StatusPending
}

// IsApproved reports whether the attempt was approved.
func (s AuthStatus) IsApproved() bool {
	return s.Status == StatusApproved
}

// Resolution is an external decision for a pending attempt.
type Resolution struct {
	Status           Status
	UserID           string
	Scope            string
	ErrorCode        string
	ErrorDescription string
}

// Validate checks that the resolution is terminal and self-consistent.
func (r Resolution) Validate() error {
	if !r.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeValidation, "resolution must be a terminal status")
	}
	if r.Status == StatusApproved && strings.TrimSpace(r.UserID) == "" {
		return dErrors.New(dErrors.CodeValidation, "approved resolution requires a user id")
	}
	return nil
}

// CanResolve reports whether the snapshot still accepts a decision.
func (s AuthStatus) CanResolve() bool {
	return s.Status == StatusPending
}

// ApplyResolution moves a PENDING snapshot to its terminal state. Terminal
// snapshots never change again.
func (s AuthStatus) ApplyResolution(r Resolution, at time.Time) (AuthStatus, error) {
	if !s.CanResolve() {
		return s, dErrors.New(dErrors.CodeConflict, "authentication request already resolved")
	}
	if err := r.Validate(); err != nil {
		return s, err
	}
	resolved := AuthStatus{
		AuthReqID:        s.AuthReqID,
		Status:           r.Status,
		Scope:            r.Scope,
		ErrorCode:        r.ErrorCode,
		ErrorDescription: r.ErrorDescription,
		UpdatedAt:        at,
	}
	if r.Status == StatusApproved {
		resolved.UserID = r.UserID
	}
	if resolved.ErrorCode == "" {
		resolved.ErrorCode = defaultErrorCode(r.Status)
	}
	return resolved, nil
}

func defaultErrorCode(s Status) string {
	switch s {
	case StatusDenied:
		return "access_denied"
	case StatusExpired:
		return "expired_token"
	case StatusError:
		return "server_error"
	}
	return ""
}
