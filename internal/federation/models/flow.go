package models

import (
	"fmt"
	"time"

	dErrors "trustbridge/pkg/domain-errors"
)

// FlowState is the stage a federation request has reached.
type FlowState string

const (
	FlowInitiated     FlowState = "INITIATED"
	FlowRedirected    FlowState = "REDIRECTED"
	FlowCIBARequested FlowState = "CIBA_REQUESTED"
	FlowExchanging    FlowState = "EXCHANGING"
	FlowValidating    FlowState = "VALIDATING"
	FlowReissued      FlowState = "REISSUED"
	FlowComplete      FlowState = "COMPLETE"
	FlowFailed        FlowState = "FAILED"
)

var flowTransitions = map[FlowState][]FlowState{
	FlowInitiated:     {FlowRedirected, FlowCIBARequested},
	FlowRedirected:    {FlowExchanging},
	FlowCIBARequested: {FlowExchanging},
	FlowExchanging:    {FlowValidating},
	FlowValidating:    {FlowReissued},
	FlowReissued:      {FlowComplete},
}

// IsTerminal reports whether no further transition is possible.
func (s FlowState) IsTerminal() bool {
	return s == FlowComplete || s == FlowFailed
}

// CanTransition reports whether from -> to is legal. FAILED is reachable from
// every non-terminal state.
func CanTransition(from, to FlowState) bool {
	if from.IsTerminal() {
		return false
	}
	if to == FlowFailed {
		return true
	}
	for _, next := range flowTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Mode is how the home provider authenticates the subject.
type Mode string

const (
	ModeRedirect Mode = "redirect"
	ModeCIBA     Mode = "ciba"
)

// Flow tracks one federation request through the broker.
type Flow struct {
	ID        string
	NetworkID string
	Request   Request
	Mode      Mode
	State     FlowState

	// Redirect flows.
	StateParam   string
	Nonce        string
	CodeVerifier string

	// CIBA flows. AuthReqID is the id handed to the relying party;
	// RemoteAuthReqID is the home provider's id for the same attempt. Local is
	// set when the hub terminates the flow itself.
	AuthReqID       string
	RemoteAuthReqID string
	Local           bool
	PollInterval    time.Duration

	TrustPath     []string
	FailureReason string
	CreatedAt     time.Time
	ExpiresAt     time.Time
	UpdatedAt     time.Time
}

// Transition moves the flow to the next stage.
func (f *Flow) Transition(to FlowState, at time.Time) error {
	if !CanTransition(f.State, to) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("illegal flow transition %s -> %s", f.State, to))
	}
	f.State = to
	f.UpdatedAt = at
	return nil
}

// Fail moves a non-terminal flow to FAILED. Terminal flows are left unchanged.
func (f *Flow) Fail(reason string, at time.Time) {
	if f.State.IsTerminal() {
		return
	}
	f.State = FlowFailed
	f.FailureReason = reason
	f.UpdatedAt = at
}

// IsExpired reports whether the flow outlived its TTL.
func (f *Flow) IsExpired(now time.Time) bool {
	return !f.ExpiresAt.IsZero() && now.After(f.ExpiresAt)
}
