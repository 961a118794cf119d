package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events that prove who was authenticated
	// through which trust path. These are never sampled or dropped.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers rejected federation attempts and client
	// authentication failures.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	// These can be sampled.
	CategoryOperations EventCategory = "operations"
)

// AuditEvent names an audited action.
type AuditEvent string

const (
	// Federation flow events
	EventFederationCompleted AuditEvent = "federation_completed"
	EventFederationFailed    AuditEvent = "federation_failed"
	EventTokenReissued       AuditEvent = "token_reissued"
	EventUntrustedProvider   AuditEvent = "untrusted_provider"

	// Backchannel events
	EventCibaInitiated AuditEvent = "ciba_initiated"
	EventCibaResolved  AuditEvent = "ciba_resolved"

	// Relying party events
	EventClientAuthFailed AuditEvent = "client_auth_failed"

	// Trust network events
	EventNetworkRefreshed AuditEvent = "network_refreshed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventFederationCompleted: CategoryCompliance,
	EventTokenReissued:       CategoryCompliance,

	EventFederationFailed:  CategorySecurity,
	EventUntrustedProvider: CategorySecurity,
	EventClientAuthFailed:  CategorySecurity,

	EventCibaInitiated:    CategoryOperations,
	EventCibaResolved:     CategoryOperations,
	EventNetworkRefreshed: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID             string        `json:"id"`
	Category       EventCategory `json:"category"`
	Action         string        `json:"action"`
	Timestamp      time.Time     `json:"timestamp"`
	FlowID         string        `json:"flow_id,omitempty"`
	NetworkID      string        `json:"network_id,omitempty"`
	HomeProviderID string        `json:"home_provider_id,omitempty"`
	ClientID       string        `json:"client_id,omitempty"`
	Subject        string        `json:"subject,omitempty"`
	Decision       string        `json:"decision,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	TrustPath      []string      `json:"trust_path,omitempty"`
	HopCount       int           `json:"hop_count,omitempty"`
	RequestID      string        `json:"request_id,omitempty"`
}

// Sink accepts audit events for delivery. Sinks that cannot be read back
// (message brokers) implement only this.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store persists audit events and can list them back.
type Store interface {
	Sink
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
