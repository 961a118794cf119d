package file

import (
	"time"

	"trustbridge/internal/backchannel/models"
)

// inboxRecord is the JSON layout of {root}/inbox/{authReqId}.json.
type inboxRecord struct {
	AuthReqID       string    `json:"authReqId"`
	ClientID        string    `json:"clientId"`
	Scope           string    `json:"scope"`
	LoginHint       string    `json:"loginHint"`
	BindingMessage  string    `json:"bindingMessage"`
	RequestedExpiry int       `json:"requestedExpiry"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toInboxRecord(r *models.Request) inboxRecord {
	return inboxRecord{
		AuthReqID:       r.AuthReqID,
		ClientID:        r.ClientID,
		Scope:           r.Scope,
		LoginHint:       r.LoginHint,
		BindingMessage:  r.BindingMessage,
		RequestedExpiry: r.RequestedExpiry,
		CreatedAt:       r.CreatedAt,
	}
}

func (r inboxRecord) toModel() *models.Request {
	return &models.Request{
		AuthReqID:       r.AuthReqID,
		ClientID:        r.ClientID,
		Scope:           r.Scope,
		LoginHint:       r.LoginHint,
		BindingMessage:  r.BindingMessage,
		RequestedExpiry: r.RequestedExpiry,
		CreatedAt:       r.CreatedAt,
	}
}

// Response is the JSON layout of {root}/outbox/{authReqId}.json, written by an
// approver once the user has decided.
type Response struct {
	AuthReqID        string `json:"authReqId"`
	Outcome          string `json:"outcome"`
	UserID           string `json:"userId,omitempty"`
	Scope            string `json:"scope,omitempty"`
	ErrorCode        string `json:"errorCode,omitempty"`
	ErrorDescription string `json:"errorDescription,omitempty"`
}

// toStatus maps a response onto a terminal snapshot. An unrecognised outcome is
// reported as ERROR rather than left pending.
func (r Response) toStatus(authReqID string, at time.Time) models.AuthStatus {
	status, ok := models.ParseOutcome(r.Outcome)
	if !ok {
		return models.AuthStatus{
			AuthReqID:        authReqID,
			Status:           models.StatusError,
			ErrorCode:        "unrecognized_outcome",
			ErrorDescription: "unrecognised outcome " + r.Outcome,
			UpdatedAt:        at,
		}
	}
	resolved, err := models.Pending(authReqID, at).ApplyResolution(models.Resolution{
		Status:           status,
		UserID:           r.UserID,
		Scope:            r.Scope,
		ErrorCode:        r.ErrorCode,
		ErrorDescription: r.ErrorDescription,
	}, at)
	if err != nil {
		return models.AuthStatus{
			AuthReqID:        authReqID,
			Status:           models.StatusError,
			ErrorCode:        "invalid_response",
			ErrorDescription: err.Error(),
			UpdatedAt:        at,
		}
	}
	return resolved
}
