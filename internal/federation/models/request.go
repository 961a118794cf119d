package models

import (
	"strings"
	"unicode/utf8"

	dErrors "trustbridge/pkg/domain-errors"
)

// MaxBindingMessageLength bounds the message shown on the authentication device.
const MaxBindingMessageLength = 64

// Request is a relying party's ask to authenticate a subject at their home
// provider. It is never mutated after NewRequest.
type Request struct {
	LoginHint      string
	HomeProviderID string
	Scope          string
	BindingMessage string
	ClientID       string
}

// NewRequest validates and normalizes a federation request. Scope defaults to
// "openid".
func NewRequest(loginHint, homeProviderID, scope, bindingMessage, clientID string) (Request, error) {
	r := Request{
		LoginHint:      strings.TrimSpace(loginHint),
		HomeProviderID: strings.TrimSpace(homeProviderID),
		Scope:          normalizeScope(scope),
		BindingMessage: bindingMessage,
		ClientID:       strings.TrimSpace(clientID),
	}
	if r.HomeProviderID == "" {
		return Request{}, dErrors.New(dErrors.CodeValidation, "home provider id is required")
	}
	if r.ClientID == "" {
		return Request{}, dErrors.New(dErrors.CodeValidation, "client id is required")
	}
	if utf8.RuneCountInString(r.BindingMessage) > MaxBindingMessageLength {
		return Request{}, dErrors.New(dErrors.CodeValidation, "binding message is too long")
	}
	return r, nil
}

func normalizeScope(scope string) string {
	fields := strings.Fields(scope)
	if len(fields) == 0 {
		return "openid"
	}
	return strings.Join(fields, " ")
}

// Scopes splits the scope string.
func (r Request) Scopes() []string {
	return strings.Fields(r.Scope)
}
