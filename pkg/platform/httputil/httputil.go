// Package httputil writes JSON responses and OAuth-style error envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "trustbridge/pkg/domain-errors"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeValidation:         http.StatusBadRequest,
	dErrors.CodeBadRequest:         http.StatusBadRequest,
	dErrors.CodeInvalidInput:       http.StatusBadRequest,
	dErrors.CodeInvalidRequest:     http.StatusBadRequest,
	dErrors.CodeExpired:            http.StatusBadRequest,
	dErrors.CodeSlowDown:           http.StatusBadRequest,
	dErrors.CodeUnauthorized:       http.StatusUnauthorized,
	dErrors.CodeBadSignature:       http.StatusUnauthorized,
	dErrors.CodeTokenExpired:       http.StatusUnauthorized,
	dErrors.CodeIssuerMismatch:     http.StatusUnauthorized,
	dErrors.CodeAudienceMismatch:   http.StatusUnauthorized,
	dErrors.CodeForbidden:          http.StatusForbidden,
	dErrors.CodeUntrustedProvider:  http.StatusForbidden,
	dErrors.CodeTrustPathNotFound:  http.StatusForbidden,
	dErrors.CodeAccessDenied:       http.StatusForbidden,
	dErrors.CodeNotFound:           http.StatusNotFound,
	dErrors.CodeConflict:           http.StatusConflict,
	dErrors.CodeTokenExchange:      http.StatusBadGateway,
	dErrors.CodeDelivery:           http.StatusServiceUnavailable,
	dErrors.CodeTimeout:            http.StatusGatewayTimeout,
	dErrors.CodeConfiguration:      http.StatusInternalServerError,
	dErrors.CodeInvariantViolation: http.StatusInternalServerError,
	dErrors.CodeInternal:           http.StatusInternalServerError,
}

// StatusFor maps a domain error code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteError writes err as an error envelope. Descriptions of server-side
// failures are never exposed.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.GetCode(err)
	status := StatusFor(code)
	resp := ErrorResponse{Error: string(code)}
	if status < http.StatusInternalServerError {
		if de, ok := asDomain(err); ok {
			resp.ErrorDescription = de.Message
		}
	}
	WriteJSON(w, status, resp)
}

// WriteOAuthError writes a protocol error whose name is fixed by the OAuth/CIBA
// token endpoint (authorization_pending, slow_down, ...).
func WriteOAuthError(w http.ResponseWriter, status int, name, description string) {
	WriteJSON(w, status, ErrorResponse{Error: name, ErrorDescription: description})
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}

func asDomain(err error) (*dErrors.Error, bool) {
	var de *dErrors.Error
	ok := errors.As(err, &de)
	return de, ok
}
