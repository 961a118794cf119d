package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"trustbridge/internal/relyingparty"
	dErrors "trustbridge/pkg/domain-errors"
	"trustbridge/pkg/platform/audit"
	"trustbridge/pkg/platform/httputil"
	"trustbridge/pkg/requestcontext"
)

// ClientAuthenticator verifies relying-party credentials.
type ClientAuthenticator interface {
	Authenticate(ctx context.Context, clientID, secret string) (relyingparty.Client, error)
}

// AuditEmitter records rejected client authentications. May be nil.
type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// RequireClient authenticates the relying party with HTTP basic credentials or
// client_id/client_secret form fields, and stores the client id in the context.
func RequireClient(auth ClientAuthenticator, auditor AuditEmitter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			clientID, secret, ok := r.BasicAuth()
			if !ok {
				clientID = r.PostFormValue("client_id")
				secret = r.PostFormValue("client_secret")
			}
			client, err := auth.Authenticate(ctx, clientID, secret)
			if err == nil {
				next.ServeHTTP(w, r.WithContext(requestcontext.WithClientID(ctx, client.ID)))
				return
			}

			logger.WarnContext(ctx, "client authentication failed",
				"request_id", GetRequestID(ctx),
				"client_id", clientID,
			)
			if !dErrors.Is(err, dErrors.CodeUnauthorized) {
				httputil.WriteError(w, err)
				return
			}
			if auditor != nil {
				if aerr := auditor.Emit(ctx, audit.Event{
					Action:   string(audit.EventClientAuthFailed),
					ClientID: clientID,
					Decision: "rejected",
					Reason:   "invalid_client",
				}); aerr != nil {
					logger.WarnContext(ctx, "audit event not recorded", "action", audit.EventClientAuthFailed, "error", aerr)
				}
			}
			w.Header().Set("WWW-Authenticate", `Basic realm="trustbridge"`)
			httputil.WriteOAuthError(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		})
	}
}
