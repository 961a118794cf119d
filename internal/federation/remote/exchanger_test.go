package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fedmodels "trustbridge/internal/federation/models"
	trustmodels "trustbridge/internal/trust/models"
)

var brokerCreds = ClientCredentials{
	ClientID:     "trustbridge",
	ClientSecret: "broker-secret",
	RedirectURL:  "https://hub.example/federation/callback",
}

func tokenEndpoint(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, secret, ok := r.BasicAuth()
		if !ok || id != brokerCreds.ClientID || secret != brokerCreds.ClientSecret {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthCodeURL(t *testing.T) {
	e := NewOAuth2Exchanger(brokerCreds, nil)
	provider := trustmodels.ProviderNode{ID: "idp-a", AuthorizationEndpoint: "https://idp-a.example/authorize"}
	req, err := fedmodels.NewRequest("alice@idp-a", "idp-a", "openid profile", "", "rp-clinic")
	require.NoError(t, err)

	raw := e.AuthCodeURL(provider, req, "state-1", "nonce-1", "verifier-verifier-verifier-verifier-verifier")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "idp-a.example", u.Host)
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "nonce-1", q.Get("nonce"))
	assert.Equal(t, "alice@idp-a", q.Get("login_hint"))
	assert.Equal(t, "openid profile", q.Get("scope"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
}

func TestExchange(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the home tokens", func(t *testing.T) {
		srv := tokenEndpoint(t, http.StatusOK,
			`{"access_token":"at","token_type":"bearer","id_token":"idt","expires_in":300,"scope":"openid"}`)
		e := NewOAuth2Exchanger(brokerCreds, srv.Client())

		tokens, err := e.Exchange(ctx, trustmodels.ProviderNode{ID: "idp-a", TokenEndpoint: srv.URL}, "code-1", "verifier")
		require.NoError(t, err)
		assert.Equal(t, "idt", tokens.IDToken)
		assert.Equal(t, "Bearer", tokens.TokenType)
		assert.Equal(t, "openid", tokens.Scope)
		assert.False(t, tokens.ExpiresAt.IsZero())
	})

	t.Run("missing id_token is bad data", func(t *testing.T) {
		srv := tokenEndpoint(t, http.StatusOK, `{"access_token":"at","token_type":"bearer"}`)
		e := NewOAuth2Exchanger(brokerCreds, srv.Client())

		_, err := e.Exchange(ctx, trustmodels.ProviderNode{ID: "idp-a", TokenEndpoint: srv.URL}, "code-1", "verifier")
		assert.Equal(t, CategoryBadData, GetCategory(err))
	})

	t.Run("rejected code is a protocol error", func(t *testing.T) {
		srv := tokenEndpoint(t, http.StatusBadRequest, `{"error":"invalid_grant"}`)
		e := NewOAuth2Exchanger(brokerCreds, srv.Client())

		_, err := e.Exchange(ctx, trustmodels.ProviderNode{ID: "idp-a", TokenEndpoint: srv.URL}, "code-1", "verifier")
		assert.Equal(t, CategoryProtocol, GetCategory(err))
		assert.False(t, IsRetryable(err))
	})

	t.Run("provider outage is retryable", func(t *testing.T) {
		srv := tokenEndpoint(t, http.StatusServiceUnavailable, `{}`)
		e := NewOAuth2Exchanger(brokerCreds, srv.Client())

		_, err := e.Exchange(ctx, trustmodels.ProviderNode{ID: "idp-a", TokenEndpoint: srv.URL}, "code-1", "verifier")
		assert.True(t, IsRetryable(err))
	})
}
