package remote

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	trustmodels "trustbridge/internal/trust/models"
	dErrors "trustbridge/pkg/domain-errors"
)

type staticKeys struct {
	keys map[string]any
	err  error
}

func (k staticKeys) Key(_ context.Context, _, _, kid string) (any, error) {
	if k.err != nil {
		return nil, k.err
	}
	key, ok := k.keys[kid]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	raw, err := tok.SignedString(key)
	require.NoError(t, err)
	return raw
}

func TestTokenValidator(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signing, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	provider := trustmodels.ProviderNode{ID: "idp-a", Issuer: "https://idp-a.example", JWKSURI: "https://idp-a.example/jwks"}
	v := NewTokenValidator(staticKeys{keys: map[string]any{"k1": &signing.PublicKey}}, "trustbridge",
		WithLeeway(0),
		WithValidatorClock(func() time.Time { return now }),
	)
	claims := func(edit func(jwt.MapClaims)) jwt.MapClaims {
		c := jwt.MapClaims{
			"iss": provider.Issuer,
			"aud": "trustbridge",
			"sub": "alice",
			"exp": now.Add(time.Hour).Unix(),
		}
		if edit != nil {
			edit(c)
		}
		return c
	}

	t.Run("valid token yields its claims", func(t *testing.T) {
		res, err := v.Validate(ctx, provider, signToken(t, signing, "k1", claims(nil)))
		require.NoError(t, err)
		assert.Equal(t, "alice", res.Subject)
		assert.Equal(t, provider.Issuer, res.Issuer)
		assert.Equal(t, []string{"trustbridge"}, res.Audience)
		assert.WithinDuration(t, now.Add(time.Hour), res.ExpiresAt, 0)
	})

	failures := []struct {
		name string
		raw  func(t *testing.T) string
		code dErrors.Code
	}{
		{"foreign key", func(t *testing.T) string {
			return signToken(t, other, "k1", claims(nil))
		}, dErrors.CodeBadSignature},
		{"unknown kid", func(t *testing.T) string {
			return signToken(t, signing, "k9", claims(nil))
		}, dErrors.CodeBadSignature},
		{"expired", func(t *testing.T) string {
			return signToken(t, signing, "k1", claims(func(c jwt.MapClaims) { c["exp"] = now.Add(-time.Minute).Unix() }))
		}, dErrors.CodeTokenExpired},
		{"missing expiry", func(t *testing.T) string {
			return signToken(t, signing, "k1", claims(func(c jwt.MapClaims) { delete(c, "exp") }))
		}, dErrors.CodeTokenExpired},
		{"other issuer", func(t *testing.T) string {
			return signToken(t, signing, "k1", claims(func(c jwt.MapClaims) { c["iss"] = "https://idp-b.example" }))
		}, dErrors.CodeIssuerMismatch},
		{"other audience", func(t *testing.T) string {
			return signToken(t, signing, "k1", claims(func(c jwt.MapClaims) { c["aud"] = "someone-else" }))
		}, dErrors.CodeAudienceMismatch},
		{"no subject", func(t *testing.T) string {
			return signToken(t, signing, "k1", claims(func(c jwt.MapClaims) { delete(c, "sub") }))
		}, dErrors.CodeBadSignature},
		{"not a jwt", func(*testing.T) string { return "not-a-token" }, dErrors.CodeBadSignature},
	}
	for _, tc := range failures {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Validate(ctx, provider, tc.raw(t))
			assert.True(t, dErrors.Is(err, tc.code), "got %v", err)
			assert.True(t, dErrors.IsTokenValidation(err))
		})
	}

	t.Run("provider without an issuer accepts no token", func(t *testing.T) {
		anonymous := trustmodels.ProviderNode{ID: "idp-a", JWKSURI: provider.JWKSURI}
		raw := signToken(t, signing, "k1", claims(func(c jwt.MapClaims) { c["iss"] = "https://evil.example" }))
		_, err := v.Validate(ctx, anonymous, raw)
		assert.True(t, dErrors.Is(err, dErrors.CodeIssuerMismatch), "got %v", err)
	})

	t.Run("validator without an audience accepts no token", func(t *testing.T) {
		open := NewTokenValidator(staticKeys{keys: map[string]any{"k1": &signing.PublicKey}}, "",
			WithValidatorClock(func() time.Time { return now }),
		)
		_, err := open.Validate(ctx, provider, signToken(t, signing, "k1", claims(nil)))
		assert.True(t, dErrors.Is(err, dErrors.CodeConfiguration), "got %v", err)
	})

	t.Run("key retrieval outage stays retryable", func(t *testing.T) {
		down := NewTokenValidator(staticKeys{err: NewError(CategoryOutage, "idp-a", "jwks unreachable", errors.New("dial"))}, "trustbridge")
		_, err := down.Validate(ctx, provider, signToken(t, signing, "k1", claims(nil)))
		assert.True(t, IsRetryable(err))
	})
}
