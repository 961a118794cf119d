package remote

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	fedmodels "trustbridge/internal/federation/models"
	trustmodels "trustbridge/internal/trust/models"
	dErrors "trustbridge/pkg/domain-errors"
)

// KeySource resolves a home provider's signing key by kid.
type KeySource interface {
	Key(ctx context.Context, providerID, jwksURI, kid string) (any, error)
}

// TokenValidator verifies home provider ID tokens against their published keys.
type TokenValidator struct {
	keys     KeySource
	audience string
	leeway   time.Duration
	clock    func() time.Time
}

type ValidatorOption func(*TokenValidator)

func WithLeeway(d time.Duration) ValidatorOption {
	return func(v *TokenValidator) {
		v.leeway = d
	}
}

func WithValidatorClock(clock func() time.Time) ValidatorOption {
	return func(v *TokenValidator) {
		if clock != nil {
			v.clock = clock
		}
	}
}

// NewTokenValidator checks tokens for the given audience, normally the
// broker's client id at the home provider. An empty audience makes every
// Validate call fail.
func NewTokenValidator(keys KeySource, audience string, opts ...ValidatorOption) *TokenValidator {
	v := &TokenValidator{
		keys:     keys,
		audience: audience,
		leeway:   30 * time.Second,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var allowedAlgs = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "PS256"}

// Validate verifies signature, issuer, expiry and audience. Each failed check
// has its own error code. Key retrieval failures are returned as *Error so the
// caller can retry them.
func (v *TokenValidator) Validate(ctx context.Context, provider trustmodels.ProviderNode, raw string) (fedmodels.ValidationResult, error) {
	// golang-jwt skips the issuer and audience checks for empty expectations.
	if v.audience == "" {
		return fedmodels.ValidationResult{}, dErrors.New(dErrors.CodeConfiguration, "token validator has no audience")
	}
	if provider.Issuer == "" {
		return fedmodels.ValidationResult{}, dErrors.New(dErrors.CodeIssuerMismatch, "home provider "+provider.ID+" has no issuer")
	}

	claims := jwt.MapClaims{}
	var keyErr error
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		key, err := v.keys.Key(ctx, provider.ID, provider.JWKSURI, kid)
		if err != nil {
			keyErr = err
		}
		return key, err
	},
		jwt.WithValidMethods(allowedAlgs),
		jwt.WithIssuer(provider.Issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.clock),
	)
	if err != nil {
		return fedmodels.ValidationResult{}, v.translate(err, keyErr)
	}

	sub, _ := claims.GetSubject()
	if sub == "" {
		return fedmodels.ValidationResult{}, dErrors.New(dErrors.CodeBadSignature, "token has no subject")
	}
	iss, _ := claims.GetIssuer()
	aud, _ := claims.GetAudience()
	result := fedmodels.ValidationResult{
		Subject:  sub,
		Issuer:   iss,
		Audience: []string(aud),
		Claims:   map[string]any(claims),
	}
	if exp, _ := claims.GetExpirationTime(); exp != nil {
		result.ExpiresAt = exp.Time
	}
	return result, nil
}

func (v *TokenValidator) translate(err, keyErr error) error {
	var re *Error
	switch {
	case keyErr != nil && errors.As(keyErr, &re):
		return re
	case keyErr != nil:
		return dErrors.Wrap(keyErr, dErrors.CodeBadSignature, "signing key not found")
	case errors.Is(err, jwt.ErrTokenExpired):
		return dErrors.Wrap(err, dErrors.CodeTokenExpired, "token has expired")
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return dErrors.Wrap(err, dErrors.CodeIssuerMismatch, "token issuer does not match home provider")
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return dErrors.Wrap(err, dErrors.CodeAudienceMismatch, "token audience does not include broker")
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return missingClaim(err)
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return dErrors.Wrap(err, dErrors.CodeTokenExpired, "token is not valid yet")
	default:
		return dErrors.Wrap(err, dErrors.CodeBadSignature, "token signature is invalid")
	}
}

// missingClaim maps a required-claim failure to the check it belongs to.
func missingClaim(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "iss claim"):
		return dErrors.Wrap(err, dErrors.CodeIssuerMismatch, "token has no issuer")
	case strings.Contains(msg, "aud claim"):
		return dErrors.Wrap(err, dErrors.CodeAudienceMismatch, "token has no audience")
	default:
		return dErrors.Wrap(err, dErrors.CodeTokenExpired, "token has no expiry")
	}
}
