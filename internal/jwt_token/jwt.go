package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "trustbridge/pkg/domain-errors"
)

// Token uses distinguish access tokens from ID tokens minted by the broker.
const (
	TokenUseAccess = "access"
	TokenUseID     = "id"
)

// Claims represents the JWT claims for reissued federation tokens
type Claims struct {
	TokenUse       string   `json:"token_use"`
	ClientID       string   `json:"client_id"`
	Scope          string   `json:"scope,omitempty"`
	HomeProviderID string   `json:"home_provider_id"`
	HomeSubject    string   `json:"home_sub,omitempty"`
	TrustPath      []string `json:"trust_path"`
	HopCount       int      `json:"hop_count"`
	jwt.RegisteredClaims
}

// IssueParams describes one token to mint.
type IssueParams struct {
	TokenUse       string
	Subject        string
	HomeSubject    string
	ClientID       string
	Scope          string
	HomeProviderID string
	TrustPath      []string
	HopCount       int
	IssuedAt       time.Time
	ExpiresIn      time.Duration
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) (*JWTService, error) {
	if len(signingKey) < 32 {
		return nil, dErrors.New(dErrors.CodeConfiguration, "signing key must be at least 32 bytes")
	}
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}, nil
}

// Issue signs a token carrying the federation metadata of p.
func (s *JWTService) Issue(p IssueParams) (string, error) {
	issuedAt := p.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	audience := []string{s.audience}
	if p.TokenUse == TokenUseID && p.ClientID != "" {
		audience = []string{p.ClientID}
	}
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TokenUse:       p.TokenUse,
		ClientID:       p.ClientID,
		Scope:          p.Scope,
		HomeProviderID: p.HomeProviderID,
		HomeSubject:    p.HomeSubject,
		TrustPath:      p.TrustPath,
		HopCount:       p.HopCount,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(p.ExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    s.issuer,
			Audience:  audience,
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateToken parses a broker-issued token. audience is the expected aud
// value; pass "" to accept the service default.
func (s *JWTService) ValidateToken(tokenString, audience string) (*Claims, error) {
	if audience == "" {
		audience = s.audience
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(audience))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return claims, nil
}
