package models

import "time"

// TokenSet is the result of a code exchange, a CIBA grant or a reissuance.
type TokenSet struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresAt    time.Time
}

// ExpiresIn returns the remaining lifetime in whole seconds, floored at zero.
func (t TokenSet) ExpiresIn(now time.Time) int {
	d := t.ExpiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

// ValidationResult holds the verified claims of a home provider token.
type ValidationResult struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	Claims    map[string]any
}

// FederationClaims is the metadata embedded in reissued tokens.
type FederationClaims struct {
	HomeProviderID string
	TrustPath      []string
	HopCount       int
}
