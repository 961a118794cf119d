package service

import (
	"context"
	"time"

	"trustbridge/internal/federation/models"
	jwttoken "trustbridge/internal/jwt_token"
	dErrors "trustbridge/pkg/domain-errors"
	"trustbridge/pkg/platform/audit"
)

// ReissueToken mints broker tokens for a validated home identity. The trust
// path is recomputed and must not exceed the maximum trust depth. The reissued
// lifetime never outlives the home provider's tokens.
func (b *Broker) ReissueToken(ctx context.Context, homeTokens models.TokenSet, identity models.ValidationResult, req models.Request, networkID string) (_ models.TokenSet, err error) {
	ctx, end := b.startStage(ctx, stageReissue, networkID, req.HomeProviderID, &err)
	defer end()

	path, err := b.registry.TrustPath(ctx, networkID, req.HomeProviderID)
	if err != nil {
		b.rejectUntrusted(ctx, req, networkID, err)
		return models.TokenSet{}, err
	}
	hops := path.HopCount()
	if hops > b.cfg.MaxTrustDepth {
		b.logger.InfoContext(ctx, "trust path exceeds maximum trust depth",
			"network_id", networkID,
			"provider_id", req.HomeProviderID,
			"hop_count", hops,
			"max_trust_depth", b.cfg.MaxTrustDepth,
		)
		err := dErrors.New(dErrors.CodeUntrustedProvider, "trust path exceeds maximum trust depth")
		b.rejectUntrusted(ctx, req, networkID, err)
		return models.TokenSet{}, err
	}

	account, err := b.accounts.Resolve(ctx, req.HomeProviderID, identity.Subject)
	if err != nil {
		return models.TokenSet{}, err
	}

	now := b.now(ctx)
	ttl := b.cfg.TokenTTL
	if !homeTokens.ExpiresAt.IsZero() {
		ttl = min(ttl, homeTokens.ExpiresAt.Sub(now))
	}
	// second precision keeps exp and expires_in consistent
	ttl = ttl.Truncate(time.Second)
	if ttl < time.Second {
		return models.TokenSet{}, dErrors.New(dErrors.CodeTokenExpired, "home provider tokens have expired")
	}

	params := jwttoken.IssueParams{
		Subject:        account.ID,
		HomeSubject:    identity.Subject,
		ClientID:       req.ClientID,
		Scope:          req.Scope,
		HomeProviderID: req.HomeProviderID,
		TrustPath:      path.Providers,
		HopCount:       hops,
		IssuedAt:       now,
		ExpiresIn:      ttl,
	}
	params.TokenUse = jwttoken.TokenUseAccess
	accessToken, err := b.issuer.Issue(params)
	if err != nil {
		return models.TokenSet{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}
	params.TokenUse = jwttoken.TokenUseID
	idToken, err := b.issuer.Issue(params)
	if err != nil {
		return models.TokenSet{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue id token")
	}

	if err := b.emitCompliance(ctx, audit.Event{
		Action:         string(audit.EventTokenReissued),
		NetworkID:      networkID,
		HomeProviderID: req.HomeProviderID,
		ClientID:       req.ClientID,
		Subject:        account.ID,
		Decision:       "issued",
		TrustPath:      path.Providers,
		HopCount:       hops,
	}); err != nil {
		return models.TokenSet{}, err
	}
	b.metrics.ObserveReissue(hops)

	return models.TokenSet{
		AccessToken: accessToken,
		IDToken:     idToken,
		TokenType:   "Bearer",
		Scope:       req.Scope,
		ExpiresAt:   now.Add(ttl),
	}, nil
}
