package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"trustbridge/internal/federation/models"
	"trustbridge/internal/federation/remote"
	trustmodels "trustbridge/internal/trust/models"
	dErrors "trustbridge/pkg/domain-errors"
	"trustbridge/pkg/platform/sentinel"
)

// AuthorizationResult is returned when a redirect flow starts.
type AuthorizationResult struct {
	FlowID           string
	AuthorizationURL string
	State            string
	ExpiresAt        time.Time
}

// InitiateAuthenticationRequest starts a redirect flow at the subject's home
// provider. The home provider must be a network member reachable from the hub
// within the hop limit.
func (b *Broker) InitiateAuthenticationRequest(ctx context.Context, req models.Request, networkID string) (_ AuthorizationResult, err error) {
	ctx, end := b.startStage(ctx, stageInitiate, networkID, req.HomeProviderID, &err)
	defer end()

	provider, path, err := b.trustedProvider(ctx, networkID, req.HomeProviderID)
	if err != nil {
		b.rejectUntrusted(ctx, req, networkID, err)
		return AuthorizationResult{}, err
	}
	if provider.AuthorizationEndpoint == "" || provider.TokenEndpoint == "" {
		return AuthorizationResult{}, dErrors.New(dErrors.CodeValidation, "home provider does not support the authorization code flow")
	}

	now := b.now(ctx)
	flow := &models.Flow{
		ID:           uuid.NewString(),
		NetworkID:    networkID,
		Request:      req,
		Mode:         models.ModeRedirect,
		State:        models.FlowInitiated,
		StateParam:   uuid.NewString(),
		Nonce:        uuid.NewString(),
		CodeVerifier: oauth2.GenerateVerifier(),
		TrustPath:    path.Providers,
		CreatedAt:    now,
		ExpiresAt:    now.Add(b.cfg.FlowTTL),
		UpdatedAt:    now,
	}
	if err := flow.Transition(models.FlowRedirected, now); err != nil {
		return AuthorizationResult{}, err
	}
	if err := b.flows.Save(ctx, flow); err != nil {
		return AuthorizationResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store flow")
	}

	return AuthorizationResult{
		FlowID:           flow.ID,
		AuthorizationURL: b.exchanger.AuthCodeURL(provider, req, flow.StateParam, flow.Nonce, flow.CodeVerifier),
		State:            flow.StateParam,
		ExpiresAt:        flow.ExpiresAt,
	}, nil
}

// ExchangeCodeForToken redeems an authorization code at the home provider.
// Transient failures are retried; anything the provider rejects surfaces as
// CodeTokenExchange.
func (b *Broker) ExchangeCodeForToken(ctx context.Context, code, homeProviderID, networkID, verifier string) (_ models.TokenSet, err error) {
	ctx, end := b.startStage(ctx, stageExchange, networkID, homeProviderID, &err)
	defer end()

	if code == "" {
		return models.TokenSet{}, dErrors.New(dErrors.CodeValidation, "authorization code is required")
	}
	provider, err := b.memberProvider(ctx, networkID, homeProviderID)
	if err != nil {
		return models.TokenSet{}, err
	}
	tokens, err := callRemote(ctx, b, provider.ID, true, func(ctx context.Context) (models.TokenSet, error) {
		return b.exchanger.Exchange(ctx, provider, code, verifier)
	})
	if err != nil {
		return models.TokenSet{}, dErrors.Wrap(err, dErrors.CodeTokenExchange, "token exchange with home provider failed")
	}
	return tokens, nil
}

// ValidateToken verifies a home provider token against its signing keys,
// issuer, expiry and the broker audience.
func (b *Broker) ValidateToken(ctx context.Context, rawToken, homeProviderID, networkID string) (_ models.ValidationResult, err error) {
	ctx, end := b.startStage(ctx, stageValidate, networkID, homeProviderID, &err)
	defer end()

	provider, err := b.memberProvider(ctx, networkID, homeProviderID)
	if err != nil {
		return models.ValidationResult{}, err
	}
	return b.validate(ctx, provider, rawToken)
}

func (b *Broker) validate(ctx context.Context, provider trustmodels.ProviderNode, rawToken string) (models.ValidationResult, error) {
	if rawToken == "" {
		return models.ValidationResult{}, dErrors.New(dErrors.CodeBadSignature, "token is empty")
	}
	result, err := callRemote(ctx, b, provider.ID, true, func(ctx context.Context) (models.ValidationResult, error) {
		return b.validator.Validate(ctx, provider, rawToken)
	})
	if err != nil {
		var re *remote.Error
		if errors.As(err, &re) {
			return models.ValidationResult{}, dErrors.Wrap(err, dErrors.CodeTokenExchange, "home provider signing keys unavailable")
		}
		return models.ValidationResult{}, err
	}
	return result, nil
}

// CompleteAuthorization finishes a redirect flow: it consumes the state,
// exchanges the code, validates the ID token (including its nonce) and
// reissues broker tokens.
func (b *Broker) CompleteAuthorization(ctx context.Context, state, code string) (models.TokenSet, error) {
	flow, err := b.flows.ConsumeByState(ctx, state, b.now(ctx))
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrExpired):
			return models.TokenSet{}, dErrors.Wrap(err, dErrors.CodeExpired, "authorization request expired")
		case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrAlreadyUsed):
			return models.TokenSet{}, dErrors.Wrap(err, dErrors.CodeInvalidRequest, "unknown or already used state")
		}
		return models.TokenSet{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load flow")
	}

	tokens, subject, err := b.runRedirect(ctx, flow, code)
	if err != nil {
		b.failFlow(ctx, flow, err)
		return models.TokenSet{}, err
	}
	if err := b.completeFlow(ctx, flow, subject); err != nil {
		return models.TokenSet{}, err
	}
	return tokens, nil
}

func (b *Broker) runRedirect(ctx context.Context, flow *models.Flow, code string) (models.TokenSet, string, error) {
	req := flow.Request
	if err := flow.Transition(models.FlowExchanging, b.now(ctx)); err != nil {
		return models.TokenSet{}, "", err
	}
	home, err := b.ExchangeCodeForToken(ctx, code, req.HomeProviderID, flow.NetworkID, flow.CodeVerifier)
	if err != nil {
		return models.TokenSet{}, "", err
	}

	if err := flow.Transition(models.FlowValidating, b.now(ctx)); err != nil {
		return models.TokenSet{}, "", err
	}
	identity, err := b.ValidateToken(ctx, home.IDToken, req.HomeProviderID, flow.NetworkID)
	if err != nil {
		return models.TokenSet{}, "", err
	}
	if nonce, _ := identity.Claims["nonce"].(string); nonce != flow.Nonce {
		return models.TokenSet{}, "", dErrors.New(dErrors.CodeValidation, "id token nonce does not match the request")
	}

	tokens, err := b.ReissueToken(ctx, home, identity, req, flow.NetworkID)
	if err != nil {
		return models.TokenSet{}, "", err
	}
	if err := flow.Transition(models.FlowReissued, b.now(ctx)); err != nil {
		return models.TokenSet{}, "", err
	}
	return tokens, identity.Subject, nil
}
