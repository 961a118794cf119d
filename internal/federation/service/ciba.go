package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	bcmodels "trustbridge/internal/backchannel/models"
	"trustbridge/internal/federation/models"
	"trustbridge/internal/federation/remote"
	trustmodels "trustbridge/internal/trust/models"
	dErrors "trustbridge/pkg/domain-errors"
	"trustbridge/pkg/platform/audit"
	"trustbridge/pkg/platform/sentinel"
)

// CIBAResult is the backchannel authentication response for a relying party.
type CIBAResult struct {
	AuthReqID string
	ExpiresIn int
	Interval  time.Duration
}

// InitiateCibaRequest starts a decoupled authentication. When the hub is the
// home provider the request is registered with the local backchannel
// provider; otherwise it is forwarded to the home provider's backchannel
// endpoint after the same trust checks as the redirect flow.
func (b *Broker) InitiateCibaRequest(ctx context.Context, req models.Request, networkID string, requestedExpiry int) (_ CIBAResult, err error) {
	ctx, end := b.startStage(ctx, stageCIBAInitiate, networkID, req.HomeProviderID, &err)
	defer end()

	if requestedExpiry < 0 {
		return CIBAResult{}, dErrors.New(dErrors.CodeValidation, "requested expiry must not be negative")
	}
	provider, path, err := b.trustedProvider(ctx, networkID, req.HomeProviderID)
	if err != nil {
		b.rejectUntrusted(ctx, req, networkID, err)
		return CIBAResult{}, err
	}

	now := b.now(ctx)
	flow := &models.Flow{
		ID:        uuid.NewString(),
		NetworkID: networkID,
		Request:   req,
		Mode:      models.ModeCIBA,
		State:     models.FlowInitiated,
		AuthReqID: uuid.NewString(),
		TrustPath: path.Providers,
		CreatedAt: now,
		UpdatedAt: now,
	}

	expiresIn := requestedExpiry
	if provider.ID == b.registry.HubID() {
		if expiresIn == 0 {
			expiresIn = int(b.cfg.FlowTTL / time.Second)
		}
		if err := b.initiateLocal(ctx, flow, expiresIn); err != nil {
			return CIBAResult{}, err
		}
	} else {
		if expiresIn, err = b.initiateRemote(ctx, provider, flow, requestedExpiry); err != nil {
			return CIBAResult{}, err
		}
	}

	flow.ExpiresAt = now.Add(time.Duration(expiresIn) * time.Second)
	if err := flow.Transition(models.FlowCIBARequested, now); err != nil {
		return CIBAResult{}, err
	}
	if err := b.flows.Save(ctx, flow); err != nil {
		return CIBAResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store flow")
	}

	b.emitBestEffort(ctx, audit.Event{
		Action:         string(audit.EventCibaInitiated),
		FlowID:         flow.ID,
		NetworkID:      networkID,
		HomeProviderID: req.HomeProviderID,
		ClientID:       req.ClientID,
		TrustPath:      flow.TrustPath,
	})
	return CIBAResult{AuthReqID: flow.AuthReqID, ExpiresIn: expiresIn, Interval: flow.PollInterval}, nil
}

func (b *Broker) initiateLocal(ctx context.Context, flow *models.Flow, expiresIn int) error {
	if b.backchannel == nil {
		return dErrors.New(dErrors.CodeConfiguration, "hub has no backchannel provider")
	}
	req := flow.Request
	bcReq, err := bcmodels.NewRequest(bcmodels.RequestParams{
		AuthReqID:       flow.AuthReqID,
		ClientID:        req.ClientID,
		Scope:           req.Scope,
		LoginHint:       req.LoginHint,
		BindingMessage:  req.BindingMessage,
		RequestedExpiry: expiresIn,
	}, b.now(ctx))
	if err != nil {
		return err
	}
	if err := b.backchannel.InitiateAuthentication(ctx, bcReq); err != nil {
		return err
	}
	flow.Local = true
	flow.PollInterval = b.cfg.PollInterval
	return nil
}

func (b *Broker) initiateRemote(ctx context.Context, provider trustmodels.ProviderNode, flow *models.Flow, requestedExpiry int) (int, error) {
	if !provider.HasCapability(trustmodels.CapabilityCIBA) || provider.BackchannelEndpoint == "" {
		return 0, dErrors.New(dErrors.CodeValidation, "home provider does not support backchannel authentication")
	}
	authz, err := callRemote(ctx, b, provider.ID, true, func(ctx context.Context) (remote.CIBAAuthorization, error) {
		return b.ciba.Initiate(ctx, provider, flow.Request, requestedExpiry)
	})
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeTokenExchange, "backchannel request to home provider failed")
	}
	flow.RemoteAuthReqID = authz.AuthReqID
	flow.PollInterval = max(authz.Interval, b.cfg.PollInterval)
	expiresIn := authz.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = int(b.cfg.FlowTTL / time.Second)
	}
	return expiresIn, nil
}

// PollCibaToken redeems a CIBA grant. A nil TokenSet with a nil error means
// the user has not decided yet. Terminal outcomes end the flow: denial is
// CodeAccessDenied, expiry CodeExpired and a backend error CodeDelivery.
// Concurrent polls for the same id share one result; a caller that goes away
// stops waiting without failing the others.
func (b *Broker) PollCibaToken(ctx context.Context, authReqID string) (*models.TokenSet, error) {
	ch := b.polls.DoChan(authReqID, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.cfg.PollTimeout)
		defer cancel()
		return b.poll(shared, authReqID)
	})
	select {
	case <-ctx.Done():
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "token poll abandoned")
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.TokenSet), nil
	}
}

func (b *Broker) poll(ctx context.Context, authReqID string) (_ *models.TokenSet, err error) {
	flow, err := b.flows.FindByAuthReqID(ctx, authReqID, b.now(ctx))
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrExpired):
			b.throttle.Forget(authReqID)
			return nil, dErrors.Wrap(err, dErrors.CodeExpired, "backchannel request expired")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "unknown auth_req_id")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load flow")
	}

	ctx, end := b.startStage(ctx, stageCIBAPoll, flow.NetworkID, flow.Request.HomeProviderID, &err)
	defer end()

	var (
		tokens  *models.TokenSet
		subject string
	)
	if flow.Local {
		tokens, subject, err = b.pollLocal(ctx, flow)
	} else {
		tokens, subject, err = b.pollRemote(ctx, flow)
	}
	switch {
	case err != nil && isPollRetry(err):
		return nil, err
	case err != nil:
		b.throttle.Forget(authReqID)
		b.failFlow(ctx, flow, err)
		b.emitResolved(ctx, flow, dErrors.GetCode(err))
		return nil, err
	case tokens == nil:
		return nil, nil
	}

	b.throttle.Forget(authReqID)
	b.emitResolved(ctx, flow, "")
	if err := b.completeFlow(ctx, flow, subject); err != nil {
		return nil, err
	}
	return tokens, nil
}

// transientError marks a poll failure that leaves the flow pending.
type transientError struct{ error }

func (e transientError) Unwrap() error { return e.error }

// isPollRetry reports errors after which the relying party may poll again.
func isPollRetry(err error) bool {
	var te transientError
	return dErrors.Is(err, dErrors.CodeSlowDown) || errors.As(err, &te)
}

func (b *Broker) pollLocal(ctx context.Context, flow *models.Flow) (*models.TokenSet, string, error) {
	if !b.throttle.Allow(flow.AuthReqID, flow.PollInterval) {
		return nil, "", dErrors.New(dErrors.CodeSlowDown, "polling too frequently")
	}
	status, err := b.backchannel.AuthenticationStatus(ctx, flow.AuthReqID)
	if err != nil {
		return nil, "", transientError{dErrors.Wrap(err, dErrors.CodeInternal, "backchannel status unavailable")}
	}

	switch status.Status {
	case bcmodels.StatusPending:
		return nil, "", nil
	case bcmodels.StatusDenied:
		return nil, "", dErrors.New(dErrors.CodeAccessDenied, "user denied the request")
	case bcmodels.StatusExpired:
		return nil, "", dErrors.New(dErrors.CodeExpired, "backchannel request expired")
	case bcmodels.StatusError:
		msg := status.ErrorDescription
		if msg == "" {
			msg = "backchannel authentication failed"
		}
		return nil, "", dErrors.New(dErrors.CodeDelivery, msg)
	case bcmodels.StatusApproved:
	default:
		return nil, "", dErrors.New(dErrors.CodeInvariantViolation, "unknown backchannel status")
	}

	req := flow.Request
	if status.Scope != "" {
		req.Scope = status.Scope
	}
	// the hub authenticated the user itself: nothing to exchange or validate
	now := b.now(ctx)
	for _, next := range []models.FlowState{models.FlowExchanging, models.FlowValidating} {
		if err := flow.Transition(next, now); err != nil {
			return nil, "", err
		}
	}
	identity := models.ValidationResult{Subject: status.UserID, Issuer: b.registry.HubID()}
	tokens, err := b.ReissueToken(ctx, models.TokenSet{}, identity, req, flow.NetworkID)
	if err != nil {
		return nil, "", err
	}
	if err := flow.Transition(models.FlowReissued, b.now(ctx)); err != nil {
		return nil, "", err
	}
	return &tokens, status.UserID, nil
}

func (b *Broker) pollRemote(ctx context.Context, flow *models.Flow) (*models.TokenSet, string, error) {
	req := flow.Request
	provider, err := b.memberProvider(ctx, flow.NetworkID, req.HomeProviderID)
	if err != nil {
		return nil, "", err
	}
	// polls are paced by the relying party, so they are never retried here
	home, err := callRemote(ctx, b, provider.ID, false, func(ctx context.Context) (*models.TokenSet, error) {
		return b.ciba.Poll(ctx, provider, flow.RemoteAuthReqID, flow.PollInterval)
	})
	switch {
	case err != nil && remote.IsRetryable(err):
		return nil, "", transientError{dErrors.Wrap(err, dErrors.CodeTokenExchange, "token poll at home provider failed")}
	case err != nil && isDomain(err):
		return nil, "", err
	case err != nil:
		return nil, "", dErrors.Wrap(err, dErrors.CodeTokenExchange, "token poll at home provider failed")
	case home == nil:
		return nil, "", nil
	}

	if err := flow.Transition(models.FlowExchanging, b.now(ctx)); err != nil {
		return nil, "", err
	}
	if err := flow.Transition(models.FlowValidating, b.now(ctx)); err != nil {
		return nil, "", err
	}
	identity, err := b.validate(ctx, provider, home.IDToken)
	if err != nil {
		return nil, "", err
	}
	tokens, err := b.ReissueToken(ctx, *home, identity, req, flow.NetworkID)
	if err != nil {
		return nil, "", err
	}
	if err := flow.Transition(models.FlowReissued, b.now(ctx)); err != nil {
		return nil, "", err
	}
	return &tokens, identity.Subject, nil
}

func (b *Broker) emitResolved(ctx context.Context, flow *models.Flow, code dErrors.Code) {
	decision := "approved"
	if code != "" {
		decision = string(code)
	}
	b.emitBestEffort(ctx, audit.Event{
		Action:         string(audit.EventCibaResolved),
		FlowID:         flow.ID,
		NetworkID:      flow.NetworkID,
		HomeProviderID: flow.Request.HomeProviderID,
		ClientID:       flow.Request.ClientID,
		Decision:       decision,
	})
}

func isDomain(err error) bool {
	var de *dErrors.Error
	return errors.As(err, &de)
}
