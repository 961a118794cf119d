package service

import (
	"context"

	"trustbridge/internal/federation/models"
	trustmodels "trustbridge/internal/trust/models"
	dErrors "trustbridge/pkg/domain-errors"
	"trustbridge/pkg/platform/audit"
)

// memberProvider returns the provider's metadata if it belongs to the network.
func (b *Broker) memberProvider(ctx context.Context, networkID, providerID string) (trustmodels.ProviderNode, error) {
	network, err := b.registry.LoadNetwork(ctx, networkID)
	if err != nil {
		return trustmodels.ProviderNode{}, err
	}
	provider, ok := network.Provider(providerID)
	if !ok {
		b.logger.InfoContext(ctx, "provider is not a network member",
			"network_id", networkID,
			"provider_id", providerID,
		)
		return trustmodels.ProviderNode{}, dErrors.New(dErrors.CodeUntrustedProvider, "provider is not a network member")
	}
	return provider, nil
}

// trustedProvider requires membership and a trust path from the hub within
// the registry's hop bound.
func (b *Broker) trustedProvider(ctx context.Context, networkID, providerID string) (trustmodels.ProviderNode, trustmodels.TrustPath, error) {
	provider, err := b.memberProvider(ctx, networkID, providerID)
	if err != nil {
		return trustmodels.ProviderNode{}, trustmodels.TrustPath{}, err
	}
	path, err := b.registry.TrustPath(ctx, networkID, providerID)
	if err != nil {
		return trustmodels.ProviderNode{}, trustmodels.TrustPath{}, err
	}
	return provider, path, nil
}

// rejectUntrusted records a trust failure as a security event.
func (b *Broker) rejectUntrusted(ctx context.Context, req models.Request, networkID string, err error) {
	if !dErrors.IsTrustFailure(err) {
		return
	}
	b.emitBestEffort(ctx, audit.Event{
		Action:         string(audit.EventUntrustedProvider),
		NetworkID:      networkID,
		HomeProviderID: req.HomeProviderID,
		ClientID:       req.ClientID,
		Decision:       "rejected",
		Reason:         string(dErrors.GetCode(err)),
	})
}

// emitCompliance fails the calling operation when the event cannot be recorded.
func (b *Broker) emitCompliance(ctx context.Context, event audit.Event) error {
	if b.audit == nil {
		return nil
	}
	if err := b.audit.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

func (b *Broker) emitBestEffort(ctx context.Context, event audit.Event) {
	if b.audit == nil {
		return
	}
	if err := b.audit.Emit(ctx, event); err != nil {
		b.logger.WarnContext(ctx, "audit event not recorded",
			"action", event.Action,
			"flow_id", event.FlowID,
			"error", err,
		)
	}
}

// failFlow marks the flow failed, drops it and records the failure.
func (b *Broker) failFlow(ctx context.Context, flow *models.Flow, cause error) {
	now := b.now(ctx)
	code := string(dErrors.GetCode(cause))
	flow.Fail(code, now)
	if err := b.flows.Delete(ctx, flow.ID); err != nil {
		b.logger.WarnContext(ctx, "failed to drop failed flow", "flow_id", flow.ID, "error", err)
	}
	b.logger.InfoContext(ctx, "federation flow failed",
		"flow_id", flow.ID,
		"network_id", flow.NetworkID,
		"provider_id", flow.Request.HomeProviderID,
		"mode", flow.Mode,
		"code", code,
	)
	b.emitBestEffort(ctx, audit.Event{
		Action:         string(audit.EventFederationFailed),
		FlowID:         flow.ID,
		NetworkID:      flow.NetworkID,
		HomeProviderID: flow.Request.HomeProviderID,
		ClientID:       flow.Request.ClientID,
		Decision:       "failed",
		Reason:         code,
		TrustPath:      flow.TrustPath,
	})
}

// completeFlow moves a reissued flow to COMPLETE, drops it and records it.
func (b *Broker) completeFlow(ctx context.Context, flow *models.Flow, subject string) error {
	if err := flow.Transition(models.FlowComplete, b.now(ctx)); err != nil {
		return err
	}
	if err := b.flows.Delete(ctx, flow.ID); err != nil {
		b.logger.WarnContext(ctx, "failed to drop completed flow", "flow_id", flow.ID, "error", err)
	}
	b.metrics.IncCompleted(string(flow.Mode))
	return b.emitCompliance(ctx, audit.Event{
		Action:         string(audit.EventFederationCompleted),
		FlowID:         flow.ID,
		NetworkID:      flow.NetworkID,
		HomeProviderID: flow.Request.HomeProviderID,
		ClientID:       flow.Request.ClientID,
		Subject:        subject,
		Decision:       "completed",
		TrustPath:      flow.TrustPath,
		HopCount:       max(len(flow.TrustPath)-1, 0),
	})
}
