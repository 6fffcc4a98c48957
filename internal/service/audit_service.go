package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/dashboard-gate/internal/config"
	"github.com/spec-kit/dashboard-gate/internal/events"
)

// AuditService writes an audit trail for session and provisioning events.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.AuditConfig
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.AuditConfig) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventProvisionRequested, a.handleProvision)
	a.dispatcher.Subscribe(events.EventProvisionSucceeded, a.handleProvision)
	a.dispatcher.Subscribe(events.EventProvisionFailed, a.handleProvision)
	a.dispatcher.Subscribe(events.EventProvisionClaimed, a.handleProvision)
	a.dispatcher.Subscribe(events.EventSessionAuthenticated, a.handleSession)
	a.dispatcher.Subscribe(events.EventSessionRejected, a.handleSession)
}

func (a *AuditService) handleProvision(ctx context.Context, event events.Event) error {
	a.logger.Info(string(event.Type), zap.String("resource_key", event.Subject), zap.Any("payload", event.Payload))
	a.sendWebhookStub(ctx, event)
	return nil
}

func (a *AuditService) handleSession(ctx context.Context, event events.Event) error {
	a.logger.Info(string(event.Type), zap.String("session_id", event.Subject), zap.Any("payload", event.Payload))
	a.sendWebhookStub(ctx, event)
	return nil
}

func (a *AuditService) sendWebhookStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(a.cfg.WebhookURL) == "" {
		return
	}
	a.logger.Debug("sendWebhookStub",
		zap.String("url", a.cfg.WebhookURL),
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))
}
