package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/dashboard-gate/internal/domain"
	"github.com/spec-kit/dashboard-gate/internal/events"
	"github.com/spec-kit/dashboard-gate/internal/observability"
	"github.com/spec-kit/dashboard-gate/internal/provision"
	"github.com/spec-kit/dashboard-gate/internal/repository"
	"github.com/spec-kit/dashboard-gate/internal/session"
)

// MountResult is what a page load needs to render.
type MountResult struct {
	View       domain.View
	State      domain.SessionState
	Provision  domain.ProvisionRecord
	Dispatched bool
}

// AppService coordinates application mounts and login submits.
type AppService struct {
	provisioner *provision.Provisioner
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// AppDependencies encapsulates collaborators of the app service.
type AppDependencies struct {
	Provisioner *provision.Provisioner
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// NewAppService builds the service.
func NewAppService(deps AppDependencies) *AppService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppService{
		provisioner: deps.Provisioner,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		metrics:     deps.Metrics,
	}
}

// Mount fires the provisioning request and returns the view for the gate.
// The view never depends on the request's outcome.
func (s *AppService) Mount(ctx context.Context, gate *session.Gate) MountResult {
	dispatched := s.provisioner.RequestStart(ctx)
	return MountResult{
		View:       gate.CurrentView(),
		State:      gate.State(),
		Provision:  s.provisioner.Status(),
		Dispatched: dispatched,
	}
}

// Login submits credentials to the session's gate.
func (s *AppService) Login(ctx context.Context, sessionID string, gate *session.Gate, creds domain.Credentials) domain.AuthResult {
	wasAuthenticated := gate.Authenticated()
	result := gate.Submit(ctx, creds)

	payload := events.SessionPayload{Username: creds.Username}
	switch {
	case !result.OK():
		payload.Reason = result.Reason
		s.metrics.RecordSession("rejected")
		s.logger.Info("login rejected", zap.String("session_id", sessionID), zap.String("reason", result.Reason))
		s.publish(ctx, events.New(events.EventSessionRejected, sessionID, payload))
	case !wasAuthenticated:
		s.metrics.RecordSession("authenticated")
		s.logger.Info("session authenticated", zap.String("session_id", sessionID))
		s.publish(ctx, events.New(events.EventSessionAuthenticated, sessionID, payload))
	}
	return result
}

// RequestProvision asks for a start request outside of a page load.
func (s *AppService) RequestProvision(ctx context.Context) (bool, domain.ProvisionRecord) {
	dispatched := s.provisioner.RequestStart(ctx)
	return dispatched, s.provisioner.Status()
}

// ProvisionStatus returns the provisioning record.
func (s *AppService) ProvisionStatus() domain.ProvisionRecord {
	return s.provisioner.Status()
}

// StoredProvision returns the persisted provisioning record, or nil when none
// has been saved.
func (s *AppService) StoredProvision(ctx context.Context) (*domain.ProvisionRecord, error) {
	rec, err := s.provisioner.Stored(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

func (s *AppService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish session event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
