package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/dashboard-gate/internal/config"
	"github.com/spec-kit/dashboard-gate/internal/domain"
	"github.com/spec-kit/dashboard-gate/internal/events"
	"github.com/spec-kit/dashboard-gate/internal/provision"
	"github.com/spec-kit/dashboard-gate/internal/session"
)

type stubTransport struct {
	mu     sync.Mutex
	calls  int
	status int
}

func (s *stubTransport) Start(context.Context, string, string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.status, nil
}

func newAppService(t *testing.T, status int) (*AppService, *provision.Provisioner, *stubTransport, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(dispatcher, logger, config.AuditConfig{}).RegisterHandlers()

	transport := &stubTransport{status: status}
	p := provision.New(provision.Options{Endpoint: "http://control.test/start-server", ResourceKey: "default"},
		provision.Dependencies{Transport: transport, Dispatcher: dispatcher, Logger: logger})
	svc := NewAppService(AppDependencies{Provisioner: p, Dispatcher: dispatcher, Logger: logger})
	return svc, p, transport, logs
}

func wait(t *testing.T, p *provision.Provisioner) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Wait(ctx))
}

func TestMountRendersLoginAndFiresOnce(t *testing.T) {
	svc, p, transport, _ := newAppService(t, 200)
	gate := session.NewGate(session.GateOptions{})

	first := svc.Mount(context.Background(), gate)
	second := svc.Mount(context.Background(), gate)
	wait(t, p)

	require.Equal(t, domain.ViewLogin, first.View)
	require.Equal(t, domain.SessionLoggedOut, first.State)
	require.True(t, first.Dispatched)
	require.False(t, second.Dispatched)
	require.Equal(t, 1, transport.calls)
}

func TestMountFailureLeavesGateAlone(t *testing.T) {
	svc, p, _, logs := newAppService(t, 500)
	gate := session.NewGate(session.GateOptions{})

	res := svc.Mount(context.Background(), gate)
	wait(t, p)

	require.Equal(t, domain.ViewLogin, res.View)
	require.Equal(t, domain.ViewLogin, gate.CurrentView())
	require.Equal(t, domain.ProvisionFailed, svc.ProvisionStatus().Status)
	require.Equal(t, 1, logs.FilterMessage("provisioning failed").Len())
	require.Equal(t, 1, logs.FilterMessage(string(events.EventProvisionFailed)).Len())
}

func TestLoginPublishesOnlyOnTransition(t *testing.T) {
	svc, _, _, logs := newAppService(t, 200)
	gate := session.NewGate(session.GateOptions{})

	require.True(t, svc.Login(context.Background(), "sid", gate, domain.Credentials{Username: "ada"}).OK())
	require.True(t, svc.Login(context.Background(), "sid", gate, domain.Credentials{Username: "ada"}).OK())

	require.Equal(t, 1, logs.FilterMessage(string(events.EventSessionAuthenticated)).Len())
	require.Equal(t, domain.ViewDashboard, gate.CurrentView())
}

func TestLoginRejectedPublishesReason(t *testing.T) {
	svc, _, _, logs := newAppService(t, 200)
	gate := session.NewGate(session.GateOptions{Verifier: session.VerifierFunc(func(context.Context, domain.Credentials) domain.AuthResult {
		return domain.Rejected("locked")
	})})

	result := svc.Login(context.Background(), "sid", gate, domain.Credentials{Username: "ada"})

	require.False(t, result.OK())
	require.Equal(t, domain.ViewLogin, gate.CurrentView())
	require.Equal(t, 1, logs.FilterMessage(string(events.EventSessionRejected)).Len())
}
