// Package provision asks the remote control plane to start the backend server
// the dashboard depends on. Requests are fire-and-forget from the caller's view
// and deduplicated per resource key.
package provision

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/dashboard-gate/internal/domain"
	"github.com/spec-kit/dashboard-gate/internal/events"
	"github.com/spec-kit/dashboard-gate/internal/observability"
	"github.com/spec-kit/dashboard-gate/internal/repository"
)

// ErrProvisioningFailed covers both non-2xx responses and transport failures.
var ErrProvisioningFailed = errors.New("provisioning failed")

// Transport issues the state-changing start call and reports the status code.
type Transport interface {
	Start(ctx context.Context, endpoint, idempotencyKey string) (int, error)
}

// Options holds the fixed target of the start request.
type Options struct {
	Endpoint    string
	ResourceKey string
	// ClaimRecheck is how long a CLAIMED status is trusted before the next
	// RequestStart tries to acquire the guard again. Zero rechecks on every call.
	ClaimRecheck time.Duration
}

// Dependencies bundles collaborators. Only Transport is required.
type Dependencies struct {
	Transport  Transport
	Guard      Guard
	Repo       repository.ProvisionRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// Provisioner dispatches at most one start request at a time for its key.
type Provisioner struct {
	endpoint     string
	key          string
	claimRecheck time.Duration
	transport  Transport
	guard      Guard
	repo       repository.ProvisionRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time

	mu     sync.Mutex
	record domain.ProvisionRecord
	active int
	idle   chan struct{}

	persistMu sync.Mutex
}

// New builds a provisioner in the idle state.
func New(opts Options, deps Dependencies) *Provisioner {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	guard := deps.Guard
	if guard == nil {
		guard = LocalGuard()
	}
	repo := deps.Repo
	if repo == nil {
		repo = repository.NewMemoryProvisionRepository()
	}
	return &Provisioner{
		endpoint:     opts.Endpoint,
		key:          opts.ResourceKey,
		claimRecheck: opts.ClaimRecheck,
		transport:    deps.Transport,
		guard:        guard,
		repo:         repo,
		dispatcher:   deps.Dispatcher,
		logger:       logger.Named("provision"),
		metrics:      deps.Metrics,
		now:          time.Now,
		record: domain.ProvisionRecord{
			Key:    opts.ResourceKey,
			Status: domain.ProvisionIdle,
		},
	}
}

// RequestStart dispatches a start request unless one is pending, the
// resource is already up, or another instance recently claimed it. It never
// blocks on the network and reports whether a new request was dispatched.
// The request outlives ctx's cancellation.
func (p *Provisioner) RequestStart(ctx context.Context) bool {
	now := p.now()
	p.mu.Lock()
	if p.blocked(now) {
		p.mu.Unlock()
		return false
	}
	p.record.Status = domain.ProvisionPending
	p.record.Attempts++
	p.record.RequestedAt = &now
	p.record.CompletedAt = nil
	p.record.HTTPStatus = 0
	p.record.LastError = ""
	p.record.UpdatedAt = now
	attempt := p.record.Attempts
	if p.active == 0 {
		p.idle = make(chan struct{})
	}
	p.active++
	p.mu.Unlock()

	p.metrics.RecordProvision("requested")
	go p.run(context.WithoutCancel(ctx), attempt)
	return true
}

// blocked reports whether a new request would duplicate one that is in
// flight, done, or held by another instance. Callers hold p.mu.
func (p *Provisioner) blocked(now time.Time) bool {
	switch {
	case p.record.Status.InFlightOrDone():
		return true
	case p.record.Status == domain.ProvisionClaimed:
		return p.record.CompletedAt != nil && now.Before(p.record.CompletedAt.Add(p.claimRecheck))
	default:
		return false
	}
}

// Status returns a copy of the current record.
func (p *Provisioner) Status() domain.ProvisionRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.record
}

// Stored returns the last record written to the repository for this key.
// It wraps repository.ErrNotFound when nothing has been saved yet.
func (p *Provisioner) Stored(ctx context.Context) (*domain.ProvisionRecord, error) {
	rec, err := p.repo.Get(ctx, p.key)
	if err != nil {
		return nil, fmt.Errorf("load provision record %q: %w", p.key, err)
	}
	return rec, nil
}

// Key returns the resource key requests are deduplicated by.
func (p *Provisioner) Key() string {
	return p.key
}

// Wait blocks until in-flight requests finish or ctx is done. It leaves no
// goroutine behind when ctx wins.
func (p *Provisioner) Wait(ctx context.Context) error {
	p.mu.Lock()
	if p.active == 0 {
		p.mu.Unlock()
		return nil
	}
	idle := p.idle
	p.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Provisioner) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active--
	if p.active == 0 {
		close(p.idle)
	}
}

func (p *Provisioner) run(ctx context.Context, attempt int) {
	defer p.done()

	p.persist(ctx)
	p.publish(ctx, events.EventProvisionRequested, events.ProvisionPayload{
		Status:  domain.ProvisionPending,
		Attempt: attempt,
	})

	acquired, err := p.guard.Acquire(ctx, p.key)
	if err != nil {
		p.logger.Warn("provisioning guard unavailable; sending request anyway",
			zap.String("resource_key", p.key), zap.Error(err))
		acquired = true
	}
	if !acquired {
		p.logger.Info("provisioning already claimed by another instance", zap.String("resource_key", p.key))
		p.finish(ctx, attempt, domain.ProvisionClaimed, 0, nil)
		return
	}

	code, err := p.transport.Start(ctx, p.endpoint, p.key)
	if err == nil && (code < 200 || code > 299) {
		err = fmt.Errorf("unexpected status %d", code)
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrProvisioningFailed, err)
		p.logger.Error("provisioning failed",
			zap.String("resource_key", p.key),
			zap.String("endpoint", p.endpoint),
			zap.Int("attempt", attempt),
			zap.Int("http_status", code),
			zap.Error(err))
		if relErr := p.guard.Release(ctx, p.key); relErr != nil {
			p.logger.Warn("release provisioning guard", zap.Error(relErr))
		}
		p.finish(ctx, attempt, domain.ProvisionFailed, code, err)
		return
	}

	p.logger.Info("provisioning request accepted",
		zap.String("resource_key", p.key),
		zap.Int("attempt", attempt),
		zap.Int("http_status", code))
	p.finish(ctx, attempt, domain.ProvisionReady, code, nil)
}

func (p *Provisioner) finish(ctx context.Context, attempt int, status domain.ProvisionStatus, code int, err error) {
	now := p.now()
	p.mu.Lock()
	p.record.Status = status
	p.record.HTTPStatus = code
	p.record.CompletedAt = &now
	p.record.UpdatedAt = now
	if err != nil {
		p.record.LastError = err.Error()
	}
	p.mu.Unlock()

	p.persist(ctx)

	payload := events.ProvisionPayload{Status: status, Attempt: attempt, HTTPStatus: code}
	switch status {
	case domain.ProvisionReady:
		p.metrics.RecordProvision("succeeded")
		p.publish(ctx, events.EventProvisionSucceeded, payload)
	case domain.ProvisionClaimed:
		p.metrics.RecordProvision("claimed")
		p.publish(ctx, events.EventProvisionClaimed, payload)
	case domain.ProvisionFailed:
		payload.Error = err.Error()
		p.metrics.RecordProvision("failed")
		p.publish(ctx, events.EventProvisionFailed, payload)
	}
}

// persist writes the latest record; saves are serialized so the stored row
// never goes back to an older state.
func (p *Provisioner) persist(ctx context.Context) {
	p.persistMu.Lock()
	defer p.persistMu.Unlock()
	if err := p.repo.Save(ctx, p.Status()); err != nil {
		p.logger.Warn("persist provision record", zap.String("resource_key", p.key), zap.Error(err))
	}
}

func (p *Provisioner) publish(ctx context.Context, eventType events.EventType, payload events.ProvisionPayload) {
	if p.dispatcher == nil {
		return
	}
	if err := p.dispatcher.Publish(ctx, events.New(eventType, p.key, payload)); err != nil {
		p.logger.Warn("publish provision event", zap.String("type", string(eventType)), zap.Error(err))
	}
}
