// Package session holds the per-browser authentication gate that decides
// between the Login and Dashboard views.
package session

import (
	"context"
	"sync"

	"github.com/spec-kit/dashboard-gate/internal/domain"
)

// Verifier decides whether submitted credentials authenticate a session.
type Verifier interface {
	Verify(ctx context.Context, creds domain.Credentials) domain.AuthResult
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, creds domain.Credentials) domain.AuthResult

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, creds domain.Credentials) domain.AuthResult {
	return f(ctx, creds)
}

// AcceptAll authenticates any submit without reading the credentials.
var AcceptAll Verifier = VerifierFunc(func(context.Context, domain.Credentials) domain.AuthResult {
	return domain.Authenticated()
})

// GateOptions configures a new Gate.
type GateOptions struct {
	BypassAuth bool
	Verifier   Verifier
}

// Gate is the single source of truth for one session's authentication state.
// LoggedIn is terminal: nothing moves a gate back to LoggedOut.
type Gate struct {
	mu       sync.RWMutex
	state    domain.SessionState
	verifier Verifier
}

// NewGate builds a gate in LoggedOut, or LoggedIn when BypassAuth is set.
func NewGate(opts GateOptions) *Gate {
	state := domain.SessionLoggedOut
	if opts.BypassAuth {
		state = domain.SessionLoggedIn
	}
	verifier := opts.Verifier
	if verifier == nil {
		verifier = AcceptAll
	}
	return &Gate{state: state, verifier: verifier}
}

// State returns the current state.
func (g *Gate) State() domain.SessionState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Authenticated reports whether the gate is LoggedIn.
func (g *Gate) Authenticated() bool {
	return g.State().Authenticated()
}

// CurrentView returns Dashboard when authenticated and Login otherwise.
func (g *Gate) CurrentView() domain.View {
	if g.Authenticated() {
		return domain.ViewDashboard
	}
	return domain.ViewLogin
}

// Submit runs the login step. A rejected submit leaves the state unchanged;
// an already authenticated gate returns Authenticated without consulting the verifier.
func (g *Gate) Submit(ctx context.Context, creds domain.Credentials) domain.AuthResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == domain.SessionLoggedIn {
		return domain.Authenticated()
	}

	result := g.verifier.Verify(ctx, creds)
	if result.OK() {
		g.state = domain.SessionLoggedIn
	}
	return result
}

// OnLoginSubmit authenticates unconditionally through the accept-all path.
func (g *Gate) OnLoginSubmit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = domain.SessionLoggedIn
}
