package auth

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/dashboard-gate/internal/observability"
	"github.com/spec-kit/dashboard-gate/internal/session"
	apperrors "github.com/spec-kit/dashboard-gate/pkg/util"
)

const sessionKey = "gate_session"

// Session is the mounted browser session attached to a request.
type Session struct {
	ID   string
	Gate *session.Gate
	// Opened is true when this request mounted the session.
	Opened bool
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// SessionMiddleware resolves the browser's gate from its cookie, opening a
// new session when the cookie is missing, invalid or expired.
type SessionMiddleware struct {
	tokens   *TokenManager
	sessions *session.Registry
	cookie   CookieConfig
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(tokens *TokenManager, sessions *session.Registry, cookie CookieConfig, logger *zap.Logger, metrics *observability.Metrics) *SessionMiddleware {
	if cookie.Name == "" {
		cookie.Name = "gate_session"
	}
	return &SessionMiddleware{tokens: tokens, sessions: sessions, cookie: cookie, logger: logger, metrics: metrics}
}

// Handle attaches a Session to the request.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	if raw := c.Cookies(m.cookie.Name); raw != "" {
		if claims, err := m.tokens.ParseToken(raw); err == nil {
			if gate, ok := m.sessions.Get(claims.SessionID); ok {
				c.Locals(sessionKey, &Session{ID: claims.SessionID, Gate: gate})
				return c.Next()
			}
		}
	}

	id, gate := m.sessions.Open()
	token, exp, err := m.tokens.GenerateToken(id)
	if err != nil {
		m.sessions.Close(id)
		return apperrors.NewInternalError(err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     m.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HTTPOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	m.metrics.RecordSession("opened")
	m.logger.Debug("session opened", zap.String("session_id", id), zap.String("state", string(gate.State())))

	c.Locals(sessionKey, &Session{ID: id, Gate: gate, Opened: true})
	return c.Next()
}

// Close unmounts the request's session and clears the cookie.
func (m *SessionMiddleware) Close(c *fiber.Ctx) {
	if sess, ok := SessionFromContext(c); ok {
		m.sessions.Close(sess.ID)
		m.metrics.RecordSession("closed")
	}
	c.ClearCookie(m.cookie.Name)
}

// SessionFromContext retrieves the session attached by Handle.
func SessionFromContext(c *fiber.Ctx) (*Session, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	sess, ok := val.(*Session)
	return sess, ok
}

// RequireSession rejects requests that reached a handler without a session.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := SessionFromContext(c); !ok {
			return apperrors.NewUnauthorized("session required")
		}
		return c.Next()
	}
}
