package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/dashboard-gate/internal/auth"
	"github.com/spec-kit/dashboard-gate/internal/config"
	"github.com/spec-kit/dashboard-gate/internal/events"
	"github.com/spec-kit/dashboard-gate/internal/observability"
	"github.com/spec-kit/dashboard-gate/internal/provision"
	"github.com/spec-kit/dashboard-gate/internal/service"
	"github.com/spec-kit/dashboard-gate/internal/session"
)

const cookieName = "gate_session"

type harness struct {
	app         *fiber.App
	provisioner *provision.Provisioner
	logs        *observer.ObservedLogs
	calls       *atomic.Int32
}

type blockingTransport struct {
	release chan struct{}
}

func (b *blockingTransport) Start(context.Context, string, string) (int, error) {
	<-b.release
	return http.StatusOK, nil
}

// newHarness mounts the whole app against a control endpoint stub answering status.
func newHarness(t *testing.T, status int, bypass bool) *harness {
	t.Helper()
	calls := &atomic.Int32{}
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/start-server" {
			calls.Add(1)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(stub.Close)

	h := buildHarness(t, provision.NewHTTPTransport(time.Second), stub.URL+"/start-server", bypass)
	h.calls = calls
	return h
}

func buildHarness(t *testing.T, transport provision.Transport, endpoint string, bypass bool) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	service.NewAuditService(dispatcher, logger, config.AuditConfig{}).RegisterHandlers()

	p := provision.New(provision.Options{Endpoint: endpoint, ResourceKey: "default"}, provision.Dependencies{
		Transport:  transport,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	registry := session.NewRegistry(session.GateOptions{BypassAuth: bypass}, time.Hour)
	sessions := auth.NewSessionMiddleware(auth.NewTokenManager("test-secret", time.Hour), registry,
		auth.CookieConfig{Name: cookieName}, logger, metrics)
	appService := service.NewAppService(service.AppDependencies{
		Provisioner: p,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
	})

	app, err := NewServer(ServerConfig{
		AppName:        "Acme",
		Version:        "test",
		RequestTimeout: 5 * time.Second,
		Logger:         logger,
		Metrics:        metrics,
		App:            appService,
		Sessions:       sessions,
	})
	require.NoError(t, err)
	return &harness{app: app, provisioner: p, logs: logs}
}

func (h *harness) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := h.app.Test(req, 2000)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (h *harness) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, h.provisioner.Wait(ctx))
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func get(path string, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func postForm(path, form string, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestMountWithHealthyControlPlane(t *testing.T) {
	h := newHarness(t, http.StatusOK, false)

	resp, body := h.do(t, get("/", nil))
	h.wait(t)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Sign In")
	require.EqualValues(t, 1, h.calls.Load())
	require.Zero(t, h.logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	require.Equal(t, "READY", string(h.provisioner.Status().Status))
}

func TestMountWithFailingControlPlane(t *testing.T) {
	h := newHarness(t, http.StatusInternalServerError, false)

	resp, body := h.do(t, get("/", nil))
	h.wait(t)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Sign In")
	require.EqualValues(t, 1, h.calls.Load())
	require.Equal(t, 1, h.logs.FilterMessage("provisioning failed").Len())

	cookie := sessionCookie(t, resp)
	resp, body = h.do(t, get("/api/session", cookie))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"authenticated":false`)
}

func TestLoginOnceShowsDashboard(t *testing.T) {
	h := newHarness(t, http.StatusOK, false)
	resp, _ := h.do(t, get("/", nil))
	cookie := sessionCookie(t, resp)
	h.wait(t)

	resp, _ = h.do(t, postForm("/login", "username=ada&password=secret", cookie))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))

	resp, body := h.do(t, get("/", cookie))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "<h1>Dashboard</h1>")
	require.Contains(t, body, `data-status="READY"`)
}

func TestLoginTwiceStaysAuthenticated(t *testing.T) {
	h := newHarness(t, http.StatusOK, false)
	resp, _ := h.do(t, get("/", nil))
	cookie := sessionCookie(t, resp)

	for i := 0; i < 2; i++ {
		resp, _ = h.do(t, postForm("/login", "username=ada&password=secret", cookie))
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	}
	h.wait(t)

	resp, body := h.do(t, get("/api/session", cookie))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload struct {
		Data struct {
			State         string `json:"state"`
			View          string `json:"view"`
			Authenticated bool   `json:"authenticated"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	require.True(t, payload.Data.Authenticated)
	require.Equal(t, "dashboard", payload.Data.View)
	require.Equal(t, 1, h.logs.FilterMessage(string(events.EventSessionAuthenticated)).Len())
}

func TestBypassRendersDashboardImmediately(t *testing.T) {
	h := newHarness(t, http.StatusOK, true)

	resp, body := h.do(t, get("/", nil))
	h.wait(t)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "<h1>Dashboard</h1>")
}

func TestRepeatedMountsSendOneStartRequest(t *testing.T) {
	h := newHarness(t, http.StatusOK, false)

	resp, _ := h.do(t, get("/", nil))
	cookie := sessionCookie(t, resp)
	h.do(t, get("/", cookie))
	h.do(t, get("/", nil))
	h.wait(t)
	h.do(t, get("/", cookie))
	h.wait(t)

	require.EqualValues(t, 1, h.calls.Load())
}

func TestHungControlPlaneDoesNotBlockRendering(t *testing.T) {
	transport := &blockingTransport{release: make(chan struct{})}
	h := buildHarness(t, transport, "http://control.test/start-server", false)
	t.Cleanup(func() {
		close(transport.release)
		h.wait(t)
	})

	resp, body := h.do(t, get("/", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Sign In")

	cookie := sessionCookie(t, resp)
	h.do(t, postForm("/login", "username=ada", cookie))
	resp, body = h.do(t, get("/", cookie))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `data-status="PENDING"`)
}

func TestLogoutUnmountsSession(t *testing.T) {
	h := newHarness(t, http.StatusOK, false)
	resp, _ := h.do(t, get("/", nil))
	cookie := sessionCookie(t, resp)
	h.do(t, postForm("/login", "username=ada", cookie))

	resp, _ = h.do(t, postForm("/logout", "", cookie))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, body := h.do(t, get("/", cookie))
	h.wait(t)
	require.Contains(t, body, "Sign In")
	require.NotEqual(t, cookie.Value, sessionCookie(t, resp).Value)
}

func TestProvisionAPI(t *testing.T) {
	h := newHarness(t, http.StatusServiceUnavailable, false)

	resp, body := h.do(t, httptest.NewRequest(http.MethodPost, "/api/provision", nil))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Contains(t, body, `"dispatched":true`)
	h.wait(t)

	resp, body = h.do(t, get("/api/provision", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"status":"FAILED"`)
	require.Contains(t, body, `"http_status":503`)
	require.Empty(t, resp.Cookies(), "status read must not mount a session")
}

func TestProvisionAPIIncludesStoredRecord(t *testing.T) {
	h := newHarness(t, http.StatusOK, false)

	_, body := h.do(t, get("/api/provision", nil))
	require.NotContains(t, body, `"stored"`)

	h.do(t, httptest.NewRequest(http.MethodPost, "/api/provision", nil))
	h.wait(t)

	resp, body := h.do(t, get("/api/provision", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Data   map[string]any `json:"data"`
		Stored map[string]any `json:"stored"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	require.Equal(t, "READY", payload.Data["status"])
	require.NotNil(t, payload.Stored)
	require.Equal(t, "READY", payload.Stored["status"])
	require.EqualValues(t, 1, payload.Stored["attempts"])
}

func TestJSONLoginInvalidPayload(t *testing.T) {
	h := newHarness(t, http.StatusOK, false)

	req := httptest.NewRequest(http.MethodPost, "/api/session/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, body := h.do(t, req)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "VALIDATION_FAILED")
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, http.StatusOK, false)

	resp, body := h.do(t, get("/health/ready", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"postgres":"disabled"`)

	h.do(t, get("/", nil))
	h.wait(t)
	resp, body = h.do(t, get("/metrics", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"succeeded":1`)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	h := newHarness(t, http.StatusOK, false)
	resp, body := h.do(t, get("/nope", nil))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, body, "NOT_FOUND")

	_, body = h.do(t, get("/metrics", nil))
	require.Contains(t, body, `"/nope|GET|404":1`)
	require.NotContains(t, body, `"/nope|GET|200"`)
}
