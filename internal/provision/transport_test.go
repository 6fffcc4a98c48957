package provision

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPTransportPostsToEndpoint(t *testing.T) {
	var gotMethod, gotPath, gotKey string
	var gotLen int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotKey, gotLen = r.Method, r.URL.Path, r.Header.Get(IdempotencyHeader), r.ContentLength
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	code, err := NewHTTPTransport(time.Second).Start(context.Background(), srv.URL+"/start-server", "default")

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "/start-server", gotPath)
	require.Equal(t, "default", gotKey)
	require.Zero(t, gotLen)
}

func TestHTTPTransportReturnsServerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	code, err := NewHTTPTransport(time.Second).Start(context.Background(), srv.URL+"/start-server", "")

	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, code)
}

func TestHTTPTransportConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/start-server"
	srv.Close()

	_, err := NewHTTPTransport(time.Second).Start(context.Background(), url, "")
	require.Error(t, err)
}

func TestHTTPTransportCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPTransport(0).Start(ctx, "http://127.0.0.1:1/start-server", "")
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewGuardWithoutRedisIsLocal(t *testing.T) {
	g := NewGuard(nil, time.Minute, "instance-a")
	ok, err := g.Acquire(context.Background(), "default")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, g.Release(context.Background(), "default"))
}
