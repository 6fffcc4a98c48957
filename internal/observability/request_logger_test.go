package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/dashboard-gate/pkg/util"
)

func TestRequestLoggerRecordsStatusOfReturnedError(t *testing.T) {
	m := NewMetrics()
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })
	app.Get("/denied", func(*fiber.Ctx) error { return apperrors.NewUnauthorized("sign in first") })
	app.Get("/boom", func(*fiber.Ctx) error { return errors.New("boom") })

	for _, path := range []string{"/ok", "/denied", "/boom", "/missing"} {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
	}

	requests := m.Snapshot().Requests
	require.Equal(t, int64(1), requests["/ok|GET|204"])
	require.Equal(t, int64(1), requests["/denied|GET|401"])
	require.Equal(t, int64(1), requests["/boom|GET|500"])
	require.Equal(t, int64(1), requests["/missing|GET|404"])
	require.Len(t, requests, 4)
}
