package provision

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// IdempotencyHeader carries the resource key so the control plane can drop duplicates.
const IdempotencyHeader = "Idempotency-Key"

type agentTransport struct {
	client  *fiber.Client
	timeout time.Duration
}

// NewHTTPTransport sends the start request with fiber's HTTP client. A zero
// timeout keeps the client default.
func NewHTTPTransport(timeout time.Duration) Transport {
	return &agentTransport{client: fiber.AcquireClient(), timeout: timeout}
}

// Start issues POST endpoint with an empty body.
func (t *agentTransport) Start(ctx context.Context, endpoint, idempotencyKey string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	agent := t.client.Post(endpoint)
	if idempotencyKey != "" {
		agent.Set(IdempotencyHeader, idempotencyKey)
	}
	if t.timeout > 0 {
		agent.Timeout(t.timeout)
	}

	code, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return code, errors.Join(errs...)
	}
	return code, nil
}
