package dto

import (
	"time"

	"github.com/spec-kit/dashboard-gate/internal/domain"
)

// ProvisionResponse exposes the provisioning record.
type ProvisionResponse struct {
	ResourceKey string                 `json:"resource_key"`
	Status      domain.ProvisionStatus `json:"status"`
	Attempts    int                    `json:"attempts"`
	HTTPStatus  int                    `json:"http_status,omitempty"`
	LastError   string                 `json:"last_error,omitempty"`
	RequestedAt *time.Time             `json:"requested_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// ProvisionFromRecord maps a domain record.
func ProvisionFromRecord(r domain.ProvisionRecord) ProvisionResponse {
	return ProvisionResponse{
		ResourceKey: r.Key,
		Status:      r.Status,
		Attempts:    r.Attempts,
		HTTPStatus:  r.HTTPStatus,
		LastError:   r.LastError,
		RequestedAt: r.RequestedAt,
		CompletedAt: r.CompletedAt,
	}
}
