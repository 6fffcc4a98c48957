package domain

import "time"

// ProvisionStatus represents lifecycle states of a backend start request.
type ProvisionStatus string

const (
	ProvisionIdle    ProvisionStatus = "IDLE"
	ProvisionPending ProvisionStatus = "PENDING"
	ProvisionReady   ProvisionStatus = "READY"
	ProvisionFailed  ProvisionStatus = "FAILED"
	// ProvisionClaimed means another instance holds the start request for the key.
	ProvisionClaimed ProvisionStatus = "CLAIMED"
)

// InFlightOrDone reports whether a new start request would be a duplicate.
// CLAIMED is not included: the other instance's request may fail.
func (s ProvisionStatus) InFlightOrDone() bool {
	switch s {
	case ProvisionPending, ProvisionReady:
		return true
	default:
		return false
	}
}

// ProvisionRecord tracks the start requests issued for one resource key.
type ProvisionRecord struct {
	Key         string
	Status      ProvisionStatus
	Attempts    int
	HTTPStatus  int
	LastError   string
	RequestedAt *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}
