package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dashboard-gate/internal/domain"
)

// ErrNotFound is returned when no record exists for a key.
var ErrNotFound = errors.New("provision record not found")

// ProvisionRepository persists the latest provisioning record per resource key.
type ProvisionRepository interface {
	Save(ctx context.Context, record domain.ProvisionRecord) error
	Get(ctx context.Context, key string) (*domain.ProvisionRecord, error)
}

type provisionRepository struct {
	pool *pgxpool.Pool
}

// NewProvisionRepository returns a Postgres-backed implementation, or an
// in-memory one when pool is nil.
func NewProvisionRepository(pool *pgxpool.Pool) ProvisionRepository {
	if pool == nil {
		return NewMemoryProvisionRepository()
	}
	return &provisionRepository{pool: pool}
}

func (r *provisionRepository) Save(ctx context.Context, record domain.ProvisionRecord) error {
	const query = `
        INSERT INTO provision_records (resource_key, status, attempts, http_status, last_error, requested_at, completed_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
        ON CONFLICT (resource_key) DO UPDATE SET
            status=EXCLUDED.status,
            attempts=EXCLUDED.attempts,
            http_status=EXCLUDED.http_status,
            last_error=EXCLUDED.last_error,
            requested_at=EXCLUDED.requested_at,
            completed_at=EXCLUDED.completed_at,
            updated_at=NOW()`

	_, err := r.pool.Exec(ctx, query,
		record.Key,
		record.Status,
		record.Attempts,
		record.HTTPStatus,
		record.LastError,
		record.RequestedAt,
		record.CompletedAt,
	)
	return err
}

func (r *provisionRepository) Get(ctx context.Context, key string) (*domain.ProvisionRecord, error) {
	const query = `
        SELECT resource_key, status, attempts, http_status, last_error, requested_at, completed_at, updated_at
        FROM provision_records WHERE resource_key=$1`

	var record domain.ProvisionRecord
	if err := r.pool.QueryRow(ctx, query, key).Scan(
		&record.Key,
		&record.Status,
		&record.Attempts,
		&record.HTTPStatus,
		&record.LastError,
		&record.RequestedAt,
		&record.CompletedAt,
		&record.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

type memoryProvisionRepository struct {
	mu      sync.RWMutex
	records map[string]domain.ProvisionRecord
}

// NewMemoryProvisionRepository keeps records for the life of the process.
func NewMemoryProvisionRepository() ProvisionRepository {
	return &memoryProvisionRepository{records: make(map[string]domain.ProvisionRecord)}
}

func (r *memoryProvisionRepository) Save(_ context.Context, record domain.ProvisionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.Key] = record
	return nil
}

func (r *memoryProvisionRepository) Get(_ context.Context, key string) (*domain.ProvisionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}
