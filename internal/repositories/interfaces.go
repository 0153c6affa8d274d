package repositories

import (
	"context"
	"time"

	"github.com/prudhvinik1/dbsync/internal/models"
)

//go:generate mockgen -destination=mocks/mock_interfaces.go -package=mocks -source=interfaces.go RowRepository,CycleLock

// RowRepository is the persistent table of synchronized rows.
type RowRepository interface {
	// FetchBatch returns at most limit rows whose status equals status.
	// Callers must not rely on the order of the result.
	FetchBatch(ctx context.Context, status models.CompletionStatus, limit int) ([]*models.Row, error)
	// SaveAll upserts every row by id in a single transaction.
	SaveAll(ctx context.Context, rows []*models.Row) error
	CountByStatus(ctx context.Context, status models.CompletionStatus) (int64, error)
	Ping(ctx context.Context) error
}

// CycleLock guards a sync cycle across processes sharing the same table.
type CycleLock interface {
	// Acquire returns a release token when the lock was taken, or ok=false when
	// another holder owns it.
	Acquire(ctx context.Context, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, token string) error
}
