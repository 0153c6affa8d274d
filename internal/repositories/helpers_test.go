package repositories

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/dbsync/internal/database"
	"github.com/prudhvinik1/dbsync/internal/models"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tclog "github.com/testcontainers/testcontainers-go/log"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

type nopLogger struct{}

func (*nopLogger) Printf(_ string, _ ...any) {}

var _ tclog.Logger = (*nopLogger)(nil)

// newTestSQLiteRepository migrates a fresh SQLite file and returns a repository on it
func newTestSQLiteRepository(t *testing.T) *SQLiteRowRepository {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dbsync.db")
	require.NoError(t, database.MigrateUp("sqlite", path))

	db, err := database.NewSQLiteDB(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewSQLiteRowRepository(db)
}

// newTestPostgresPool starts a Postgres container, migrates it and returns a pool.
// The test is skipped when no container runtime is available.
func newTestPostgresPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	tc.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("dbsync"),
		postgres.WithUsername("dbsync"),
		postgres.WithPassword("dbsync"),
		postgres.BasicWaitStrategies(),
		tc.WithLogger(&nopLogger{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { tc.CleanupContainer(t, container) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.MigrateUp("postgres", connStr))

	pool, err := database.NewPostgresPool(ctx, connStr, database.WithMaxConns(4))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

// newTestRows builds n rows with the given status
func newTestRows(n int, status models.CompletionStatus) []*models.Row {
	rows := make([]*models.Row, n)
	for i := range rows {
		rows[i] = &models.Row{
			ID:               uuid.New(),
			Name:             fmt.Sprintf("Name%d", i),
			Email:            fmt.Sprintf("name%d@email.com", i),
			Age:              10 + i,
			CompletionStatus: status,
		}
	}
	return rows
}
