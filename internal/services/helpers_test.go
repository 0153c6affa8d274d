package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/prudhvinik1/dbsync/internal/database"
	"github.com/prudhvinik1/dbsync/internal/models"
	"github.com/prudhvinik1/dbsync/internal/repositories"
	"github.com/stretchr/testify/require"
)

// newTestStore migrates a fresh SQLite file and seeds it with rows
func newTestStore(t *testing.T, seed []*models.Row) *repositories.SQLiteRowRepository {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dbsync.db")
	require.NoError(t, database.MigrateUp("sqlite", path))

	db, err := database.NewSQLiteDB(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := repositories.NewSQLiteRowRepository(db)
	if len(seed) > 0 {
		require.NoError(t, store.SaveAll(context.Background(), seed))
	}
	return store
}

func newTestRows(n int) []*models.Row {
	rows := make([]*models.Row, n)
	for i := range rows {
		rows[i] = &models.Row{
			ID:               uuid.New(),
			Name:             fmt.Sprintf("Name%d", i),
			Email:            fmt.Sprintf("name%d@email.com", i),
			Age:              10 + i,
			CompletionStatus: models.StatusNotCompleted,
		}
	}
	return rows
}

func countStatus(t *testing.T, store repositories.RowRepository, status models.CompletionStatus) int64 {
	t.Helper()
	n, err := store.CountByStatus(context.Background(), status)
	require.NoError(t, err)
	return n
}
