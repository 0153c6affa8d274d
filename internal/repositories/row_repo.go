package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/dbsync/internal/models"
)

type PostgresRowRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRowRepository(pool *pgxpool.Pool) *PostgresRowRepository {
	return &PostgresRowRepository{pool: pool}
}

func (r *PostgresRowRepository) FetchBatch(ctx context.Context, status models.CompletionStatus, limit int) ([]*models.Row, error) {
	if limit <= 0 {
		return []*models.Row{}, nil
	}

	query := `SELECT id, name, email, age, completion_status
	          FROM sync_rows
	          WHERE completion_status = $1
	          ORDER BY created_at ASC
	          LIMIT $2`

	rows, err := r.pool.Query(ctx, query, int16(status), limit)
	if err != nil {
		return nil, storeErr("query rows", err)
	}
	defer rows.Close()

	result := make([]*models.Row, 0, limit)
	for rows.Next() {
		var (
			row  models.Row
			code int16
		)
		if err := rows.Scan(&row.ID, &row.Name, &row.Email, &row.Age, &code); err != nil {
			return nil, storeErr("scan row", err)
		}
		if row.CompletionStatus, err = models.ParseCompletionStatus(int64(code)); err != nil {
			return nil, storeErr("scan row", err)
		}
		result = append(result, &row)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate rows", err)
	}

	return result, nil
}

// SaveAll queues one upsert per row on a single batch inside a transaction, so
// either every row is written or none is.
func (r *PostgresRowRepository) SaveAll(ctx context.Context, rows []*models.Row) error {
	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO sync_rows (id, name, email, age, completion_status)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (id) DO UPDATE
	          SET name = EXCLUDED.name,
	              email = EXCLUDED.email,
	              age = EXCLUDED.age,
	              completion_status = EXCLUDED.completion_status,
	              updated_at = NOW()`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storeErr("begin transaction", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Warn("Failed to roll back row save", "error", rbErr)
		}
	}()

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(query, row.ID, row.Name, row.Email, row.Age, int16(row.CompletionStatus))
	}

	results := tx.SendBatch(ctx, batch)
	for _, row := range rows {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return storeErr("save rows", fmt.Errorf("row %s: %w", row.ID, err))
		}
	}
	if err := results.Close(); err != nil {
		return storeErr("save rows", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storeErr("commit transaction", err)
	}
	return nil
}

func (r *PostgresRowRepository) CountByStatus(ctx context.Context, status models.CompletionStatus) (int64, error) {
	query := `SELECT COUNT(*) FROM sync_rows WHERE completion_status = $1`

	var count int64
	if err := r.pool.QueryRow(ctx, query, int16(status)).Scan(&count); err != nil {
		return 0, storeErr("count rows", err)
	}
	return count, nil
}

func (r *PostgresRowRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}
