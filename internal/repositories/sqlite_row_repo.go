package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prudhvinik1/dbsync/internal/models"
)

// SQLiteRowRepository stores rows in a local SQLite file. The id column holds
// the UUID in its text form.
type SQLiteRowRepository struct {
	db *sql.DB
}

func NewSQLiteRowRepository(db *sql.DB) *SQLiteRowRepository {
	return &SQLiteRowRepository{db: db}
}

func (r *SQLiteRowRepository) FetchBatch(ctx context.Context, status models.CompletionStatus, limit int) ([]*models.Row, error) {
	if limit <= 0 {
		return []*models.Row{}, nil
	}

	query := `SELECT id, name, email, age, completion_status
	          FROM sync_rows
	          WHERE completion_status = ?
	          ORDER BY created_at ASC
	          LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, int64(status), limit)
	if err != nil {
		return nil, storeErr("query rows", err)
	}
	defer rows.Close()

	result := make([]*models.Row, 0, limit)
	for rows.Next() {
		var (
			row  models.Row
			code int64
		)
		if err := rows.Scan(&row.ID, &row.Name, &row.Email, &row.Age, &code); err != nil {
			return nil, storeErr("scan row", err)
		}
		if row.CompletionStatus, err = models.ParseCompletionStatus(code); err != nil {
			return nil, storeErr("scan row", err)
		}
		result = append(result, &row)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate rows", err)
	}

	return result, nil
}

func (r *SQLiteRowRepository) SaveAll(ctx context.Context, rows []*models.Row) error {
	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO sync_rows (id, name, email, age, completion_status)
	          VALUES (?, ?, ?, ?, ?)
	          ON CONFLICT (id) DO UPDATE
	          SET name = excluded.name,
	              email = excluded.email,
	              age = excluded.age,
	              completion_status = excluded.completion_status,
	              updated_at = strftime('%Y-%m-%d %H:%M:%f', 'now')`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return storeErr("prepare upsert", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.ID.String(), row.Name, row.Email, row.Age, int64(row.CompletionStatus)); err != nil {
			return storeErr("save rows", fmt.Errorf("row %s: %w", row.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit transaction", err)
	}
	return nil
}

func (r *SQLiteRowRepository) CountByStatus(ctx context.Context, status models.CompletionStatus) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_rows WHERE completion_status = ?`, int64(status)).Scan(&count)
	if err != nil {
		return 0, storeErr("count rows", err)
	}
	return count, nil
}

func (r *SQLiteRowRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}
