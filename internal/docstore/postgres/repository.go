// Package postgres is the PostgreSQL docstore.Store used by the store
// server. Documents live in one table keyed by (collection, id); a trigger
// raises a notification per change so subscribers on every server instance
// get fresh snapshots.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/adminconsole/internal/common"
	"github.com/dmitrijs2005/adminconsole/internal/docstore"
)

// DBTX is the subset of database/sql the repository needs.
// Both *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db DBTX
}

func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, collection, id string, fields docstore.Fields) error {
	data, err := encodeFields(fields)
	if err != nil {
		return err
	}

	query := `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)`

	if _, err := r.db.ExecContext(ctx, query, collection, id, data); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// Merge applies a partial update: keys in fields overwrite, the rest stay.
func (r *Repository) Merge(ctx context.Context, collection, id string, fields docstore.Fields) error {
	data, err := encodeFields(fields)
	if err != nil {
		return err
	}

	query :=
		`UPDATE documents SET data = data || $3::jsonb, updated_at = now()
		 WHERE collection = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, collection, id, data)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *Repository) Remove(ctx context.Context, collection, id string) error {
	query := `DELETE FROM documents WHERE collection = $1 AND id = $2`

	if _, err := r.db.ExecContext(ctx, query, collection, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// SelectAll lists a collection in insertion order.
func (r *Repository) SelectAll(ctx context.Context, collection string) ([]docstore.Record, error) {
	query := `SELECT id, data FROM documents WHERE collection = $1 ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	records := []docstore.Record{}
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}

		fields := docstore.Fields{}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &fields); err != nil {
				return nil, fmt.Errorf("decode document %s: %w", id, err)
			}
		}
		records = append(records, docstore.Record{ID: id, Fields: fields})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return records, nil
}

func encodeFields(fields docstore.Fields) (string, error) {
	if fields == nil {
		fields = docstore.Fields{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}
