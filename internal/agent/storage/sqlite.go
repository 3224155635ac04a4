package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/webtrail/internal/agent/storage/migrations"
	"github.com/dmitrijs2005/webtrail/internal/dbx"
)

// SQLiteAdapter implements Adapter on top of a DBTX (either *sql.DB or *sql.Tx).
type SQLiteAdapter struct {
	db dbx.DBTX
}

// NewSQLiteAdapter returns an adapter bound to the given DBTX.
func NewSQLiteAdapter(db dbx.DBTX) *SQLiteAdapter {
	return &SQLiteAdapter{db: db}
}

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the agent database at dsn, migrates it and
// returns both the raw handle and an adapter over it. The caller owns the
// returned *sql.DB.
func Open(ctx context.Context, dsn string) (*sql.DB, *SQLiteAdapter, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, NewSQLiteAdapter(db), nil
}

func (a *SQLiteAdapter) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	var value []byte
	err := a.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE bucket = ? AND key = ?`, bucket, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s[%s]: %w", bucket, key, err)
	}
	return value, nil
}

func (a *SQLiteAdapter) Set(ctx context.Context, bucket, key string, value []byte) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO kv (bucket, key, value) VALUES (?, ?, ?)
		ON CONFLICT(bucket, key) DO UPDATE SET value = excluded.value
	`, bucket, key, value)
	if err != nil {
		return fmt.Errorf("failed to set %s[%s]: %w", bucket, key, err)
	}
	return nil
}

func (a *SQLiteAdapter) Delete(ctx context.Context, bucket, key string) error {
	_, err := a.db.ExecContext(ctx,
		`DELETE FROM kv WHERE bucket = ? AND key = ?`, bucket, key)
	if err != nil {
		return fmt.Errorf("failed to delete %s[%s]: %w", bucket, key, err)
	}
	return nil
}

func (a *SQLiteAdapter) List(ctx context.Context, bucket string) (map[string][]byte, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE bucket = ?`, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", bucket, err)
	}
	defer rows.Close()

	result := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", bucket, err)
		}
		result[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", bucket, err)
	}

	return result, nil
}

func (a *SQLiteAdapter) Clear(ctx context.Context, bucket string) error {
	_, err := a.db.ExecContext(ctx, `DELETE FROM kv WHERE bucket = ?`, bucket)
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", bucket, err)
	}
	return nil
}
