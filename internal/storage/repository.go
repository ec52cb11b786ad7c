package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Repository is the relational Store used by the sqlite and postgres backends.
type Repository struct {
	*Queries
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database file, migrates
// it and returns a Store backed by it.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; a second connection would only add SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(DialectSQLite, dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite store ready", "path", dbPath)
	return &Repository{Queries: New(db, DialectSQLite), db: db}, nil
}

// NewPostgresRepository connects through the pgx stdlib driver and migrates
// the schema.
func NewPostgresRepository(ctx context.Context, url string) (*Repository, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(DialectPostgres, url); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.InfoContext(ctx, "Postgres store ready")
	return &Repository{Queries: New(db, DialectPostgres), db: db}, nil
}

// Atomic runs fn inside a database transaction and commits only if fn
// succeeds.
func (r *Repository) Atomic(ctx context.Context, fn func(Entities) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
			}
		}
	}()

	if err = fn(r.Queries.WithTx(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

var _ Store = (*Repository)(nil)
