package migrate

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Runner applies goose SQL migrations against a PostgreSQL database.
type Runner struct {
	db  *sql.DB
	dir string
}

// New opens a database handle for the runner. Close must be called when done.
func New(databaseURL, dir string) (*Runner, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("migrate: open database: %w", err)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: set dialect: %w", err)
	}
	return &Runner{db: db, dir: dir}, nil
}

// Ping verifies database connectivity.
func (r *Runner) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Ensure applies all pending migrations.
func (r *Runner) Ensure(ctx context.Context) error {
	if err := goose.UpContext(ctx, r.db, r.dir); err != nil {
		return fmt.Errorf("migrate: up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) error {
	if err := goose.DownContext(ctx, r.db, r.dir); err != nil {
		return fmt.Errorf("migrate: down: %w", err)
	}
	return nil
}

// Status prints the migration status table.
func (r *Runner) Status(ctx context.Context) error {
	if err := goose.StatusContext(ctx, r.db, r.dir); err != nil {
		return fmt.Errorf("migrate: status: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (r *Runner) Close() error {
	return r.db.Close()
}
