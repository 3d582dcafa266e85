package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// migrationTarget applies statements and keeps the schema_migrations ledger.
// apply runs one migration file and records its version in a single
// transaction, so a failing file leaves neither partial schema nor a row.
type migrationTarget interface {
	exec(ctx context.Context, statement string) error
	applied(ctx context.Context) (map[string]bool, error)
	apply(ctx context.Context, version, statements string) error
}

// RunMigrations executes the embedded PostgreSQL migrations not yet recorded.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping migrations")
		return nil
	}
	return runMigrations(ctx, migrationFiles, "postgres", pgxTarget{pool: pool}, logger)
}

// RunSQLiteMigrations executes the embedded SQLite migrations not yet recorded.
func RunSQLiteMigrations(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	if db == nil {
		logger.Warn("no sqlite handle available; skipping migrations")
		return nil
	}
	return runMigrations(ctx, migrationFiles, "sqlite", sqlTarget{db: db}, logger)
}

func runMigrations(ctx context.Context, files fs.FS, dialect string, target migrationTarget, logger *zap.Logger) error {
	if err := target.exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
        version    VARCHAR(255) PRIMARY KEY,
        applied_at TIMESTAMP NOT NULL
    )`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	dir := path.Join("migrations", dialect)
	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	filenames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		filenames = append(filenames, entry.Name())
	}
	sort.Strings(filenames)

	done, err := target.applied(ctx)
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}

	count := 0
	for _, name := range filenames {
		if done[name] {
			continue
		}
		content, err := fs.ReadFile(files, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		logger.Info("applying migration", zap.String("file", name), zap.String("driver", dialect))
		if err := target.apply(ctx, name, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		count++
	}

	logger.Info("migrations applied", zap.Int("count", count), zap.Int("total", len(filenames)))
	return nil
}

type pgxTarget struct {
	pool *pgxpool.Pool
}

func (t pgxTarget) exec(ctx context.Context, statement string) error {
	_, err := t.pool.Exec(ctx, statement)
	return err
}

func (t pgxTarget) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := t.pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := map[string]bool{}
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		done[version] = true
	}
	return done, rows.Err()
}

func (t pgxTarget) apply(ctx context.Context, version, statements string) error {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck

	if _, err := tx.Exec(ctx, statements); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)`,
		version, time.Now().UTC()); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return tx.Commit(ctx)
}

type sqlTarget struct {
	db *sql.DB
}

func (t sqlTarget) exec(ctx context.Context, statement string) error {
	_, err := t.db.ExecContext(ctx, statement)
	return err
}

func (t sqlTarget) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := t.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := map[string]bool{}
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		done[version] = true
	}
	return done, rows.Err()
}

func (t sqlTarget) apply(ctx context.Context, version, statements string) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, statements); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		version, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return tx.Commit()
}
