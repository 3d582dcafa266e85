package repository

import (
	"context"
	"regexp"

	"github.com/spec-kit/event-service/internal/domain"
)

// querier is the subset of a database handle the repositories need. Queries
// are written with $n placeholders, numbered in order of appearance and each
// used once, so dialects with positional ? markers can rebind them.
type querier interface {
	exec(ctx context.Context, query string, args ...any) (int64, error)
	query(ctx context.Context, query string, args ...any) (rows, error)
	queryRow(ctx context.Context, query string, args ...any) row
	copyRows(ctx context.Context, table string, columns []string, records [][]any) (int64, error)
	dialect() *dialect
}

// database is a pooled handle able to start transactions.
type database interface {
	querier
	begin(ctx context.Context) (transaction, error)
	ping(ctx context.Context) error
}

type transaction interface {
	querier
	commit(ctx context.Context) error
	rollback(ctx context.Context) error
}

type row interface {
	Scan(dest ...any) error
}

type rows interface {
	Next() bool
	Scan(dest ...any) error
	Values() ([]any, error)
	Columns() []string
	Err() error
	Close()
}

// dialect captures the SQL differences between the supported drivers.
type dialect struct {
	name          string
	positional    bool
	lockClause    string
	identityDDL   string
	timestampDDL  string
	columnTypes   map[domain.ColumnType]string
	tableExistsQL string
}

var placeholder = regexp.MustCompile(`\$\d+`)

func (d *dialect) bind(query string) string {
	if !d.positional {
		return query
	}
	return placeholder.ReplaceAllString(query, "?")
}

func (d *dialect) columnType(t domain.ColumnType) string {
	if ddl, ok := d.columnTypes[t]; ok {
		return ddl
	}
	return d.columnTypes[domain.ColumnText]
}

var postgresDialect = &dialect{
	name:         "postgres",
	lockClause:   " FOR UPDATE",
	identityDDL:  "id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY",
	timestampDDL: "TIMESTAMPTZ NOT NULL DEFAULT NOW()",
	columnTypes: map[domain.ColumnType]string{
		domain.ColumnInteger:   "BIGINT",
		domain.ColumnDecimal:   "NUMERIC(10,2)",
		domain.ColumnTimestamp: "TIMESTAMPTZ",
		domain.ColumnVarchar:   "VARCHAR(255)",
		domain.ColumnText:      "TEXT",
	},
	tableExistsQL: `SELECT EXISTS (
        SELECT 1 FROM information_schema.tables
        WHERE table_schema = current_schema() AND table_name = $1)`,
}

var sqliteDialect = &dialect{
	name:         "sqlite",
	positional:   true,
	identityDDL:  "id INTEGER PRIMARY KEY AUTOINCREMENT",
	timestampDDL: "TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP",
	columnTypes: map[domain.ColumnType]string{
		domain.ColumnInteger:   "INTEGER",
		domain.ColumnDecimal:   "REAL",
		domain.ColumnTimestamp: "TIMESTAMP",
		domain.ColumnVarchar:   "VARCHAR(255)",
		domain.ColumnText:      "TEXT",
	},
	tableExistsQL: `SELECT EXISTS (
        SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = $1)`,
}
