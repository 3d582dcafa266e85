package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxConn is implemented by both *pgxpool.Pool and pgx.Tx.
type pgxConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

type pgxQuerier struct {
	conn pgxConn
}

func (q pgxQuerier) exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := q.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, normalize(err)
	}
	return tag.RowsAffected(), nil
}

func (q pgxQuerier) query(ctx context.Context, query string, args ...any) (rows, error) {
	r, err := q.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, normalize(err)
	}
	return pgxRows{r}, nil
}

func (q pgxQuerier) queryRow(ctx context.Context, query string, args ...any) row {
	return pgxRow{q.conn.QueryRow(ctx, query, args...)}
}

func (q pgxQuerier) copyRows(ctx context.Context, table string, columns []string, records [][]any) (int64, error) {
	n, err := q.conn.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(records))
	return n, normalize(err)
}

func (pgxQuerier) dialect() *dialect {
	return postgresDialect
}

type pgxDatabase struct {
	pgxQuerier
	pool *pgxpool.Pool
}

func (d pgxDatabase) begin(ctx context.Context) (transaction, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return pgxTransaction{pgxQuerier: pgxQuerier{conn: tx}, tx: tx}, nil
}

func (d pgxDatabase) ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

type pgxTransaction struct {
	pgxQuerier
	tx pgx.Tx
}

func (t pgxTransaction) commit(ctx context.Context) error {
	return normalize(t.tx.Commit(ctx))
}

func (t pgxTransaction) rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

type pgxRow struct {
	row pgx.Row
}

func (r pgxRow) Scan(dest ...any) error {
	return normalize(r.row.Scan(dest...))
}

type pgxRows struct {
	pgx.Rows
}

func (r pgxRows) Columns() []string {
	fields := r.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Values converts NUMERIC cells to float64 so ad-hoc rows serialize as plain numbers.
func (r pgxRows) Values() ([]any, error) {
	values, err := r.Rows.Values()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if n, ok := v.(pgtype.Numeric); ok {
			f, err := n.Float64Value()
			if err != nil {
				return nil, err
			}
			if f.Valid {
				values[i] = f.Float64
			} else {
				values[i] = nil
			}
		}
	}
	return values, nil
}

func (r pgxRows) Err() error {
	return normalize(r.Rows.Err())
}
