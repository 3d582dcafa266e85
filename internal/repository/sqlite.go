package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// sqliteTimeLayout is fixed width so stored timestamps order lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// maxSQLiteVariables bounds the bind parameters of one multi-row insert.
const maxSQLiteVariables = 999

// sqlConn is implemented by both *sql.DB and *sql.Tx.
type sqlConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlQuerier struct {
	conn sqlConn
}

func (q sqlQuerier) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.conn.ExecContext(ctx, sqliteDialect.bind(query), sqliteArgs(args)...)
	if err != nil {
		return 0, normalize(err)
	}
	return res.RowsAffected()
}

func (q sqlQuerier) query(ctx context.Context, query string, args ...any) (rows, error) {
	r, err := q.conn.QueryContext(ctx, sqliteDialect.bind(query), sqliteArgs(args)...)
	if err != nil {
		return nil, normalize(err)
	}
	return &sqlRows{rows: r}, nil
}

func (q sqlQuerier) queryRow(ctx context.Context, query string, args ...any) row {
	return sqlRow{row: q.conn.QueryRowContext(ctx, sqliteDialect.bind(query), sqliteArgs(args)...)}
}

func (q sqlQuerier) copyRows(ctx context.Context, table string, columns []string, records [][]any) (int64, error) {
	if len(records) == 0 || len(columns) == 0 {
		return 0, nil
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", pgx.Identifier{table}.Sanitize(), strings.Join(quoted, ", "))

	batch := maxSQLiteVariables / len(columns)
	if batch < 1 {
		batch = 1
	}
	var inserted int64
	for start := 0; start < len(records); start += batch {
		end := start + batch
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]
		tuples := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*len(columns))
		for i, record := range chunk {
			tuples[i] = tuple
			args = append(args, record...)
		}
		res, err := q.conn.ExecContext(ctx, prefix+strings.Join(tuples, ", "), sqliteArgs(args)...)
		if err != nil {
			return inserted, normalize(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += n
	}
	return inserted, nil
}

func (sqlQuerier) dialect() *dialect {
	return sqliteDialect
}

type sqlDatabase struct {
	sqlQuerier
	db *sql.DB
}

func (d sqlDatabase) begin(ctx context.Context) (transaction, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return sqlTransaction{sqlQuerier: sqlQuerier{conn: tx}, tx: tx}, nil
}

func (d sqlDatabase) ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

type sqlTransaction struct {
	sqlQuerier
	tx *sql.Tx
}

func (t sqlTransaction) commit(context.Context) error {
	return normalize(t.tx.Commit())
}

func (t sqlTransaction) rollback(context.Context) error {
	return t.tx.Rollback()
}

type sqlRow struct {
	row *sql.Row
}

func (r sqlRow) Scan(dest ...any) error {
	return normalize(r.row.Scan(wrapTimes(dest)...))
}

type sqlRows struct {
	rows    *sql.Rows
	columns []string
}

func (r *sqlRows) Next() bool { return r.rows.Next() }

func (r *sqlRows) Scan(dest ...any) error {
	return normalize(r.rows.Scan(wrapTimes(dest)...))
}

func (r *sqlRows) Columns() []string {
	if r.columns == nil {
		r.columns, _ = r.rows.Columns()
	}
	return r.columns
}

func (r *sqlRows) Values() ([]any, error) {
	values := make([]any, len(r.Columns()))
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		return nil, err
	}
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values, nil
}

func (r *sqlRows) Err() error { return normalize(r.rows.Err()) }

func (r *sqlRows) Close() { _ = r.rows.Close() }

func sqliteArgs(args []any) []any {
	out := make([]any, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case time.Time:
			out[i] = v.UTC().Format(sqliteTimeLayout)
		case *time.Time:
			if v == nil {
				out[i] = nil
			} else {
				out[i] = v.UTC().Format(sqliteTimeLayout)
			}
		default:
			out[i] = arg
		}
	}
	return out
}

func wrapTimes(dest []any) []any {
	out := make([]any, len(dest))
	for i, d := range dest {
		if t, ok := d.(*time.Time); ok {
			out[i] = &sqliteTime{t: t}
			continue
		}
		out[i] = d
	}
	return out
}

// sqliteTime scans timestamps the driver returns either parsed or as text.
type sqliteTime struct {
	t *time.Time
}

var sqliteTimeLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (s *sqliteTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*s.t = v.UTC()
		return nil
	case string:
		return s.parse(v)
	case []byte:
		return s.parse(string(v))
	case nil:
		*s.t = time.Time{}
		return nil
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
}

func (s *sqliteTime) parse(v string) error {
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			*s.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("parse time %q", v)
}
