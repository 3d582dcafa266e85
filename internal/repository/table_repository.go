package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/event-service/internal/domain"
)

// Columns every ad-hoc table carries besides the spreadsheet columns.
var systemColumns = []string{"id", "created_at", "updated_at"}

// SystemColumn reports whether name is managed by the table itself.
func SystemColumn(name string) bool {
	for _, c := range systemColumns {
		if c == name {
			return true
		}
	}
	return false
}

// Names are validated by callers before reaching these methods; quoting
// still goes through pgx.Identifier so every statement is well formed.
type tableRepository struct {
	q querier
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (r *tableRepository) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.q.queryRow(ctx, r.q.dialect().tableExistsQL, name).Scan(&exists)
	return exists, err
}

func (r *tableRepository) Create(ctx context.Context, name string, columns []domain.ColumnSpec) error {
	d := r.q.dialect()
	defs := make([]string, 0, len(columns)+3)
	defs = append(defs, d.identityDDL)
	for _, c := range columns {
		defs = append(defs, quote(c.Name)+" "+d.columnType(c.Type))
	}
	defs = append(defs,
		"created_at "+d.timestampDDL,
		"updated_at "+d.timestampDDL,
	)

	ddl := fmt.Sprintf("CREATE TABLE %s (\n    %s\n)", quote(name), strings.Join(defs, ",\n    "))
	_, err := r.q.exec(ctx, ddl)
	return err
}

func (r *tableRepository) Insert(ctx context.Context, name string, columns []domain.ColumnSpec, records [][]any) (int64, error) {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return r.q.copyRows(ctx, name, names, records)
}

func (r *tableRepository) Register(ctx context.Context, table *domain.IngestedTable) error {
	const query = `
        INSERT INTO ingested_tables (name, columns, row_count, created_by, created_at)
        VALUES ($1, $2, $3, $4, $5)`

	columns, err := json.Marshal(table.Columns)
	if err != nil {
		return fmt.Errorf("encode columns: %w", err)
	}
	table.CreatedAt = time.Now().UTC()
	_, err = r.q.exec(ctx, query, table.Name, columns, table.RowCount, table.CreatedBy, table.CreatedAt)
	return err
}

func (r *tableRepository) List(ctx context.Context) ([]domain.IngestedTable, error) {
	rows, err := r.q.query(ctx, `
        SELECT name, columns, row_count, created_by, created_at
        FROM ingested_tables ORDER BY created_at DESC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []domain.IngestedTable
	for rows.Next() {
		table, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, *table)
	}
	return tables, rows.Err()
}

func (r *tableRepository) Get(ctx context.Context, name string) (*domain.IngestedTable, error) {
	return scanTable(r.q.queryRow(ctx, `
        SELECT name, columns, row_count, created_by, created_at
        FROM ingested_tables WHERE name=$1`, name))
}

// Read returns one page of rows ordered by the identity column.
func (r *tableRepository) Read(ctx context.Context, name string, limit, offset int) (*domain.TablePage, error) {
	page := &domain.TablePage{}
	if err := r.q.queryRow(ctx, `SELECT COUNT(*) FROM `+quote(name)).Scan(&page.Total); err != nil {
		return nil, err
	}

	query, args := paginate(`SELECT * FROM `+quote(name)+` ORDER BY id`, nil, limit, offset)
	rows, err := r.q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page.Columns = rows.Columns()
	page.Rows = []map[string]any{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		record := make(map[string]any, len(values))
		for i, v := range values {
			record[page.Columns[i]] = v
		}
		page.Rows = append(page.Rows, record)
	}
	return page, rows.Err()
}

// Drop removes the table and its registry entry.
func (r *tableRepository) Drop(ctx context.Context, name string) error {
	if _, err := r.q.exec(ctx, `DROP TABLE `+quote(name)); err != nil {
		return err
	}
	_, err := r.q.exec(ctx, `DELETE FROM ingested_tables WHERE name=$1`, name)
	return err
}

func scanTable(row row) (*domain.IngestedTable, error) {
	var (
		table   domain.IngestedTable
		columns []byte
	)
	if err := row.Scan(&table.Name, &columns, &table.RowCount, &table.CreatedBy, &table.CreatedAt); err != nil {
		return nil, err
	}
	if len(columns) > 0 {
		if err := json.Unmarshal(columns, &table.Columns); err != nil {
			return nil, fmt.Errorf("decode columns of %s: %w", table.Name, err)
		}
	}
	return &table, nil
}
