package ingest

import (
	"errors"

	"github.com/spec-kit/event-service/internal/domain"
)

var (
	ErrNoHeader = errors.New("spreadsheet has no header row")
	ErrNoRows   = errors.New("spreadsheet has no data rows")
)

// Sheet is the raw text of one worksheet: a header row and the data rows
// below it, each padded to the header width.
type Sheet struct {
	Headers []string
	Rows    [][]string
}

// Column is a normalized header with its inferred type.
type Column struct {
	Name   string
	Source string
	Type   domain.ColumnType
}

// Dataset is a sheet after header normalization, value normalization and
// type inference.
type Dataset struct {
	Columns []Column
	Rows    [][]Value
}

// Prepare normalizes a sheet. Duplicate headers after normalization reject
// the whole sheet.
func Prepare(sheet Sheet) (*Dataset, error) {
	if len(sheet.Headers) == 0 {
		return nil, ErrNoHeader
	}
	names, err := NormalizeHeaders(sheet.Headers)
	if err != nil {
		return nil, err
	}

	rows := make([][]Value, 0, len(sheet.Rows))
	for _, raw := range sheet.Rows {
		row := make([]Value, len(names))
		for i := range names {
			if i < len(raw) {
				row[i] = NormalizeValue(raw[i])
			}
		}
		rows = append(rows, row)
	}

	columns := make([]Column, len(names))
	values := make([]Value, len(rows))
	for i, name := range names {
		for r, row := range rows {
			values[r] = row[i]
		}
		columns[i] = Column{Name: name, Source: sheet.Headers[i], Type: InferColumnType(values)}
	}
	return &Dataset{Columns: columns, Rows: rows}, nil
}

// Empty reports whether the dataset carries no data rows.
func (d *Dataset) Empty() bool {
	return len(d.Rows) == 0
}

// Specs describes the columns for table creation.
func (d *Dataset) Specs() []domain.ColumnSpec {
	specs := make([]domain.ColumnSpec, len(d.Columns))
	for i, c := range d.Columns {
		specs[i] = domain.ColumnSpec{Name: c.Name, Source: c.Source, Type: c.Type, Nullable: true}
	}
	return specs
}

// Records returns every row coerced to its column's storage type.
func (d *Dataset) Records() [][]any {
	records := make([][]any, len(d.Rows))
	for r, row := range d.Rows {
		record := make([]any, len(d.Columns))
		for i, c := range d.Columns {
			record[i] = row[i].As(c.Type)
		}
		records[r] = record
	}
	return records
}

// Index returns the position of the named column, or -1.
func (d *Dataset) Index(name string) int {
	for i, c := range d.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}
