package domain

import "time"

// ColumnType is the storage type inferred for an ingested column.
type ColumnType string

const (
	ColumnInteger   ColumnType = "integer"
	ColumnDecimal   ColumnType = "decimal"
	ColumnTimestamp ColumnType = "timestamp"
	ColumnVarchar   ColumnType = "varchar"
	ColumnText      ColumnType = "text"
)

// VarcharMaxLen is the longest value stored in a bounded text column.
const VarcharMaxLen = 255

// ColumnSpec describes one column of an ad-hoc table.
type ColumnSpec struct {
	Name     string     `json:"name"`
	Source   string     `json:"source"`
	Type     ColumnType `json:"type"`
	Nullable bool       `json:"nullable"`
}

// IngestedTable is the registry entry of a table created from an upload.
type IngestedTable struct {
	Name      string
	Columns   []ColumnSpec
	RowCount  int
	CreatedBy string
	CreatedAt time.Time
}

// TablePage is a window of rows read from an ad-hoc table.
type TablePage struct {
	Columns []string
	Rows    []map[string]any
	Total   int
}
