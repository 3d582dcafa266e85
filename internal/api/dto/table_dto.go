package dto

import (
	"time"

	"github.com/spec-kit/event-service/internal/domain"
	"github.com/spec-kit/event-service/internal/ingest"
)

// TableResponse describes an ad-hoc table created from an upload.
type TableResponse struct {
	Name      string              `json:"name"`
	Columns   []domain.ColumnSpec `json:"columns"`
	RowCount  int                 `json:"rowCount"`
	CreatedBy string              `json:"createdBy"`
	CreatedAt time.Time           `json:"createdAt"`
}

// EventImportResponse summarizes an upload in events mode.
type EventImportResponse struct {
	Processed int              `json:"processed"`
	Created   int              `json:"created"`
	Skipped   []ingest.RowSkip `json:"skipped"`
	Events    []EventResponse  `json:"events"`
}

// TableImportResponse summarizes an upload in table mode.
type TableImportResponse struct {
	Table   TableResponse    `json:"table"`
	Preview []map[string]any `json:"preview"`
}

// TableRowsResponse is one page of an ad-hoc table.
type TableRowsResponse struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// NewTableResponse converts a registry entry.
func NewTableResponse(table *domain.IngestedTable) TableResponse {
	columns := table.Columns
	if columns == nil {
		columns = []domain.ColumnSpec{}
	}
	return TableResponse{
		Name:      table.Name,
		Columns:   columns,
		RowCount:  table.RowCount,
		CreatedBy: table.CreatedBy,
		CreatedAt: table.CreatedAt,
	}
}
