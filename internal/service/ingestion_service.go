package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/event-service/internal/auth"
	"github.com/spec-kit/event-service/internal/domain"
	"github.com/spec-kit/event-service/internal/events"
	"github.com/spec-kit/event-service/internal/ingest"
	"github.com/spec-kit/event-service/internal/repository"
	apperrors "github.com/spec-kit/event-service/pkg/util/errorutil"
)

// Ingestion modes, also used as metric labels.
const (
	ModeEvents = "events"
	ModeTable  = "table"
)

const (
	defaultTablePageSize = 50
	previewRows          = 5
)

// Tables owned by the service itself. Ad-hoc tables may never shadow them.
var reservedTables = map[string]bool{
	"users":             true,
	"events":            true,
	"registrations":     true,
	"ingested_tables":   true,
	"schema_migrations": true,
}

// Prefixes the database engines keep for their catalogs.
var reservedPrefixes = []string{"pg_", "sqlite_"}

// IngestionService turns uploaded spreadsheets into events or ad-hoc tables.
type IngestionService struct {
	deps Dependencies
}

// EventImport summarizes an import in events mode.
type EventImport struct {
	Processed int
	Created   []domain.Event
	Skipped   []ingest.RowSkip
}

// TableImport summarizes an import in table mode.
type TableImport struct {
	Table   *domain.IngestedTable
	Preview []map[string]any
}

// NewIngestionService constructs the service.
func NewIngestionService(deps Dependencies) *IngestionService {
	return &IngestionService{deps: deps}
}

// ImportEvents creates one event per valid row. Invalid rows are skipped and
// reported; they never fail the batch.
func (s *IngestionService) ImportEvents(ctx context.Context, actor *domain.Principal, filename string, r io.Reader) (*EventImport, error) {
	if err := auth.Check(actor, domain.CapabilityAdmin); err != nil {
		return nil, err
	}
	dataset, err := s.load(filename, r)
	if err != nil {
		return nil, err
	}

	now := s.deps.now()
	drafts, skipped := ingest.MapEvents(dataset, now)
	result := &EventImport{Processed: len(dataset.Rows), Created: []domain.Event{}}

	for _, draft := range drafts {
		event := draft.Event(actor.UserID)
		if err := validateEvent(event, now, true); err != nil {
			skipped = append(skipped, ingest.RowSkip{Row: draft.Row, Reason: apperrors.ToDomainError(err).Message})
			continue
		}
		if err := s.deps.Store.Events().Create(ctx, event); err != nil {
			s.deps.logger().Warn("imported event not stored",
				zap.String("file", filename),
				zap.Int("row", draft.Row),
				zap.Error(err))
			skipped = append(skipped, ingest.RowSkip{Row: draft.Row, Reason: "could not be stored"})
			continue
		}
		result.Created = append(result.Created, *event)
	}
	result.Skipped = sortSkips(skipped)

	s.deps.Metrics.RecordIngestedRows(ModeEvents, len(result.Created), len(result.Skipped))
	s.deps.publish(ctx, events.Event{
		Type:    events.EventsImported,
		Subject: filename,
		ActorID: actor.UserID,
		Payload: events.ImportPayload{
			File:      filename,
			Processed: result.Processed,
			Created:   len(result.Created),
			Skipped:   len(result.Skipped),
		},
	})
	return result, nil
}

// ImportTable creates a table named after tableName and stores every row in
// it. Creation, inserts and the registry entry commit together or not at all.
func (s *IngestionService) ImportTable(ctx context.Context, actor *domain.Principal, filename string, r io.Reader, tableName string) (*TableImport, error) {
	if err := auth.Check(actor, domain.CapabilityAdmin); err != nil {
		return nil, err
	}
	name, err := ingest.TableName(tableName)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"table_name": tableName})
	}
	if err := checkReserved(name); err != nil {
		return nil, err
	}

	dataset, err := s.load(filename, r)
	if err != nil {
		return nil, err
	}
	if dataset.Empty() {
		return nil, apperrors.NewValidationError(ingest.ErrNoRows.Error(), nil)
	}
	for _, column := range dataset.Columns {
		if repository.SystemColumn(column.Name) {
			return nil, apperrors.NewValidationError("column name is reserved",
				map[string]any{"column": column.Name, "header": column.Source})
		}
	}

	table := &domain.IngestedTable{
		Name:      name,
		Columns:   dataset.Specs(),
		CreatedBy: actor.UserID,
	}
	err = s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		exists, err := tx.Tables().Exists(ctx, name)
		if err != nil {
			return storeError(err, "table")
		}
		if exists {
			return apperrors.NewConflict("table already exists", map[string]any{"table_name": name})
		}
		if err := tx.Tables().Create(ctx, name, table.Columns); err != nil {
			return storeError(err, "table")
		}
		inserted, err := tx.Tables().Insert(ctx, name, table.Columns, dataset.Records())
		if errors.Is(err, repository.ErrInvalidData) {
			return apperrors.NewValidationError("rows could not be stored, nothing was imported",
				map[string]any{"table_name": name, "error": err.Error()})
		}
		if err != nil {
			return storeError(err, "table")
		}
		table.RowCount = int(inserted)
		return storeError(tx.Tables().Register(ctx, table), "table")
	})
	if err != nil {
		s.deps.Metrics.RecordIngestedRows(ModeTable, 0, len(dataset.Rows))
		return nil, err
	}

	s.deps.Metrics.RecordIngestedRows(ModeTable, table.RowCount, 0)
	s.deps.publish(ctx, events.Event{
		Type:    events.TableIngested,
		Subject: name,
		ActorID: actor.UserID,
		Payload: events.ImportPayload{File: filename, Processed: len(dataset.Rows), Created: table.RowCount},
	})
	return &TableImport{Table: table, Preview: preview(dataset, previewRows)}, nil
}

// ListTables returns the registry of ad-hoc tables.
func (s *IngestionService) ListTables(ctx context.Context, actor *domain.Principal) ([]domain.IngestedTable, error) {
	if err := auth.Check(actor, domain.CapabilityAdmin); err != nil {
		return nil, err
	}
	tables, err := s.deps.Store.Tables().List(ctx)
	if err != nil {
		return nil, storeError(err, "table")
	}
	if tables == nil {
		tables = []domain.IngestedTable{}
	}
	return tables, nil
}

// ReadTable returns one page of an ad-hoc table.
func (s *IngestionService) ReadTable(ctx context.Context, actor *domain.Principal, name string, page Page) (*domain.TablePage, Pagination, error) {
	if err := auth.Check(actor, domain.CapabilityAdmin); err != nil {
		return nil, Pagination{}, err
	}
	if err := checkTableName(name); err != nil {
		return nil, Pagination{}, err
	}
	if _, err := s.deps.Store.Tables().Get(ctx, name); err != nil {
		return nil, Pagination{}, storeError(err, "table")
	}

	page = page.normalize(defaultTablePageSize)
	rows, err := s.deps.Store.Tables().Read(ctx, name, page.Limit, page.offset())
	if err != nil {
		return nil, Pagination{}, storeError(err, "table")
	}
	return rows, paginationFor(page, rows.Total), nil
}

// DropTable deletes an ad-hoc table and its registry entry.
func (s *IngestionService) DropTable(ctx context.Context, actor *domain.Principal, name string) error {
	if err := auth.Check(actor, domain.CapabilityAdmin); err != nil {
		return err
	}
	if err := checkTableName(name); err != nil {
		return err
	}

	err := s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Tables().Get(ctx, name); err != nil {
			return storeError(err, "table")
		}
		return storeError(tx.Tables().Drop(ctx, name), "table")
	})
	if err != nil {
		return err
	}
	s.deps.publish(ctx, events.Event{Type: events.TableDropped, Subject: name, ActorID: actor.UserID})
	return nil
}

func (s *IngestionService) load(filename string, r io.Reader) (*ingest.Dataset, error) {
	sheet, err := ingest.Parse(filename, r)
	if err != nil {
		if errors.Is(err, ingest.ErrUnsupportedFormat) || errors.Is(err, ingest.ErrNoHeader) {
			return nil, apperrors.NewValidationError(err.Error(), map[string]any{"file": filename})
		}
		return nil, apperrors.NewValidationError("could not read spreadsheet",
			map[string]any{"file": filename, "error": err.Error()})
	}
	dataset, err := ingest.Prepare(sheet)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"file": filename})
	}
	return dataset, nil
}

// checkTableName validates a name taken from a request path. It must already
// be a normalized identifier.
func checkTableName(name string) error {
	if !ingest.ValidIdentifier(name) {
		return apperrors.NewValidationError("invalid table name", map[string]any{"table_name": name})
	}
	return checkReserved(name)
}

func checkReserved(name string) error {
	if reservedTables[name] {
		return apperrors.NewForbidden(fmt.Sprintf("table %q is a system table", name))
	}
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return apperrors.NewForbidden(fmt.Sprintf("table %q uses a reserved prefix", name))
		}
	}
	return nil
}

func preview(dataset *ingest.Dataset, limit int) []map[string]any {
	if len(dataset.Rows) < limit {
		limit = len(dataset.Rows)
	}
	rows := make([]map[string]any, limit)
	for r := 0; r < limit; r++ {
		row := make(map[string]any, len(dataset.Columns))
		for i, column := range dataset.Columns {
			row[column.Name] = dataset.Rows[r][i].JSON()
		}
		rows[r] = row
	}
	return rows
}

// sortSkips orders skips by row number.
func sortSkips(skips []ingest.RowSkip) []ingest.RowSkip {
	if skips == nil {
		return []ingest.RowSkip{}
	}
	sort.SliceStable(skips, func(i, j int) bool { return skips[i].Row < skips[j].Row })
	return skips
}
