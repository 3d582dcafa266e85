package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/event-service/internal/api/dto"
	"github.com/spec-kit/event-service/internal/auth"
	"github.com/spec-kit/event-service/internal/ingest"
	"github.com/spec-kit/event-service/internal/service"
	apperrors "github.com/spec-kit/event-service/pkg/util/errorutil"
)

// UploadHandler accepts spreadsheets and serves the tables built from them.
type UploadHandler struct {
	ingestion *service.IngestionService
	maxBytes  int64
}

// NewUploadHandler constructs handler. Files larger than maxBytes are refused.
func NewUploadHandler(ingestionService *service.IngestionService, maxBytes int) *UploadHandler {
	return &UploadHandler{ingestion: ingestionService, maxBytes: int64(maxBytes)}
}

// Excel handles POST /api/upload/excel. The multipart field "file" carries the
// spreadsheet; createAsEvent=true imports rows as events, otherwise the rows
// land in the table named by tableName.
func (h *UploadHandler) Excel(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file is required", nil)
	}
	if header.Size > h.maxBytes {
		return apperrors.NewDomainError(apperrors.CodeValidation, "file too large", fiber.StatusRequestEntityTooLarge,
			map[string]any{"size": header.Size, "maxBytes": h.maxBytes})
	}
	file, err := header.Open()
	if err != nil {
		return apperrors.NewValidationError("unable to read upload", nil)
	}
	defer file.Close()

	actor := auth.PrincipalFromContext(c)
	if c.FormValue("createAsEvent") == "true" {
		result, err := h.ingestion.ImportEvents(c.UserContext(), actor, header.Filename, file)
		if err != nil {
			return err
		}
		skipped := result.Skipped
		if skipped == nil {
			skipped = []ingest.RowSkip{}
		}
		return respond(c, fiber.StatusCreated, "events imported", dto.EventImportResponse{
			Processed: result.Processed,
			Created:   len(result.Created),
			Skipped:   skipped,
			Events:    dto.NewEventResponses(result.Created),
		})
	}

	result, err := h.ingestion.ImportTable(c.UserContext(), actor, header.Filename, file, c.FormValue("tableName"))
	if err != nil {
		return err
	}
	preview := result.Preview
	if preview == nil {
		preview = []map[string]any{}
	}
	return respond(c, fiber.StatusCreated, "table created", dto.TableImportResponse{
		Table:   dto.NewTableResponse(result.Table),
		Preview: preview,
	})
}

// ListTables handles GET /api/upload/tables.
func (h *UploadHandler) ListTables(c *fiber.Ctx) error {
	tables, err := h.ingestion.ListTables(c.UserContext(), auth.PrincipalFromContext(c))
	if err != nil {
		return err
	}
	items := make([]dto.TableResponse, 0, len(tables))
	for i := range tables {
		items = append(items, dto.NewTableResponse(&tables[i]))
	}
	return respond(c, fiber.StatusOK, "", items)
}

// ReadTable handles GET /api/upload/tables/:tableName.
func (h *UploadHandler) ReadTable(c *fiber.Ctx) error {
	page, pagination, err := h.ingestion.ReadTable(c.UserContext(), auth.PrincipalFromContext(c), c.Params("tableName"), parsePage(c))
	if err != nil {
		return err
	}
	return respondPage(c, dto.TableRowsResponse{Columns: page.Columns, Rows: page.Rows}, pagination)
}

// DropTable handles DELETE /api/upload/tables/:tableName.
func (h *UploadHandler) DropTable(c *fiber.Ctx) error {
	if err := h.ingestion.DropTable(c.UserContext(), auth.PrincipalFromContext(c), c.Params("tableName")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "table deleted", nil)
}
