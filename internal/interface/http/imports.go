package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dojo-hub/dojo-community-hub/internal/application/command"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/roster"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/spreadsheet"
)

const (
	templateXLSXName = "roster_template.xlsx"
	templateCSVName  = "roster_template.csv"
	mimeXLSX         = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEMPLATE
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleImportTemplate(c *fiber.Ctx) error {
	if c.Query("format") == "csv" || s.deps.Template == nil {
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+templateCSVName+`"`)
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		return c.SendString(roster.Template())
	}

	data, err := s.deps.Template()
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+templateXLSXName+`"`)
	c.Set(fiber.HeaderContentType, mimeXLSX)
	return c.Send(data)
}

// ══════════════════════════════════════════════════════════════════════════════
// PREVIEW
// ══════════════════════════════════════════════════════════════════════════════

type previewRequest struct {
	Text     string `json:"text" form:"text"`
	Location string `json:"location" form:"location"`
	Class    string `json:"class" form:"class"`
}

type batchResponse struct {
	BatchID        string        `json:"batch_id"`
	SchemaVersion  string        `json:"schema_version"`
	Source         string        `json:"source"`
	HeaderDetected bool          `json:"header_detected"`
	Reused         bool          `json:"reused"`
	ExpiresAt      *time.Time    `json:"expires_at,omitempty"`
	Report         roster.Report `json:"report"`
}

func (s *Server) handlePreviewImport(c *fiber.Ctx) error {
	cmd, err := previewCommand(c)
	if err != nil {
		return err
	}

	res, err := s.deps.PreviewImport.Handle(c.UserContext(), cmd)
	if err != nil {
		return err
	}

	status := fiber.StatusCreated
	if res.Reused {
		status = fiber.StatusOK
	}
	expires := res.ExpiresAt
	return writeJSON(c, status, batchResponse{
		BatchID:        res.Batch.ID,
		SchemaVersion:  res.Batch.SchemaVersion,
		Source:         res.Batch.Source,
		HeaderDetected: res.Batch.HeaderDetected,
		Reused:         res.Reused,
		ExpiresAt:      &expires,
		Report:         res.Report,
	})
}

// previewCommand accepts either a JSON body with pasted text or a multipart
// form carrying a "file" part.
func previewCommand(c *fiber.Ctx) (command.PreviewImportCommand, error) {
	var req previewRequest
	if err := c.BodyParser(&req); err != nil {
		return command.PreviewImportCommand{}, fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	cmd := command.PreviewImportCommand{
		Raw:      req.Text,
		Defaults: roster.Defaults{Location: strings.TrimSpace(req.Location), Class: strings.TrimSpace(req.Class)},
	}

	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return cmd, nil
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return cmd, nil
	}
	f, err := fh.Open()
	if err != nil {
		return cmd, fiber.NewError(fiber.StatusBadRequest, "uploaded file could not be opened")
	}
	defer f.Close()

	data, err := spreadsheet.ReadAll(f)
	if err != nil {
		return cmd, err
	}
	cmd.FileName = fh.Filename
	cmd.File = data
	return cmd, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REVIEW & EDIT
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetImport(c *fiber.Ctx) error {
	batch, err := s.deps.Drafts.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return writeJSON(c, fiber.StatusOK, batchResponse{
		BatchID:        batch.ID,
		SchemaVersion:  batch.SchemaVersion,
		Source:         batch.Source,
		HeaderDetected: batch.HeaderDetected,
		Report:         roster.Summarize(batch),
	})
}

type editRowRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Belt     *string `json:"belt"`
	Stripes  *int    `json:"stripes" validate:"omitempty,min=0"`
	Location *string `json:"location"`
	Class    *string `json:"class"`
}

type editRowResponse struct {
	Row    roster.RowReport `json:"row"`
	Report roster.Report    `json:"report"`
}

func (s *Server) handleEditImportRow(c *fiber.Ctx) error {
	index, err := c.ParamsInt("row")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "row must be an integer")
	}

	var req editRowRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	res, err := s.deps.EditImportRow.Handle(c.UserContext(), command.EditImportRowCommand{
		BatchID: c.Params("id"),
		Index:   index,
		Edit: roster.RowEdit{
			Name:     req.Name,
			Belt:     req.Belt,
			Stripes:  req.Stripes,
			Location: req.Location,
			Class:    req.Class,
		},
	})
	if err != nil {
		return err
	}

	out := editRowResponse{Report: res.Report}
	for _, r := range res.Report.Rows {
		if r.Index == res.Row.Index {
			out.Row = r
			break
		}
	}
	return writeJSON(c, fiber.StatusOK, out)
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMIT
// ══════════════════════════════════════════════════════════════════════════════

type commitImportRequest struct {
	WelcomeMessages bool `json:"welcome_messages"`
}

type commitImportResponse struct {
	BatchID    string            `json:"batch_id"`
	Imported   int               `json:"imported"`
	Skipped    int               `json:"skipped"`
	StudentIDs []string          `json:"student_ids"`
	Welcome    map[string]string `json:"welcome,omitempty"`
}

func (s *Server) handleCommitImport(c *fiber.Ctx) error {
	var req commitImportRequest
	if len(c.Body()) > 0 {
		if err := s.bind(c, &req); err != nil {
			return err
		}
	}

	res, err := s.deps.CommitImport.Handle(c.UserContext(), command.CommitImportCommand{
		BatchID:         c.Params("id"),
		WelcomeMessages: req.WelcomeMessages,
		CorrelationID:   requestCorrelationID(c),
	})
	if err != nil {
		return err
	}

	return writeJSON(c, fiber.StatusOK, commitImportResponse{
		BatchID:    res.BatchID,
		Imported:   res.Imported,
		Skipped:    res.Skipped,
		StudentIDs: res.StudentIDs,
		Welcome:    res.Welcome,
	})
}
