package command

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/roster"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
	"github.com/dojo-hub/dojo-community-hub/pkg/logger"
	"github.com/dojo-hub/dojo-community-hub/pkg/timeutil"
)

// DefaultDraftTTL is how long an import preview stays available for review.
const DefaultDraftTTL = 24 * time.Hour

// FileDecoder turns an uploaded file into rows of cells.
// Errors must be batch-level (shared.ErrImportFileUnreadable).
type FileDecoder func(name string, data []byte) ([][]string, error)

// ImportHandlerConfig contains the dependencies shared by the import handlers.
type ImportHandlerConfig struct {
	Pipeline       *roster.Pipeline
	Drafts         roster.DraftStore
	StudentRepo    student.Repository
	Decoder        FileDecoder
	TextGenerator  student.TextGenerator
	EventPublisher shared.EventPublisher
	Clock          timeutil.Clock
	Logger         *logger.Logger
	DraftTTL       time.Duration
	TextTimeout    time.Duration

	// NewID generates batch and student IDs. Defaults to uuid.NewString.
	NewID func() string
}

func (c ImportHandlerConfig) withDefaults() ImportHandlerConfig {
	if c.DraftTTL <= 0 {
		c.DraftTTL = DefaultDraftTTL
	}
	if c.TextTimeout <= 0 {
		c.TextTimeout = DefaultTextTimeout
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
	c.Clock = orSystemClock(c.Clock)
	c.Logger = orNop(c.Logger)
	return c
}

// Fingerprint identifies an import input: source format, batch defaults and content.
// The same file uploaded twice with the same defaults has the same fingerprint.
func Fingerprint(fileName string, defaults roster.Defaults, data []byte) string {
	h, _ := blake2b.New256(nil)
	for _, part := range []string{
		strings.ToLower(filepath.Ext(fileName)),
		defaults.Location,
		defaults.Class,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ══════════════════════════════════════════════════════════════════════════════
// PREVIEW IMPORT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// PreviewImportCommand contains pasted text or an uploaded file.
// Exactly one of Raw and File must be set.
type PreviewImportCommand struct {
	Raw      string
	FileName string
	File     []byte
	Defaults roster.Defaults
}

// Validate validates the command.
func (c PreviewImportCommand) Validate() error {
	hasRaw := strings.TrimSpace(c.Raw) != ""
	hasFile := len(c.File) > 0
	switch {
	case hasRaw && hasFile:
		return shared.NewDomainError("roster", "Preview", shared.ErrInvalidInput, "send either text or a file, not both")
	case !hasRaw && !hasFile:
		return shared.ErrImportEmpty
	}
	return nil
}

// PreviewImportResult contains the stored batch and its report.
type PreviewImportResult struct {
	Batch  *roster.Batch
	Report roster.Report

	// Reused is true when an identical upload already had a live draft.
	Reused bool

	ExpiresAt time.Time
}

// PreviewImportHandler handles the PreviewImportCommand.
type PreviewImportHandler struct {
	config ImportHandlerConfig
	log    *logger.Logger
}

// NewPreviewImportHandler creates a new PreviewImportHandler.
func NewPreviewImportHandler(cfg ImportHandlerConfig) *PreviewImportHandler {
	cfg = cfg.withDefaults()
	return &PreviewImportHandler{config: cfg, log: cfg.Logger.With(logger.Operation("preview_import"))}
}

// Handle parses the input, stores the batch as a draft and returns the report.
func (h *PreviewImportHandler) Handle(ctx context.Context, cmd PreviewImportCommand) (*PreviewImportResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("preview_import: %w", err)
	}

	data := cmd.File
	if len(data) == 0 {
		data = []byte(cmd.Raw)
	}
	fingerprint := Fingerprint(cmd.FileName, cmd.Defaults, data)

	if reused, err := h.findExisting(ctx, fingerprint); err != nil {
		return nil, err
	} else if reused != nil {
		return reused, nil
	}

	var batch *roster.Batch
	switch {
	case len(cmd.File) > 0 && h.config.Decoder != nil:
		rows, err := h.config.Decoder(cmd.FileName, cmd.File)
		if err != nil {
			return nil, fmt.Errorf("preview_import: %w", err)
		}
		batch = h.config.Pipeline.ParseRows(rows, cmd.Defaults)
	default:
		batch = h.config.Pipeline.ParseText(string(data), cmd.Defaults)
	}

	if len(batch.Rows) == 0 {
		return nil, fmt.Errorf("preview_import: %w", shared.ErrImportEmpty)
	}

	batch.ID = h.config.NewID()
	batch.Fingerprint = fingerprint
	batch.Source = cmd.FileName
	if batch.Source == "" {
		batch.Source = "paste"
	}
	batch.CreatedAt = h.config.Clock.Now()

	if err := h.config.Drafts.Save(ctx, batch, h.config.DraftTTL); err != nil {
		return nil, fmt.Errorf("preview_import: failed to store draft: %w", err)
	}

	report := roster.Summarize(batch)
	h.log.Info("import previewed",
		logger.BatchID(batch.ID),
		logger.Int("valid", report.ValidCount),
		logger.Int("errors", report.ErrorCount),
		logger.Int("skipped", report.SkippedCount),
	)
	return &PreviewImportResult{
		Batch:     batch,
		Report:    report,
		ExpiresAt: batch.CreatedAt.Add(h.config.DraftTTL),
	}, nil
}

func (h *PreviewImportHandler) findExisting(ctx context.Context, fingerprint string) (*PreviewImportResult, error) {
	id, ok, err := h.config.Drafts.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("preview_import: fingerprint lookup failed: %w", err)
	}
	if !ok {
		return nil, nil
	}

	batch, err := h.config.Drafts.Get(ctx, id)
	if errors.Is(err, shared.ErrImportBatchNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("preview_import: %w", err)
	}

	h.log.Info("reusing import draft", logger.BatchID(batch.ID))
	return &PreviewImportResult{
		Batch:     batch,
		Report:    roster.Summarize(batch),
		Reused:    true,
		ExpiresAt: batch.CreatedAt.Add(h.config.DraftTTL),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EDIT IMPORT ROW COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// EditImportRowCommand corrects one row of a stored batch.
type EditImportRowCommand struct {
	BatchID string
	Index   int
	Edit    roster.RowEdit
}

// EditImportRowResult contains the edited row and the refreshed report.
type EditImportRowResult struct {
	Row    roster.Row
	Report roster.Report
}

// EditImportRowHandler handles the EditImportRowCommand.
type EditImportRowHandler struct {
	config ImportHandlerConfig
	log    *logger.Logger
}

// NewEditImportRowHandler creates a new EditImportRowHandler.
func NewEditImportRowHandler(cfg ImportHandlerConfig) *EditImportRowHandler {
	cfg = cfg.withDefaults()
	return &EditImportRowHandler{config: cfg, log: cfg.Logger.With(logger.Operation("edit_import_row"))}
}

// Handle applies the edit and stores the batch again with a fresh TTL.
func (h *EditImportRowHandler) Handle(ctx context.Context, cmd EditImportRowCommand) (*EditImportRowResult, error) {
	batch, err := h.config.Drafts.Get(ctx, cmd.BatchID)
	if err != nil {
		return nil, fmt.Errorf("edit_import_row: %w", err)
	}

	if err := h.config.Pipeline.EditRow(batch, cmd.Index, cmd.Edit); err != nil {
		return nil, fmt.Errorf("edit_import_row: %w", err)
	}

	if err := h.config.Drafts.Save(ctx, batch, h.config.DraftTTL); err != nil {
		return nil, fmt.Errorf("edit_import_row: failed to store draft: %w", err)
	}

	row := batch.Rows[cmd.Index]
	h.log.Debug("import row edited", logger.BatchID(batch.ID), logger.Int("index", cmd.Index), logger.String("status", string(row.Status)))
	return &EditImportRowResult{Row: row, Report: roster.Summarize(batch)}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMIT IMPORT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CommitImportCommand merges the valid subset of a batch into the roster.
type CommitImportCommand struct {
	BatchID string

	// WelcomeMessages asks the text generator for a welcome email per new student.
	WelcomeMessages bool

	CorrelationID string
}

// CommitImportResult contains the outcome of a commit.
type CommitImportResult struct {
	BatchID    string
	Imported   int
	Skipped    int
	StudentIDs []string

	// Welcome maps student ID to a generated welcome email.
	Welcome map[string]string
}

// CommitImportHandler handles the CommitImportCommand.
type CommitImportHandler struct {
	config ImportHandlerConfig
	log    *logger.Logger
}

// NewCommitImportHandler creates a new CommitImportHandler.
func NewCommitImportHandler(cfg ImportHandlerConfig) *CommitImportHandler {
	cfg = cfg.withDefaults()
	return &CommitImportHandler{config: cfg, log: cfg.Logger.With(logger.Operation("commit_import"))}
}

// Handle saves every valid row as a new student in one SaveStudents call.
// Invalid rows are counted in Skipped. The draft is deleted afterwards.
func (h *CommitImportHandler) Handle(ctx context.Context, cmd CommitImportCommand) (*CommitImportResult, error) {
	batch, err := h.config.Drafts.Get(ctx, cmd.BatchID)
	if err != nil {
		return nil, fmt.Errorf("commit_import: %w", err)
	}
	log := h.log.With(logger.BatchID(batch.ID))

	students, err := h.config.Pipeline.ValidStudents(batch, h.config.NewID)
	if err != nil {
		return nil, fmt.Errorf("commit_import: %w", err)
	}

	if len(students) > 0 {
		if err := h.config.StudentRepo.SaveStudents(ctx, students); err != nil {
			return nil, fmt.Errorf("commit_import: failed to save students: %w", err)
		}
	}

	result := &CommitImportResult{
		BatchID:    batch.ID,
		Imported:   len(students),
		Skipped:    batch.InvalidCount(),
		StudentIDs: make([]string, 0, len(students)),
		Welcome:    map[string]string{},
	}
	events := make([]shared.Event, 0, len(students)+1)
	for _, s := range students {
		result.StudentIDs = append(result.StudentIDs, s.ID)
		e := shared.NewStudentEnrolledEvent(s.ID, s.Name, s.BeltID, s.Stripes, s.Location, s.AssignedClass, batch.ID)
		e.BaseEvent = e.WithCorrelationID(cmd.CorrelationID)
		events = append(events, e)
	}
	imported := shared.NewRosterImportedEvent(batch.ID, result.Imported, result.Skipped)
	imported.BaseEvent = imported.WithCorrelationID(cmd.CorrelationID)
	events = append(events, imported)
	publish(h.config.EventPublisher, log, events)

	if err := h.config.Drafts.Delete(ctx, batch.ID); err != nil {
		log.Warn("failed to delete committed draft", logger.Err(err))
	}

	if cmd.WelcomeMessages && h.config.TextGenerator != nil {
		for _, s := range students {
			text, err := generate(ctx, h.config.TextGenerator, h.config.TextTimeout, student.TextWelcomeEmail, map[string]string{
				"name":     s.Name,
				"class":    s.AssignedClass,
				"location": s.Location,
				"belt":     s.BeltID,
			})
			if err != nil {
				log.Warn("welcome message generation failed", logger.StudentID(s.ID), logger.Err(err))
				continue
			}
			if text != "" {
				result.Welcome[s.ID] = text
			}
		}
	}

	log.Info("import committed", logger.Int("imported", result.Imported), logger.Int("skipped", result.Skipped))
	return result, nil
}
