package command

import (
	"context"
	"fmt"
	"time"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/belt"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
	"github.com/dojo-hub/dojo-community-hub/pkg/logger"
	"github.com/dojo-hub/dojo-community-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROMOTE STUDENT COMMAND
// Moves a ready student to the next belt. The congratulation text is
// requested only after the promotion is saved and never undoes it.
// ══════════════════════════════════════════════════════════════════════════════

// PromoteStudentCommand contains the student to promote.
type PromoteStudentCommand struct {
	StudentID     string
	CorrelationID string
}

// Validate validates the command.
func (c PromoteStudentCommand) Validate() error {
	if c.StudentID == "" {
		return shared.NewDomainError("student", "Promote", shared.ErrInvalidID, "student id is required")
	}
	return nil
}

// PromoteStudentResult contains the result of a promotion attempt.
type PromoteStudentResult struct {
	StudentID string
	Promotion student.PromotionResult

	// Message is the system feedback appended on promotion.
	Message string

	// MessageGenerated is false when the deterministic fallback text was used.
	MessageGenerated bool
}

// PromoteStudentHandler handles the PromoteStudentCommand.
type PromoteStudentHandler struct {
	studentRepo    student.Repository
	ledger         *belt.Ledger
	textGen        student.TextGenerator
	eventPublisher shared.EventPublisher
	clock          timeutil.Clock
	log            *logger.Logger
	textTimeout    time.Duration
}

// PromoteStudentHandlerConfig contains the dependencies of the handler.
type PromoteStudentHandlerConfig struct {
	StudentRepo    student.Repository
	Ledger         *belt.Ledger
	TextGenerator  student.TextGenerator
	EventPublisher shared.EventPublisher
	Clock          timeutil.Clock
	Logger         *logger.Logger
	TextTimeout    time.Duration
}

// NewPromoteStudentHandler creates a new PromoteStudentHandler.
func NewPromoteStudentHandler(cfg PromoteStudentHandlerConfig) *PromoteStudentHandler {
	if cfg.TextTimeout <= 0 {
		cfg.TextTimeout = DefaultTextTimeout
	}
	if cfg.Ledger == nil {
		cfg.Ledger = belt.DefaultLedger()
	}
	return &PromoteStudentHandler{
		studentRepo:    cfg.StudentRepo,
		ledger:         cfg.Ledger,
		textGen:        cfg.TextGenerator,
		eventPublisher: cfg.EventPublisher,
		clock:          orSystemClock(cfg.Clock),
		log:            orNop(cfg.Logger).With(logger.Operation("promote_student")),
		textTimeout:    cfg.TextTimeout,
	}
}

// Handle executes the promote student command.
// A student that is not ready or already at the last belt yields Promoted=false and no error.
func (h *PromoteStudentHandler) Handle(ctx context.Context, cmd PromoteStudentCommand) (*PromoteStudentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("promote_student: validation failed: %w", err)
	}

	s, err := h.studentRepo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, fmt.Errorf("promote_student: %w", err)
	}

	promo := s.Promote(h.ledger, h.clock.Now())
	result := &PromoteStudentResult{StudentID: s.ID, Promotion: promo}
	log := h.log.With(logger.StudentID(s.ID))

	if !promo.Promoted {
		log.Info("promotion skipped", logger.String("reason", string(promo.SkipReason)))
		return result, nil
	}

	if err := h.studentRepo.SaveStudents(ctx, []*student.Student{s}); err != nil {
		return nil, fmt.Errorf("promote_student: failed to save: %w", err)
	}

	event := shared.NewStudentPromotedEvent(s.ID, promo.From.ID, promo.To.ID, promo.At)
	event.BaseEvent = event.WithCorrelationID(cmd.CorrelationID)
	publish(h.eventPublisher, log, []shared.Event{event})
	log.Info("student promoted", logger.String("from", promo.From.ID), logger.BeltID(promo.To.ID))

	text, err := generate(ctx, h.textGen, h.textTimeout, student.TextPromotionMessage, map[string]string{
		"name":      s.Name,
		"from_belt": promo.From.Name,
		"to_belt":   promo.To.Name,
		"location":  s.Location,
	})
	switch {
	case err != nil:
		log.Warn("promotion message generation failed, using fallback", logger.Err(err))
		text = ""
	case text != "":
		result.MessageGenerated = true
	}
	if text == "" {
		text = student.PromotionFallbackText(s.Name, promo.To)
	}

	s.AddFeedback(student.FeedbackSourceSystem, text, promo.At)
	result.Message = text
	if err := h.studentRepo.SaveStudents(ctx, []*student.Student{s}); err != nil {
		log.Error("failed to save promotion message", logger.Err(err))
	}
	return result, nil
}
