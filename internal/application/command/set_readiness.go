package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/belt"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
	"github.com/dojo-hub/dojo-community-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET READINESS COMMAND
// The coach marks a student ready (or not) for grading.
// ══════════════════════════════════════════════════════════════════════════════

// SetReadinessCommand contains the readiness toggle.
type SetReadinessCommand struct {
	StudentID     string
	Ready         bool
	CorrelationID string
}

// Validate validates the command.
func (c SetReadinessCommand) Validate() error {
	if c.StudentID == "" {
		return shared.NewDomainError("student", "SetReadiness", shared.ErrInvalidID, "student id is required")
	}
	return nil
}

// SetReadinessResult contains the result of the toggle.
type SetReadinessResult struct {
	StudentID string
	Ready     bool

	// Changed is false when the flag already had the requested value.
	Changed bool

	Stage student.Stage
}

// SetReadinessHandler handles the SetReadinessCommand.
type SetReadinessHandler struct {
	studentRepo    student.Repository
	policy         belt.PointsPolicy
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewSetReadinessHandler creates a new SetReadinessHandler.
func NewSetReadinessHandler(
	studentRepo student.Repository,
	policy belt.PointsPolicy,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *SetReadinessHandler {
	return &SetReadinessHandler{
		studentRepo:    studentRepo,
		policy:         policy,
		eventPublisher: eventPublisher,
		log:            orNop(log).With(logger.Operation("set_readiness")),
	}
}

// Handle executes the set readiness command.
// Setting true without enough stripes fails with student.ErrReadinessLocked.
func (h *SetReadinessHandler) Handle(ctx context.Context, cmd SetReadinessCommand) (*SetReadinessResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("set_readiness: validation failed: %w", err)
	}

	s, err := h.studentRepo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, fmt.Errorf("set_readiness: %w", err)
	}
	s.RecomputeStripes(h.policy)

	if s.IsReadyForGrading == cmd.Ready {
		return &SetReadinessResult{StudentID: s.ID, Ready: cmd.Ready, Stage: s.Stage(h.policy)}, nil
	}

	if err := s.SetReadyForGrading(h.policy, cmd.Ready); err != nil {
		if errors.Is(err, student.ErrReadinessLocked) {
			return nil, shared.WrapError("student", "SetReadiness", student.ErrReadinessLocked,
				fmt.Sprintf("%s has %d of %d stripes", s.Name, s.Stripes, h.policy.StripesRequired(s.BeltID)), nil)
		}
		return nil, fmt.Errorf("set_readiness: %w", err)
	}

	if err := h.studentRepo.SaveStudents(ctx, []*student.Student{s}); err != nil {
		return nil, fmt.Errorf("set_readiness: failed to save: %w", err)
	}

	event := shared.NewReadinessChangedEvent(s.ID, cmd.Ready)
	event.BaseEvent = event.WithCorrelationID(cmd.CorrelationID)
	publish(h.eventPublisher, h.log, []shared.Event{event})

	h.log.Info("readiness changed", logger.StudentID(s.ID), logger.Bool("ready", cmd.Ready))
	return &SetReadinessResult{StudentID: s.ID, Ready: cmd.Ready, Changed: true, Stage: s.Stage(h.policy)}, nil
}
