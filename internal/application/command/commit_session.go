package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/belt"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/scoring"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
	"github.com/dojo-hub/dojo-community-hub/pkg/logger"
	"github.com/dojo-hub/dojo-community-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMMIT SESSION COMMAND
// Persists one class session: points, stripes and attendance of every
// attending student, then optionally asks for parent feedback.
// ══════════════════════════════════════════════════════════════════════════════

// CommitSessionCommand contains the session to commit.
type CommitSessionCommand struct {
	// Draft is the scored session. Its ID is generated when empty.
	Draft scoring.SessionDraft

	// RequestFeedback asks the text generator for a parent note per scored student.
	RequestFeedback bool

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CommitSessionCommand) Validate() error {
	if len(c.Draft.Skills) == 0 {
		return shared.ErrEmptySession
	}
	seen := make(map[string]struct{}, len(c.Draft.Entries))
	for _, e := range c.Draft.Entries {
		if e.StudentID == "" {
			return shared.NewDomainError("session", "Commit", shared.ErrInvalidID, "entry without student id")
		}
		if _, dup := seen[e.StudentID]; dup {
			return shared.WrapError("session", "Commit", shared.ErrInvalidInput, "student listed twice", fmt.Errorf("%s", e.StudentID))
		}
		seen[e.StudentID] = struct{}{}
	}
	return nil
}

// SessionOutcome is the per-student result of a commit.
type SessionOutcome struct {
	StudentID string
	Name      string
	Accrual   student.AccrualResult

	// ReadyEligible - the student now has enough stripes to be marked ready.
	ReadyEligible bool
}

// CommitSessionResult contains the result of committing a session.
type CommitSessionResult struct {
	SessionID string
	Date      time.Time

	// Outcomes lists attending students in draft order.
	Outcomes []SessionOutcome

	// Attending is the number of attending students.
	Attending int

	// Recorded is the number of performance records appended.
	Recorded int

	// TotalPoints is the sum of session totals over all attending students.
	TotalPoints int

	// StripesEarned is the number of stripes earned across the class.
	StripesEarned int

	// Feedback maps student ID to generated parent feedback.
	// Students whose generation failed are absent.
	Feedback map[string]string

	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CommitSessionHandler handles the CommitSessionCommand.
type CommitSessionHandler struct {
	studentRepo    student.Repository
	policy         belt.PointsPolicy
	ledger         *belt.Ledger
	textGen        student.TextGenerator
	eventPublisher shared.EventPublisher
	clock          timeutil.Clock
	log            *logger.Logger
	textTimeout    time.Duration
}

// CommitSessionHandlerConfig contains the dependencies of the handler.
// TextGenerator, EventPublisher, Clock and Logger are optional.
type CommitSessionHandlerConfig struct {
	StudentRepo    student.Repository
	Policy         belt.PointsPolicy
	Ledger         *belt.Ledger
	TextGenerator  student.TextGenerator
	EventPublisher shared.EventPublisher
	Clock          timeutil.Clock
	Logger         *logger.Logger
	TextTimeout    time.Duration
}

// NewCommitSessionHandler creates a new CommitSessionHandler.
func NewCommitSessionHandler(cfg CommitSessionHandlerConfig) *CommitSessionHandler {
	if cfg.TextTimeout <= 0 {
		cfg.TextTimeout = DefaultTextTimeout
	}
	if cfg.Ledger == nil {
		cfg.Ledger = belt.DefaultLedger()
	}
	return &CommitSessionHandler{
		studentRepo:    cfg.StudentRepo,
		policy:         cfg.Policy,
		ledger:         cfg.Ledger,
		textGen:        cfg.TextGenerator,
		eventPublisher: cfg.EventPublisher,
		clock:          orSystemClock(cfg.Clock),
		log:            orNop(cfg.Logger).With(logger.Operation("commit_session")),
		textTimeout:    cfg.TextTimeout,
	}
}

// Handle executes the commit session command.
// Students are saved in one SaveStudents call; events are published only after it succeeds.
func (h *CommitSessionHandler) Handle(ctx context.Context, cmd CommitSessionCommand) (*CommitSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("commit_session: validation failed: %w", err)
	}

	draft := cmd.Draft
	draft.Entries = append([]scoring.Entry(nil), cmd.Draft.Entries...)
	if err := draft.Normalize(); err != nil {
		return nil, fmt.Errorf("commit_session: %w", err)
	}
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	date := draft.Date
	if date.IsZero() {
		date = h.clock.Now()
	}

	entries := draft.AttendingEntries()
	result := &CommitSessionResult{
		SessionID: draft.ID,
		Date:      date,
		Outcomes:  make([]SessionOutcome, 0, len(entries)),
		Attending: len(entries),
		Feedback:  map[string]string{},
	}
	log := h.log.With(logger.SessionID(draft.ID))

	students, err := h.studentRepo.GetByIDs(ctx, draft.AttendingStudentIDs())
	if err != nil {
		return nil, fmt.Errorf("commit_session: failed to load students: %w", err)
	}

	for i, s := range students {
		e := entries[i]
		acc := s.Accrue(h.policy, student.SessionInput{
			Date:     date,
			Scores:   e.Scores,
			Bonus:    e.Bonus,
			Homework: e.Homework,
		})
		s.RecordAttendance()

		outcome := SessionOutcome{
			StudentID:     s.ID,
			Name:          s.Name,
			Accrual:       acc,
			ReadyEligible: s.CanToggleReadiness(h.policy),
		}
		result.Outcomes = append(result.Outcomes, outcome)
		result.TotalPoints += acc.SessionTotal
		result.StripesEarned += acc.NewStripes
		if !acc.Skipped {
			result.Recorded++
		}
	}

	if len(students) > 0 {
		if err := h.studentRepo.SaveStudents(ctx, students); err != nil {
			return nil, fmt.Errorf("commit_session: failed to save students: %w", err)
		}
	}

	committed := shared.NewSessionCommittedEvent(draft.ID, date, draft.Location, draft.Class,
		result.Attending, result.Recorded, result.TotalPoints)
	committed.BaseEvent = committed.WithCorrelationID(cmd.CorrelationID)
	result.Events = append(result.Events, committed)

	for i, s := range students {
		acc := result.Outcomes[i].Accrual
		if !acc.EarnedStripe() {
			continue
		}
		e := shared.NewStripeEarnedEvent(s.ID, s.BeltID, acc.StripesBefore, acc.StripesAfter, acc.PointsAfter, result.Outcomes[i].ReadyEligible)
		e.BaseEvent = e.WithCorrelationID(cmd.CorrelationID)
		result.Events = append(result.Events, e)
	}
	publish(h.eventPublisher, log, result.Events)

	log.Info("session committed",
		logger.Int("attending", result.Attending),
		logger.Int("recorded", result.Recorded),
		logger.Points(result.TotalPoints),
		logger.Stripes(result.StripesEarned),
	)

	if cmd.RequestFeedback && h.textGen != nil {
		h.attachFeedback(ctx, log, cmd.CorrelationID, students, result)
	}
	return result, nil
}

// attachFeedback generates parent notes for scored students and saves them in a second write.
// Failures only shrink result.Feedback.
func (h *CommitSessionHandler) attachFeedback(ctx context.Context, log *logger.Logger, correlationID string, students []*student.Student, result *CommitSessionResult) {
	updated := make([]*student.Student, 0, len(students))
	var events []shared.Event

	for i, s := range students {
		acc := result.Outcomes[i].Accrual
		if acc.Skipped {
			continue
		}
		text, err := generate(ctx, h.textGen, h.textTimeout, student.TextParentFeedback, h.feedbackVars(s, acc))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Warn("parent feedback generation failed", logger.StudentID(s.ID), logger.Err(err))
			continue
		}
		if !s.AddFeedback(student.FeedbackSourceAI, text, result.Date) {
			continue
		}
		result.Feedback[s.ID] = text
		updated = append(updated, s)

		e := shared.NewFeedbackGeneratedEvent(s.ID, string(student.FeedbackSourceAI), len(text))
		e.BaseEvent = e.WithCorrelationID(correlationID)
		events = append(events, e)
	}
	if len(updated) == 0 {
		return
	}

	if err := h.studentRepo.SaveStudents(ctx, updated); err != nil {
		log.Error("failed to save parent feedback", logger.Int("students", len(updated)), logger.Err(err))
		return
	}
	publish(h.eventPublisher, log, events)
	result.Events = append(result.Events, events...)
}

func (h *CommitSessionHandler) feedbackVars(s *student.Student, acc student.AccrualResult) map[string]string {
	beltName := s.BeltID
	if b, ok := h.ledger.ByID(s.BeltID); ok {
		beltName = b.Name
	}

	vars := map[string]string{
		"name":           s.Name,
		"belt":           beltName,
		"stripes":        strconv.Itoa(s.Stripes),
		"session_points": strconv.Itoa(acc.SessionTotal),
	}
	if rec, ok := s.LastPerformance(); ok {
		graded := make(map[string]int, len(rec.Scores))
		for skill, score := range rec.Scores {
			if v, ok := score.Value(); ok {
				graded[skill] = v
			}
		}
		vars["skills"] = formatSkills(graded)
	}
	return vars
}
