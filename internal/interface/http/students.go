package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dojo-hub/dojo-community-hub/internal/application/command"
	"github.com/dojo-hub/dojo-community-hub/internal/application/query"
	"github.com/dojo-hub/dojo-community-hub/internal/interface/http/handlers"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & BELTS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(c *fiber.Ctx) error {
	status := s.deps.HealthChecker.Check(c.UserContext())
	code := fiber.StatusOK
	if !status.Healthy {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(status)
}

func (s *Server) handleListBelts(c *fiber.Ctx) error {
	return writeJSON(c, fiber.StatusOK, query.ListBelts(s.deps.Ledger))
}

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER & PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

type rosterParams struct {
	Location  string `query:"location"`
	Class     string `query:"class"`
	Belt      string `query:"belt"`
	ReadyOnly bool   `query:"ready"`
	Offset    int    `query:"offset" json:"offset" validate:"min=0"`
	Limit     int    `query:"limit" json:"limit" validate:"min=0,max=500"`
}

func (s *Server) handleGetRoster(c *fiber.Ctx) error {
	var p rosterParams
	if err := c.QueryParser(&p); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed query string")
	}
	if err := s.validator.Struct(p); err != nil {
		return err
	}

	roster, err := s.deps.GetRoster.Handle(c.UserContext(), query.GetRosterQuery{
		Location:  p.Location,
		Class:     p.Class,
		BeltID:    p.Belt,
		ReadyOnly: p.ReadyOnly,
		Offset:    p.Offset,
		Limit:     p.Limit,
	})
	if err != nil {
		return err
	}

	return writeJSONWithMeta(c, fiber.StatusOK, roster.Students, &ResponseMeta{
		TotalCount: roster.Total,
		Offset:     roster.Offset,
		Limit:      roster.Limit,
		HasMore:    roster.Offset+len(roster.Students) < roster.Total,
	})
}

func (s *Server) handleGetStudentProgress(c *fiber.Ctx) error {
	progress, err := s.deps.GetProgress.Handle(c.UserContext(), query.GetStudentProgressQuery{
		StudentID:    c.Params("id"),
		HistoryLimit: c.QueryInt("sessions", 0),
	})
	if err != nil {
		return err
	}
	return writeJSON(c, fiber.StatusOK, progress)
}

// ══════════════════════════════════════════════════════════════════════════════
// READINESS & PROMOTION
// ══════════════════════════════════════════════════════════════════════════════

type readinessRequest struct {
	Ready *bool `json:"ready" validate:"required"`
}

type readinessResponse struct {
	StudentID string `json:"student_id"`
	Ready     bool   `json:"ready"`
	Changed   bool   `json:"changed"`
	Stage     string `json:"stage"`
}

func (s *Server) handleSetReadiness(c *fiber.Ctx) error {
	var req readinessRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	res, err := s.deps.SetReadiness.Handle(c.UserContext(), command.SetReadinessCommand{
		StudentID:     c.Params("id"),
		Ready:         *req.Ready,
		CorrelationID: requestCorrelationID(c),
	})
	if err != nil {
		return err
	}

	return writeJSON(c, fiber.StatusOK, readinessResponse{
		StudentID: res.StudentID,
		Ready:     res.Ready,
		Changed:   res.Changed,
		Stage:     string(res.Stage),
	})
}

type promotionResponse struct {
	StudentID        string  `json:"student_id"`
	Promoted         bool    `json:"promoted"`
	SkipReason       string  `json:"skip_reason,omitempty"`
	From             *string `json:"from_belt,omitempty"`
	To               *string `json:"to_belt,omitempty"`
	Message          string  `json:"message,omitempty"`
	MessageGenerated bool    `json:"message_generated"`
}

func (s *Server) handlePromoteStudent(c *fiber.Ctx) error {
	res, err := s.deps.PromoteStudent.Handle(c.UserContext(), command.PromoteStudentCommand{
		StudentID:     c.Params("id"),
		CorrelationID: requestCorrelationID(c),
	})
	if err != nil {
		return err
	}

	out := promotionResponse{
		StudentID:        res.StudentID,
		Promoted:         res.Promotion.Promoted,
		SkipReason:       string(res.Promotion.SkipReason),
		Message:          res.Message,
		MessageGenerated: res.MessageGenerated,
	}
	if res.Promotion.Promoted {
		from, to := res.Promotion.From.ID, res.Promotion.To.ID
		out.From, out.To = &from, &to
	}
	return writeJSON(c, fiber.StatusOK, out)
}

func requestCorrelationID(c *fiber.Ctx) string {
	if id := c.Get("X-Correlation-ID"); id != "" {
		return id
	}
	return handlers.RequestID(c)
}
