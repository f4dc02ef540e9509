package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dojo-hub/dojo-community-hub/internal/application/command"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/scoring"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMMIT SESSION
// ══════════════════════════════════════════════════════════════════════════════

type skillRequest struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

type entryRequest struct {
	StudentID string              `json:"student_id" validate:"required"`
	Attending bool                `json:"attending"`
	Scores    scoring.SkillScores `json:"scores"`
	Bonus     int                 `json:"bonus"`
	Homework  int                 `json:"homework"`
}

type commitSessionRequest struct {
	ID       string `json:"id"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Location string `json:"location"`
	Class    string `json:"class"`

	Skills  []skillRequest `json:"skills" validate:"required,min=1,dive"`
	Entries []entryRequest `json:"entries" validate:"dive"`

	RequestFeedback bool `json:"request_feedback"`
}

func (r commitSessionRequest) draft() scoring.SessionDraft {
	d := scoring.SessionDraft{
		ID:       r.ID,
		Location: r.Location,
		Class:    r.Class,
		Skills:   make([]scoring.Skill, 0, len(r.Skills)),
		Entries:  make([]scoring.Entry, 0, len(r.Entries)),
	}
	if r.Date != "" {
		// Already validated by the datetime rule.
		d.Date, _ = time.Parse(time.DateOnly, r.Date)
	}
	for _, sk := range r.Skills {
		d.Skills = append(d.Skills, scoring.Skill{ID: sk.ID, Name: sk.Name})
	}
	for _, e := range r.Entries {
		d.Entries = append(d.Entries, scoring.Entry{
			StudentID: e.StudentID,
			Attending: e.Attending,
			Scores:    e.Scores,
			Bonus:     e.Bonus,
			Homework:  e.Homework,
		})
	}
	return d
}

type outcomeResponse struct {
	StudentID     string `json:"student_id"`
	Name          string `json:"name"`
	SessionTotal  int    `json:"session_total"`
	PointsBefore  int    `json:"points_before"`
	PointsAfter   int    `json:"points_after"`
	StripesBefore int    `json:"stripes_before"`
	StripesAfter  int    `json:"stripes_after"`
	NewStripes    int    `json:"new_stripes"`
	Recorded      bool   `json:"recorded"`
	ReadyEligible bool   `json:"ready_eligible"`
}

type commitSessionResponse struct {
	SessionID     string            `json:"session_id"`
	Date          string            `json:"date"`
	Attending     int               `json:"attending"`
	Recorded      int               `json:"recorded"`
	TotalPoints   int               `json:"total_points"`
	StripesEarned int               `json:"stripes_earned"`
	Outcomes      []outcomeResponse `json:"outcomes"`
	Feedback      map[string]string `json:"feedback,omitempty"`
}

func (s *Server) handleCommitSession(c *fiber.Ctx) error {
	var req commitSessionRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	res, err := s.deps.CommitSession.Handle(c.UserContext(), command.CommitSessionCommand{
		Draft:           req.draft(),
		RequestFeedback: req.RequestFeedback,
		CorrelationID:   requestCorrelationID(c),
	})
	if err != nil {
		return err
	}

	out := commitSessionResponse{
		SessionID:     res.SessionID,
		Date:          res.Date.Format(time.DateOnly),
		Attending:     res.Attending,
		Recorded:      res.Recorded,
		TotalPoints:   res.TotalPoints,
		StripesEarned: res.StripesEarned,
		Outcomes:      make([]outcomeResponse, 0, len(res.Outcomes)),
		Feedback:      res.Feedback,
	}
	for _, o := range res.Outcomes {
		out.Outcomes = append(out.Outcomes, outcomeResponse{
			StudentID:     o.StudentID,
			Name:          o.Name,
			SessionTotal:  o.Accrual.SessionTotal,
			PointsBefore:  o.Accrual.PointsBefore,
			PointsAfter:   o.Accrual.PointsAfter,
			StripesBefore: o.Accrual.StripesBefore,
			StripesAfter:  o.Accrual.StripesAfter,
			NewStripes:    o.Accrual.NewStripes,
			Recorded:      !o.Accrual.Skipped,
			ReadyEligible: o.ReadyEligible,
		})
	}
	return writeJSON(c, fiber.StatusOK, out)
}
