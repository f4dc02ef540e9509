package query

import (
	"context"
	"fmt"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/belt"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ROSTER QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetRosterQuery lists the students of a location and class.
// Empty fields match everything.
type GetRosterQuery struct {
	Location  string
	Class     string
	BeltID    string
	ReadyOnly bool
	Offset    int
	Limit     int
}

// RosterEntryDTO is one student in the roster.
type RosterEntryDTO struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Age               int    `json:"age"`
	BeltID            string `json:"belt_id"`
	BeltName          string `json:"belt_name"`
	Stripes           int    `json:"stripes"`
	TotalPoints       int    `json:"total_points"`
	AttendanceCount   int    `json:"attendance_count"`
	IsReadyForGrading bool   `json:"is_ready_for_grading"`
	CanToggleReady    bool   `json:"can_toggle_ready"`
	Location          string `json:"location"`
	Class             string `json:"class"`
}

// RosterDTO is a page of the roster.
type RosterDTO struct {
	Students []RosterEntryDTO `json:"students"`
	Total    int              `json:"total"`
	Offset   int              `json:"offset"`
	Limit    int              `json:"limit"`
}

// GetRosterHandler handles GetRosterQuery.
type GetRosterHandler struct {
	studentRepo student.Repository
	ledger      *belt.Ledger
	policy      belt.PointsPolicy
}

// NewGetRosterHandler creates a new GetRosterHandler.
func NewGetRosterHandler(studentRepo student.Repository, ledger *belt.Ledger, policy belt.PointsPolicy) *GetRosterHandler {
	if ledger == nil {
		ledger = belt.DefaultLedger()
	}
	return &GetRosterHandler{studentRepo: studentRepo, ledger: ledger, policy: policy}
}

// Handle executes the query. Students are ordered by name.
func (h *GetRosterHandler) Handle(ctx context.Context, q GetRosterQuery) (*RosterDTO, error) {
	opts := student.DefaultListOptions().
		WithLocation(q.Location).
		WithClass(q.Class).
		WithBelt(q.BeltID).
		WithOffset(q.Offset)
	if q.ReadyOnly {
		opts = opts.WithReadyOnly()
	}
	if q.Limit > 0 {
		opts = opts.WithLimit(q.Limit)
	}

	students, err := h.studentRepo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("get_roster: %w", err)
	}
	total, err := h.studentRepo.Count(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("get_roster: %w", err)
	}

	out := &RosterDTO{
		Students: make([]RosterEntryDTO, 0, len(students)),
		Total:    total,
		Offset:   opts.Offset,
		Limit:    opts.Limit,
	}
	for _, s := range students {
		beltName := s.BeltID
		if b, ok := h.ledger.ByID(s.BeltID); ok {
			beltName = b.Name
		}
		out.Students = append(out.Students, RosterEntryDTO{
			ID:                s.ID,
			Name:              s.Name,
			Age:               s.Age,
			BeltID:            s.BeltID,
			BeltName:          beltName,
			Stripes:           s.StripesEarned(h.policy),
			TotalPoints:       s.TotalPoints,
			AttendanceCount:   s.AttendanceCount,
			IsReadyForGrading: s.IsReadyForGrading,
			CanToggleReady:    s.CanToggleReadiness(h.policy),
			Location:          s.Location,
			Class:             s.AssignedClass,
		})
	}
	return out, nil
}
