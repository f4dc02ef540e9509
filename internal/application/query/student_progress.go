// Package query contains read operations (CQRS - Queries).
// Queries never change state and return flat DTOs for the interface layer.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/belt"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT PROGRESS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentProgressQuery asks for the progression state of one student.
type GetStudentProgressQuery struct {
	StudentID string

	// HistoryLimit caps the returned performance records, newest first. Zero means 10.
	HistoryLimit int
}

// BeltDTO describes a belt.
type BeltDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
	Color string `json:"color,omitempty"`
}

// SessionDTO is one entry of the performance history.
type SessionDTO struct {
	Date         time.Time       `json:"date"`
	Scores       map[string]*int `json:"scores"`
	Bonus        int             `json:"bonus"`
	Homework     int             `json:"homework"`
	SessionTotal int             `json:"session_total"`
}

// FeedbackDTO is one entry of the feedback history.
type FeedbackDTO struct {
	Date   time.Time `json:"date"`
	Source string    `json:"source"`
	Text   string    `json:"text"`
}

// StudentProgressDTO is the progression view of a student.
type StudentProgressDTO struct {
	StudentID       string   `json:"student_id"`
	Name            string   `json:"name"`
	Belt            BeltDTO  `json:"belt"`
	NextBelt        *BeltDTO `json:"next_belt,omitempty"`
	TotalPoints     int      `json:"total_points"`
	Stripes         int      `json:"stripes"`
	StripesRequired int      `json:"stripes_required"`
	PointsPerStripe int      `json:"points_per_stripe"`

	// PointsToNextStripe is 0 once the student has all stripes of the belt.
	PointsToNextStripe int  `json:"points_to_next_stripe"`
	IsReadyForGrading  bool `json:"is_ready_for_grading"`

	// ReadinessLocked - the ready flag cannot be set yet.
	ReadinessLocked bool `json:"readiness_locked"`

	Stage             string        `json:"stage"`
	AttendanceCount   int           `json:"attendance_count"`
	LastPromotionDate *time.Time    `json:"last_promotion_date,omitempty"`
	RecentSessions    []SessionDTO  `json:"recent_sessions"`
	Feedback          []FeedbackDTO `json:"feedback"`
}

// GetStudentProgressHandler handles GetStudentProgressQuery.
type GetStudentProgressHandler struct {
	studentRepo student.Repository
	ledger      *belt.Ledger
	policy      belt.PointsPolicy
}

// NewGetStudentProgressHandler creates a new GetStudentProgressHandler.
func NewGetStudentProgressHandler(studentRepo student.Repository, ledger *belt.Ledger, policy belt.PointsPolicy) *GetStudentProgressHandler {
	if ledger == nil {
		ledger = belt.DefaultLedger()
	}
	return &GetStudentProgressHandler{studentRepo: studentRepo, ledger: ledger, policy: policy}
}

// Handle executes the query.
func (h *GetStudentProgressHandler) Handle(ctx context.Context, q GetStudentProgressQuery) (*StudentProgressDTO, error) {
	if q.StudentID == "" {
		return nil, shared.NewDomainError("student", "GetProgress", shared.ErrInvalidID, "student id is required")
	}
	limit := q.HistoryLimit
	if limit <= 0 {
		limit = 10
	}

	s, err := h.studentRepo.GetByID(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get_student_progress: %w", err)
	}

	stripes := s.StripesEarned(h.policy)
	required := h.policy.StripesRequired(s.BeltID)
	toNext := 0
	if stripes < required {
		toNext = s.PointsToNextStripe(h.policy)
	}

	dto := &StudentProgressDTO{
		StudentID:          s.ID,
		Name:               s.Name,
		Belt:               h.beltDTO(s.BeltID),
		TotalPoints:        s.TotalPoints,
		Stripes:            stripes,
		StripesRequired:    required,
		PointsPerStripe:    h.policy.PointsRequired(s.BeltID),
		PointsToNextStripe: toNext,
		IsReadyForGrading:  s.IsReadyForGrading,
		ReadinessLocked:    !s.CanToggleReadiness(h.policy),
		Stage:              string(s.Stage(h.policy)),
		AttendanceCount:    s.AttendanceCount,
		RecentSessions:     make([]SessionDTO, 0, limit),
		Feedback:           make([]FeedbackDTO, 0, len(s.FeedbackHistory)),
	}
	if next, ok := h.ledger.Next(s.BeltID); ok {
		n := toBeltDTO(next)
		dto.NextBelt = &n
	}
	if !s.LastPromotionDate.IsZero() {
		at := s.LastPromotionDate
		dto.LastPromotionDate = &at
	}

	for i := len(s.PerformanceHistory) - 1; i >= 0 && len(dto.RecentSessions) < limit; i-- {
		rec := s.PerformanceHistory[i]
		scores := make(map[string]*int, len(rec.Scores))
		for skill, score := range rec.Scores {
			if v, ok := score.Value(); ok {
				scores[skill] = &v
			} else {
				scores[skill] = nil
			}
		}
		dto.RecentSessions = append(dto.RecentSessions, SessionDTO{
			Date:         rec.Date,
			Scores:       scores,
			Bonus:        rec.BonusPoints,
			Homework:     rec.HomeworkPoints,
			SessionTotal: rec.SessionTotal,
		})
	}
	for _, fb := range s.FeedbackHistory {
		dto.Feedback = append(dto.Feedback, FeedbackDTO{Date: fb.Date, Source: string(fb.Source), Text: fb.Text})
	}
	return dto, nil
}

func (h *GetStudentProgressHandler) beltDTO(id string) BeltDTO {
	b, ok := h.ledger.ByID(id)
	if !ok {
		return BeltDTO{ID: id, Name: id}
	}
	return toBeltDTO(b)
}

func toBeltDTO(b belt.Belt) BeltDTO {
	return BeltDTO{ID: b.ID, Name: b.Name, Order: b.Order, Color: b.Color}
}

// ListBelts returns the ledger in order.
func ListBelts(ledger *belt.Ledger) []BeltDTO {
	belts := ledger.Belts()
	out := make([]BeltDTO, len(belts))
	for i, b := range belts {
		out[i] = toBeltDTO(b)
	}
	return out
}
