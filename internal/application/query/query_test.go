package query

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/belt"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/scoring"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/persistence/memory"
)

func seeded(t *testing.T, students ...*student.Student) *memory.StudentRepository {
	t.Helper()
	repo := memory.NewStudentRepository(memory.Open())
	require.NoError(t, repo.SaveStudents(context.Background(), students))
	return repo
}

func TestGetStudentProgress(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }
	repo := seeded(t, &student.Student{
		ID: "ana", Name: "Ana", BeltID: "white", TotalPoints: 250, Stripes: 2, AttendanceCount: 3,
		PerformanceHistory: []student.PerformanceRecord{
			{Date: day(1), Scores: scoring.SkillScores{"kicks": scoring.NewScore(1)}, SessionTotal: 1},
			{Date: day(2), Scores: scoring.SkillScores{"kicks": scoring.Ungraded}, BonusPoints: 5, SessionTotal: 5},
		},
		FeedbackHistory: []student.FeedbackRecord{{Date: day(2), Source: student.FeedbackSourceAI, Text: "Great kicks"}},
	})
	h := NewGetStudentProgressHandler(repo, belt.DefaultLedger(), belt.DefaultPointsPolicy())

	got, err := h.Handle(context.Background(), GetStudentProgressQuery{StudentID: "ana", HistoryLimit: 1})
	require.NoError(t, err)

	assert.Equal(t, "White", got.Belt.Name)
	require.NotNil(t, got.NextBelt)
	assert.Equal(t, "yellow", got.NextBelt.ID)
	assert.Equal(t, 50, got.PointsToNextStripe)
	assert.Equal(t, 4, got.StripesRequired)
	assert.True(t, got.ReadinessLocked)
	assert.Equal(t, string(student.StageTraining), got.Stage)
	assert.Nil(t, got.LastPromotionDate)

	require.Len(t, got.RecentSessions, 1)
	want := SessionDTO{Date: day(2), Scores: map[string]*int{"kicks": nil}, Bonus: 5, SessionTotal: 5}
	if diff := cmp.Diff(want, got.RecentSessions[0]); diff != "" {
		t.Errorf("newest session mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, got.Feedback, 1)
	assert.Equal(t, "ai", got.Feedback[0].Source)
}

func TestGetStudentProgress_DerivesStripesFromPoints(t *testing.T) {
	repo := seeded(t, &student.Student{ID: "cy", Name: "Cy", BeltID: "white", TotalPoints: 200, Stripes: 4})
	h := NewGetStudentProgressHandler(repo, belt.DefaultLedger(), belt.DefaultPointsPolicy())

	got, err := h.Handle(context.Background(), GetStudentProgressQuery{StudentID: "cy"})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stripes)
	assert.Equal(t, 100, got.PointsToNextStripe)
	assert.True(t, got.ReadinessLocked)
	assert.Equal(t, string(student.StageTraining), got.Stage)

	roster, err := NewGetRosterHandler(repo, belt.DefaultLedger(), belt.DefaultPointsPolicy()).
		Handle(context.Background(), GetRosterQuery{})
	require.NoError(t, err)
	require.Len(t, roster.Students, 1)
	assert.Equal(t, 2, roster.Students[0].Stripes)
	assert.False(t, roster.Students[0].CanToggleReady)
}

func TestGetStudentProgress_FullBeltAndLastBelt(t *testing.T) {
	repo := seeded(t, &student.Student{ID: "max", Name: "Max", BeltID: "black", TotalPoints: 450, Stripes: 4})
	h := NewGetStudentProgressHandler(repo, nil, belt.DefaultPointsPolicy())

	got, err := h.Handle(context.Background(), GetStudentProgressQuery{StudentID: "max"})
	require.NoError(t, err)
	assert.Zero(t, got.PointsToNextStripe)
	assert.False(t, got.ReadinessLocked)
	assert.Equal(t, string(student.StageEligible), got.Stage)
	assert.Nil(t, got.NextBelt)

	_, err = h.Handle(context.Background(), GetStudentProgressQuery{StudentID: "ghost"})
	assert.True(t, shared.IsNotFound(err))
	_, err = h.Handle(context.Background(), GetStudentProgressQuery{})
	assert.True(t, shared.IsValidation(err))
}

func TestGetRoster(t *testing.T) {
	repo := seeded(t,
		&student.Student{ID: "1", Name: "Cai", BeltID: "green", Location: "Downtown", AssignedClass: "Juniors"},
		&student.Student{ID: "2", Name: "Ana", BeltID: "white", Stripes: 4, TotalPoints: 400, Location: "Downtown", AssignedClass: "Juniors"},
		&student.Student{ID: "3", Name: "Ben", BeltID: "white", Location: "Harbor", AssignedClass: "Adults"},
	)
	h := NewGetRosterHandler(repo, belt.DefaultLedger(), belt.DefaultPointsPolicy())

	got, err := h.Handle(context.Background(), GetRosterQuery{Location: "Downtown", Class: "Juniors"})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Total)
	require.Len(t, got.Students, 2)
	assert.Equal(t, "Ana", got.Students[0].Name)
	assert.True(t, got.Students[0].CanToggleReady)
	assert.Equal(t, "Green", got.Students[1].BeltName)

	page, err := h.Handle(context.Background(), GetRosterQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Students, 1)
	assert.Equal(t, "Ben", page.Students[0].Name)
}

func TestListBelts(t *testing.T) {
	belts := ListBelts(belt.DefaultLedger())
	require.Len(t, belts, 6)
	assert.Equal(t, "white", belts[0].ID)
	assert.Equal(t, "black", belts[5].ID)
}
