package student

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/belt"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/scoring"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
)

func newTestStudent(t *testing.T, beltID string, stripes int) *Student {
	t.Helper()
	s, err := NewStudent(NewStudentParams{
		ID:      "11111111-1111-1111-1111-111111111111",
		Name:    "  Ada Park ",
		BeltID:  beltID,
		Stripes: stripes,
	}, belt.DefaultLedger(), belt.DefaultPointsPolicy())
	require.NoError(t, err)
	return s
}

func TestNewStudent(t *testing.T) {
	s := newTestStudent(t, "yellow", 3)
	assert.Equal(t, "Ada Park", s.Name)
	assert.Equal(t, 300, s.TotalPoints)
	assert.Equal(t, 3, s.Stripes)
	assert.False(t, s.IsReadyForGrading)

	ledger := belt.DefaultLedger()
	policy := belt.DefaultPointsPolicy()

	_, err := NewStudent(NewStudentParams{ID: "x", Name: " ", BeltID: "white"}, ledger, policy)
	assert.True(t, errors.Is(err, ErrInvalidName))

	_, err = NewStudent(NewStudentParams{ID: "x", Name: "Bo", BeltID: "purple"}, ledger, policy)
	assert.True(t, errors.Is(err, ErrUnknownBelt))

	_, err = NewStudent(NewStudentParams{ID: "x", Name: "Bo", BeltID: "white", Stripes: -1}, ledger, policy)
	assert.True(t, shared.IsValidation(err))
}

func TestAccrue_CrossesStripe(t *testing.T) {
	policy := belt.DefaultPointsPolicy()
	s := newTestStudent(t, "white", 0)
	s.TotalPoints = 250
	s.RecomputeStripes(policy)
	require.Equal(t, 2, s.Stripes)

	scores := scoring.SkillScores{"kicks": scoring.NewScore(2), "forms": scoring.NewScore(2)}
	res := s.Accrue(policy, SessionInput{
		Date:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Scores: scores,
		Bonus:  56,
	})

	assert.False(t, res.Skipped)
	assert.Equal(t, 250, res.PointsBefore)
	assert.Equal(t, 310, res.PointsAfter)
	assert.Equal(t, 2, res.StripesBefore)
	assert.Equal(t, 3, res.StripesAfter)
	assert.Equal(t, 1, res.NewStripes)
	assert.True(t, res.EarnedStripe())
	assert.Equal(t, 310, s.TotalPoints)
	assert.Equal(t, 3, s.Stripes)
	require.Len(t, s.PerformanceHistory, 1)
	assert.Equal(t, 60, s.PerformanceHistory[0].SessionTotal)

	scores["kicks"] = scoring.NewScore(0)
	assert.Equal(t, 2, s.PerformanceHistory[0].Scores["kicks"].Points(), "history must not alias input")
}

func TestAccrue_TrivialSkipped(t *testing.T) {
	policy := belt.DefaultPointsPolicy()
	s := newTestStudent(t, "white", 1)

	res := s.Accrue(policy, SessionInput{
		Scores: scoring.SkillScores{"kicks": scoring.Ungraded},
	})
	assert.True(t, res.Skipped)
	assert.Empty(t, s.PerformanceHistory)
	assert.Equal(t, 100, s.TotalPoints)

	res = s.Accrue(policy, SessionInput{
		Scores: scoring.SkillScores{"kicks": scoring.NewScore(0)},
	})
	assert.False(t, res.Skipped)
	assert.Len(t, s.PerformanceHistory, 1)
	assert.Equal(t, 0, s.PerformanceHistory[0].SessionTotal)
}

func TestAccrue_StripesDerivedFromPoints(t *testing.T) {
	policy := belt.PointsPolicy{PointsPerStripe: 100, StripesPerBelt: 4, BeltPoints: map[string]int{"blue": 150}}
	s := newTestStudent(t, "blue", 0)

	for i := 0; i < 30; i++ {
		s.Accrue(policy, SessionInput{Scores: scoring.SkillScores{"a": scoring.NewScore(i % 3)}, Bonus: i})
		assert.GreaterOrEqual(t, s.TotalPoints, 0)
		assert.Equal(t, s.TotalPoints/150, s.Stripes)
	}
}

func TestSetReadyForGrading(t *testing.T) {
	policy := belt.DefaultPointsPolicy()
	s := newTestStudent(t, "white", 3)

	assert.False(t, s.CanToggleReadiness(policy))
	err := s.SetReadyForGrading(policy, true)
	assert.True(t, errors.Is(err, ErrReadinessLocked))
	assert.True(t, shared.IsStateConflict(err))
	assert.False(t, s.IsReadyForGrading)
	assert.Equal(t, StageTraining, s.Stage(policy))

	require.NoError(t, s.SetReadyForGrading(policy, false))

	s.Accrue(policy, SessionInput{Bonus: 100})
	assert.Equal(t, StageEligible, s.Stage(policy))
	require.NoError(t, s.SetReadyForGrading(policy, true))
	assert.Equal(t, StageReadyForGrading, s.Stage(policy))

	require.NoError(t, s.SetReadyForGrading(policy, false))
	assert.False(t, s.IsReadyForGrading)
}

func TestReadinessGate_IgnoresStaleStripes(t *testing.T) {
	policy := belt.PointsPolicy{PointsPerStripe: 100, StripesPerBelt: 4}
	s := newTestStudent(t, "white", 0)
	s.TotalPoints = 200
	s.Stripes = 4

	assert.Equal(t, 2, s.StripesEarned(policy))
	assert.False(t, s.CanToggleReadiness(policy))
	assert.Equal(t, StageTraining, s.Stage(policy))
	assert.ErrorIs(t, s.SetReadyForGrading(policy, true), ErrReadinessLocked)
	assert.False(t, s.IsReadyForGrading)

	s.RecomputeStripes(policy)
	assert.Equal(t, 2, s.Stripes)
}

func TestAccrue_TrivialSessionRefreshesStripes(t *testing.T) {
	policy := belt.PointsPolicy{PointsPerStripe: 100, StripesPerBelt: 4}
	s := newTestStudent(t, "white", 0)
	s.TotalPoints = 300
	s.Stripes = 1

	res := s.Accrue(policy, SessionInput{})
	assert.True(t, res.Skipped)
	assert.Equal(t, 3, res.StripesBefore)
	assert.Equal(t, 3, s.Stripes)
}

func TestPromote(t *testing.T) {
	policy := belt.DefaultPointsPolicy()
	ledger := belt.DefaultLedger()
	s := newTestStudent(t, "white", 4)

	res := s.Promote(ledger, time.Now())
	assert.False(t, res.Promoted)
	assert.Equal(t, SkipNotReady, res.SkipReason)
	assert.Equal(t, "white", s.BeltID)

	require.NoError(t, s.SetReadyForGrading(policy, true))
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	res = s.Promote(ledger, now)

	assert.True(t, res.Promoted)
	assert.Equal(t, "white", res.From.ID)
	assert.Equal(t, "yellow", res.To.ID)
	assert.Equal(t, "yellow", s.BeltID)
	assert.Equal(t, 0, s.Stripes)
	assert.Equal(t, 0, s.TotalPoints)
	assert.False(t, s.IsReadyForGrading)
	assert.Equal(t, now, s.LastPromotionDate)
	assert.Equal(t, StageTraining, s.Stage(policy))
}

func TestPromote_LastBeltNoop(t *testing.T) {
	policy := belt.DefaultPointsPolicy()
	s := newTestStudent(t, "black", 4)
	require.NoError(t, s.SetReadyForGrading(policy, true))

	res := s.Promote(belt.DefaultLedger(), time.Now())
	assert.False(t, res.Promoted)
	assert.Equal(t, SkipLastBelt, res.SkipReason)
	assert.Equal(t, "black", s.BeltID)
	assert.Equal(t, 400, s.TotalPoints)
	assert.True(t, s.IsReadyForGrading)
}

func TestClone_DeepCopiesHistory(t *testing.T) {
	policy := belt.DefaultPointsPolicy()
	s := newTestStudent(t, "white", 0)
	s.Accrue(policy, SessionInput{Scores: scoring.SkillScores{"a": scoring.NewScore(1)}})
	s.AddFeedback(FeedbackSourceCoach, "Great focus", time.Now())

	c := s.Clone()
	c.PerformanceHistory[0].Scores["a"] = scoring.NewScore(2)
	c.FeedbackHistory[0].Text = "changed"

	assert.Equal(t, 1, s.PerformanceHistory[0].Scores["a"].Points())
	assert.Equal(t, "Great focus", s.FeedbackHistory[0].Text)
}

func TestAddFeedback_IgnoresEmpty(t *testing.T) {
	s := newTestStudent(t, "white", 0)
	assert.False(t, s.AddFeedback(FeedbackSourceAI, "   ", time.Now()))
	assert.Empty(t, s.FeedbackHistory)
}
