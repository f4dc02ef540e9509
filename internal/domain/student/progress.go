package student

import (
	"fmt"
	"time"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/belt"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/scoring"
)

// ══════════════════════════════════════════════════════════════════════════════
// STAGE
// ══════════════════════════════════════════════════════════════════════════════

// Stage - этап ученика на текущем поясе.
type Stage string

const (
	// StageTraining - ученик набирает полосы.
	StageTraining Stage = "training"
	// StageEligible - полос достаточно, но тренер ещё не подтвердил готовность.
	StageEligible Stage = "eligible"
	// StageReadyForGrading - тренер подтвердил готовность к аттестации.
	StageReadyForGrading Stage = "ready_for_grading"
)

// Stage возвращает текущий этап ученика.
func (s *Student) Stage(policy belt.PointsPolicy) Stage {
	switch {
	case s.IsReadyForGrading:
		return StageReadyForGrading
	case s.CanToggleReadiness(policy):
		return StageEligible
	default:
		return StageTraining
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ACCRUAL
// ══════════════════════════════════════════════════════════════════════════════

// SessionInput - данные одной тренировки для начисления.
type SessionInput struct {
	Date     time.Time
	Scores   scoring.SkillScores
	Bonus    int
	Homework int
}

// AccrualResult описывает изменение очков и полос после тренировки.
type AccrualResult struct {
	PointsBefore  int
	PointsAfter   int
	StripesBefore int
	StripesAfter  int
	NewStripes    int
	SessionTotal  int

	// Skipped - запись была пустой и не сохранена.
	Skipped bool
}

// EarnedStripe возвращает true, если тренировка добавила хотя бы одну полосу.
func (r AccrualResult) EarnedStripe() bool {
	return r.NewStripes > 0
}

// Accrue начисляет очки тренировки на текущий пояс и пересчитывает полосы.
// Пустая запись (все оценки «не оценено», бонус и домашнее задание нулевые)
// не добавляется в историю и не меняет очки.
func (s *Student) Accrue(policy belt.PointsPolicy, in SessionInput) AccrualResult {
	before := s.TotalPoints
	stripesBefore := policy.StripesFor(before, s.BeltID)

	if scoring.IsTrivial(in.Scores, in.Bonus, in.Homework) {
		s.Stripes = stripesBefore
		return AccrualResult{
			PointsBefore:  before,
			PointsAfter:   before,
			StripesBefore: stripesBefore,
			StripesAfter:  stripesBefore,
			Skipped:       true,
		}
	}

	total := scoring.SessionTotal(in.Scores, in.Bonus, in.Homework)
	after := before + total
	if after < 0 {
		after = 0
	}
	stripesAfter := policy.StripesFor(after, s.BeltID)

	date := in.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	s.PerformanceHistory = append(s.PerformanceHistory, PerformanceRecord{
		Date:           date,
		Scores:         in.Scores.Clone(),
		BonusPoints:    scoring.SanitizeBonus(in.Bonus),
		HomeworkPoints: scoring.SanitizeBonus(in.Homework),
		SessionTotal:   total,
	})
	s.TotalPoints = after
	s.Stripes = stripesAfter
	s.UpdatedAt = time.Now().UTC()

	return AccrualResult{
		PointsBefore:  before,
		PointsAfter:   after,
		StripesBefore: stripesBefore,
		StripesAfter:  stripesAfter,
		NewStripes:    stripesAfter - stripesBefore,
		SessionTotal:  total,
	}
}

// RecomputeStripes приводит Stripes к значению, выводимому из TotalPoints.
func (s *Student) RecomputeStripes(policy belt.PointsPolicy) {
	if s.TotalPoints < 0 {
		s.TotalPoints = 0
	}
	s.Stripes = policy.StripesFor(s.TotalPoints, s.BeltID)
}

// StripesEarned возвращает полосы, выводимые из TotalPoints по текущей политике.
// Сохранённое поле Stripes может отставать, если политика изменилась.
func (s *Student) StripesEarned(policy belt.PointsPolicy) int {
	return policy.StripesFor(s.TotalPoints, s.BeltID)
}

// PointsToNextStripe возвращает, сколько очков осталось до следующей полосы.
func (s *Student) PointsToNextStripe(policy belt.PointsPolicy) int {
	return policy.PointsToNextStripe(s.TotalPoints, s.BeltID)
}

// ══════════════════════════════════════════════════════════════════════════════
// READINESS GATE
// ══════════════════════════════════════════════════════════════════════════════

// CanToggleReadiness возвращает true, если полос достаточно для аттестации.
func (s *Student) CanToggleReadiness(policy belt.PointsPolicy) bool {
	return s.StripesEarned(policy) >= policy.StripesRequired(s.BeltID)
}

// SetReadyForGrading меняет флаг готовности.
// Снять флаг можно всегда; поставить - только при достаточном числе полос.
func (s *Student) SetReadyForGrading(policy belt.PointsPolicy, ready bool) error {
	if ready && !s.CanToggleReadiness(policy) {
		return ErrReadinessLocked
	}
	s.IsReadyForGrading = ready
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROMOTION
// ══════════════════════════════════════════════════════════════════════════════

// PromotionSkipReason объясняет, почему повышение не состоялось.
type PromotionSkipReason string

const (
	SkipNone        PromotionSkipReason = ""
	SkipNotReady    PromotionSkipReason = "not_ready"
	SkipLastBelt    PromotionSkipReason = "last_belt"
	SkipUnknownBelt PromotionSkipReason = "unknown_belt"
)

// PromotionResult - результат попытки повышения.
type PromotionResult struct {
	Promoted   bool
	SkipReason PromotionSkipReason
	From       belt.Belt
	To         belt.Belt
	At         time.Time
}

// String возвращает строковое представление для логирования.
func (r PromotionResult) String() string {
	if !r.Promoted {
		return fmt.Sprintf("PromotionResult{skipped: %s}", r.SkipReason)
	}
	return fmt.Sprintf("PromotionResult{%s -> %s}", r.From.ID, r.To.ID)
}

// Promote переводит готового ученика на следующий пояс:
// очки и полосы обнуляются, флаг готовности снимается.
// Если ученик не готов или уже на высшем поясе - ничего не меняется.
// Повышение необратимо.
func (s *Student) Promote(ledger *belt.Ledger, now time.Time) PromotionResult {
	if !s.IsReadyForGrading {
		return PromotionResult{SkipReason: SkipNotReady}
	}

	current, ok := ledger.ByID(s.BeltID)
	if !ok {
		return PromotionResult{SkipReason: SkipUnknownBelt}
	}

	next, ok := ledger.Next(s.BeltID)
	if !ok {
		return PromotionResult{SkipReason: SkipLastBelt, From: current}
	}

	now = now.UTC()
	s.BeltID = next.ID
	s.TotalPoints = 0
	s.Stripes = 0
	s.IsReadyForGrading = false
	s.LastPromotionDate = now
	s.UpdatedAt = now

	return PromotionResult{
		Promoted: true,
		From:     current,
		To:       next,
		At:       now,
	}
}

// PromotionFallbackText - детерминированный текст о повышении,
// используемый, когда сервис генерации недоступен.
func PromotionFallbackText(name string, to belt.Belt) string {
	return fmt.Sprintf("Congratulations %s on earning the %s belt!", name, to.Name)
}
