// Package scoring содержит правила оценки тренировки: оценки навыков,
// бонусы, итог сессии и черновик сессии, который тренер заполняет
// перед сохранением.
package scoring

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// MaxSkillScore - верхняя граница оценки одного навыка.
const MaxSkillScore = 2

// Score - оценка навыка: либо «не оценено», либо целое число от 0 до MaxSkillScore.
// «Не оценено» отличается от нуля: ноль - это поставленная оценка.
type Score struct {
	value  int
	graded bool
}

// Ungraded - оценка «не оценено».
var Ungraded = Score{}

// NewScore создаёт оценку, приводя значение к диапазону [0, MaxSkillScore].
func NewScore(v int) Score {
	if v < 0 {
		v = 0
	}
	if v > MaxSkillScore {
		v = MaxSkillScore
	}
	return Score{value: v, graded: true}
}

// IsGraded возвращает true, если оценка поставлена.
func (s Score) IsGraded() bool {
	return s.graded
}

// Value возвращает значение и признак того, что оценка поставлена.
func (s Score) Value() (int, bool) {
	return s.value, s.graded
}

// Points возвращает вклад в итог сессии; «не оценено» даёт 0.
func (s Score) Points() int {
	if !s.graded {
		return 0
	}
	return s.value
}

// String возвращает "-" для «не оценено» или число.
func (s Score) String() string {
	if !s.graded {
		return "-"
	}
	return strconv.Itoa(s.value)
}

// MarshalJSON кодирует «не оценено» как null.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.graded {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(s.value)), nil
}

// UnmarshalJSON принимает null или число; число приводится к допустимому диапазону.
func (s *Score) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Ungraded
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = NewScore(v)
	return nil
}

// ScoreFromPtr переводит необязательное значение в оценку.
func ScoreFromPtr(v *int) Score {
	if v == nil {
		return Ungraded
	}
	return NewScore(*v)
}

// SkillScores - оценки по навыкам (ключ - ID навыка).
type SkillScores map[string]Score

// Clone возвращает копию оценок.
func (s SkillScores) Clone() SkillScores {
	if s == nil {
		return nil
	}
	out := make(SkillScores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// GradedCount возвращает количество поставленных оценок.
func (s SkillScores) GradedCount() int {
	n := 0
	for _, v := range s {
		if v.IsGraded() {
			n++
		}
	}
	return n
}

// AllUngraded возвращает true, если ни одна оценка не поставлена.
func (s SkillScores) AllUngraded() bool {
	return s.GradedCount() == 0
}
