package scoring

// SanitizeBonus приводит отрицательные бонусные и домашние очки к нулю.
func SanitizeBonus(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// SessionTotal вычисляет итог сессии:
// сумма поставленных оценок + бонус + домашнее задание.
// Отрицательные бонусы считаются нулём, поэтому итог никогда не отрицателен.
func SessionTotal(scores SkillScores, bonus, homework int) int {
	total := 0
	for _, s := range scores {
		total += s.Points()
	}
	return total + SanitizeBonus(bonus) + SanitizeBonus(homework)
}

// IsTrivial возвращает true для пустой записи: все оценки «не оценено»,
// бонус и домашнее задание равны нулю. Такие записи не сохраняются.
func IsTrivial(scores SkillScores, bonus, homework int) bool {
	return scores.AllUngraded() && SanitizeBonus(bonus) == 0 && SanitizeBonus(homework) == 0
}
