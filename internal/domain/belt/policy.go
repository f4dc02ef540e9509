package belt

import (
	"fmt"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
)

const (
	// DefaultPointsPerStripe - очков на одну полосу по умолчанию.
	DefaultPointsPerStripe = 100

	// DefaultStripesPerBelt - полос до готовности к аттестации по умолчанию.
	DefaultStripesPerBelt = 4
)

// PointsPolicy задаёт стоимость полосы и количество полос на пояс.
// Глобальные значения можно переопределить для конкретного пояса.
type PointsPolicy struct {
	// PointsPerStripe - очков на полосу для всех поясов.
	PointsPerStripe int

	// StripesPerBelt - полос, необходимых для готовности к аттестации.
	StripesPerBelt int

	// BeltPoints - переопределения PointsPerStripe по ID пояса.
	BeltPoints map[string]int

	// BeltStripes - переопределения StripesPerBelt по ID пояса.
	BeltStripes map[string]int
}

// DefaultPointsPolicy возвращает политику по умолчанию: 100 очков, 4 полосы.
func DefaultPointsPolicy() PointsPolicy {
	return PointsPolicy{
		PointsPerStripe: DefaultPointsPerStripe,
		StripesPerBelt:  DefaultStripesPerBelt,
	}
}

// Validate проверяет глобальные значения политики.
// Неположительные переопределения не являются ошибкой: они игнорируются.
func (p PointsPolicy) Validate() error {
	if p.PointsPerStripe <= 0 || p.StripesPerBelt <= 0 {
		return shared.WrapError("belt", "ValidatePolicy", shared.ErrInvalidBeltPolicy,
			"invalid points policy",
			fmt.Errorf("points_per_stripe=%d stripes_per_belt=%d", p.PointsPerStripe, p.StripesPerBelt))
	}
	return nil
}

// PointsRequired возвращает стоимость одной полосы для пояса.
func (p PointsPolicy) PointsRequired(beltID string) int {
	if v, ok := p.BeltPoints[beltID]; ok && v > 0 {
		return v
	}
	if p.PointsPerStripe > 0 {
		return p.PointsPerStripe
	}
	return DefaultPointsPerStripe
}

// StripesRequired возвращает число полос до готовности к аттестации.
func (p PointsPolicy) StripesRequired(beltID string) int {
	if v, ok := p.BeltStripes[beltID]; ok && v > 0 {
		return v
	}
	if p.StripesPerBelt > 0 {
		return p.StripesPerBelt
	}
	return DefaultStripesPerBelt
}

// StripesFor вычисляет полосы из накопленных очков: floor(points / cost).
// Верхнего предела нет.
func (p PointsPolicy) StripesFor(points int, beltID string) int {
	if points <= 0 {
		return 0
	}
	return points / p.PointsRequired(beltID)
}

// PointsToNextStripe возвращает, сколько очков осталось до следующей полосы.
func (p PointsPolicy) PointsToNextStripe(points int, beltID string) int {
	cost := p.PointsRequired(beltID)
	if points < 0 {
		points = 0
	}
	return cost - points%cost
}

// InitialPoints возвращает стартовые очки для заявленного числа полос.
func (p PointsPolicy) InitialPoints(stripes int, beltID string) int {
	if stripes <= 0 {
		return 0
	}
	return stripes * p.PointsRequired(beltID)
}
