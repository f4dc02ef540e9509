package student

import "context"

// TextKind - вид текста, запрашиваемого у сервиса генерации.
type TextKind string

const (
	// TextParentFeedback - отзыв для родителей после тренировки.
	TextParentFeedback TextKind = "parent_feedback"
	// TextPromotionMessage - поздравление с новым поясом.
	TextPromotionMessage TextKind = "promotion_message"
	// TextWelcomeEmail - приветственное письмо новому ученику.
	TextWelcomeEmail TextKind = "welcome_email"
)

// IsValid проверяет, что вид текста известен.
func (k TextKind) IsValid() bool {
	switch k {
	case TextParentFeedback, TextPromotionMessage, TextWelcomeEmail:
		return true
	default:
		return false
	}
}

// TextGenerator - внешний сервис генерации текста.
// Реализации находятся в infrastructure/external/textgen.
type TextGenerator interface {
	// Generate возвращает текст указанного вида по переменным контекста.
	Generate(ctx context.Context, kind TextKind, vars map[string]string) (string, error)
}
