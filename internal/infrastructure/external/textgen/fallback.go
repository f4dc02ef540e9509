package textgen

import (
	"context"
	"fmt"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
)

// StaticGenerator returns deterministic texts without calling any service.
// It is used when no API key is configured and as the fallback behind the breaker.
type StaticGenerator struct{}

var _ student.TextGenerator = StaticGenerator{}

// Generate implements student.TextGenerator.
func (StaticGenerator) Generate(_ context.Context, kind student.TextKind, vars map[string]string) (string, error) {
	name := vars["name"]
	if name == "" {
		name = "our student"
	}

	switch kind {
	case student.TextParentFeedback:
		if vars["session_points"] != "" {
			return fmt.Sprintf("%s trained with us today and earned %s points toward the next stripe.", name, vars["session_points"]), nil
		}
		return fmt.Sprintf("%s trained with us today. Thank you for your support!", name), nil
	case student.TextPromotionMessage:
		return fmt.Sprintf("Congratulations %s on earning the %s belt!", name, vars["to_belt"]), nil
	case student.TextWelcomeEmail:
		return fmt.Sprintf("Welcome to the dojo, %s! We are glad to have you on the mat.", name), nil
	default:
		return "", fmt.Errorf("unknown text kind %q", kind)
	}
}
