package textgen

import (
	"context"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
)

// GatedGenerator asks enabled on every call and returns an empty text for
// kinds that are switched off. Callers treat empty text as "nothing generated".
type GatedGenerator struct {
	next    student.TextGenerator
	enabled func(student.TextKind) bool
}

var _ student.TextGenerator = (*GatedGenerator)(nil)

// NewGatedGenerator wraps next. A nil enabled lets every kind through.
func NewGatedGenerator(next student.TextGenerator, enabled func(student.TextKind) bool) *GatedGenerator {
	return &GatedGenerator{next: next, enabled: enabled}
}

// Generate implements student.TextGenerator.
func (g *GatedGenerator) Generate(ctx context.Context, kind student.TextKind, vars map[string]string) (string, error) {
	if g.enabled != nil && !g.enabled(kind) {
		return "", nil
	}
	return g.next.Generate(ctx, kind, vars)
}
