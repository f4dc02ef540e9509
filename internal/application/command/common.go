// Package command contains write operations (CQRS - Commands).
// Commands change the state of students and import batches and publish
// domain events after the state has been persisted.
package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
	"github.com/dojo-hub/dojo-community-hub/pkg/logger"
	"github.com/dojo-hub/dojo-community-hub/pkg/timeutil"
)

// DefaultTextTimeout bounds a single text generation request made by a command.
const DefaultTextTimeout = 8 * time.Second

// publish sends events one by one. Publisher failures are logged, never returned:
// the state change they describe is already persisted.
func publish(publisher shared.EventPublisher, log *logger.Logger, events []shared.Event) {
	if publisher == nil {
		return
	}
	for _, e := range events {
		if err := publisher.Publish(e); err != nil {
			log.Warn("failed to publish event",
				logger.String("event_type", string(e.EventType())),
				logger.String("aggregate_id", e.AggregateID()),
				logger.Err(err),
			)
		}
	}
}

// generate asks gen for text under timeout. A nil generator yields an empty string.
func generate(ctx context.Context, gen student.TextGenerator, timeout time.Duration, kind student.TextKind, vars map[string]string) (string, error) {
	if gen == nil {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return gen.Generate(ctx, kind, vars)
}

func orSystemClock(c timeutil.Clock) timeutil.Clock {
	if c == nil {
		return timeutil.SystemClock{}
	}
	return c
}

func orNop(l *logger.Logger) *logger.Logger {
	if l == nil {
		return logger.Nop()
	}
	return l
}

// formatSkills renders graded skills as "forms=2, kicks=1" in key order.
func formatSkills(scores map[string]int) string {
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, scores[k])
	}
	return strings.Join(parts, ", ")
}
