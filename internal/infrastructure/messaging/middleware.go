package messaging

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
	"github.com/dojo-hub/dojo-community-hub/pkg/logger"
)

// Middleware wraps an event handler.
type Middleware func(shared.EventHandler) shared.EventHandler

// RecoveryMiddleware turns a handler panic into ErrHandlerPanic.
func RecoveryMiddleware(log *logger.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("event handler panicked",
						logger.String("event_type", string(event.EventType())),
						logger.Any("panic", r),
						logger.String("stack", string(debug.Stack())),
					)
					err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
				}
			}()
			return next(event)
		}
	}
}

// LoggingMiddleware logs every handled event at debug level.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			start := time.Now()
			err := next(event)
			fields := []logger.Field{
				logger.String("event_type", string(event.EventType())),
				logger.String("aggregate_id", event.AggregateID()),
				logger.Latency(time.Since(start)),
			}
			if err != nil {
				log.Warn("event handler failed", append(fields, logger.Err(err))...)
				return err
			}
			log.Debug("event handled", fields...)
			return nil
		}
	}
}

// AuditHandler returns a handler that writes every domain event to the log at info level.
// Registered with SubscribeAll it gives an operator trail of promotions and imports.
func AuditHandler(log *logger.Logger) shared.EventHandler {
	log = log.With(logger.Component("audit"))
	return func(event shared.Event) error {
		log.Info(string(event.EventType()),
			logger.String("aggregate_id", event.AggregateID()),
			logger.Time("occurred_at", event.OccurredAt()),
			logger.Any("payload", event.Payload()),
		)
		return nil
	}
}
