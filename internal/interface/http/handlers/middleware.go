package handlers

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/dojo-hub/dojo-community-hub/pkg/logger"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

const localsRequestID = "request_id"

// RequestID returns the request ID stored by RequestIDMiddleware.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(localsRequestID).(string)
	return id
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

// RequestIDMiddleware assigns a request ID and attaches a request-scoped logger
// and a deadline to the user context.
func RequestIDMiddleware(log *logger.Logger, timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(HeaderRequestID, id)
		c.Locals(localsRequestID, id)

		ctx := logger.WithContext(c.UserContext(), log.WithRequestID(id))
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// LoggingMiddleware logs every request after it completes.
func LoggingMiddleware(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		fields := []logger.Field{
			logger.String("method", c.Method()),
			logger.String("path", c.Path()),
			logger.Int("status", status),
			logger.Latency(time.Since(start)),
			logger.String("ip", c.IP()),
			logger.String("request_id", RequestID(c)),
		}
		if status >= fiber.StatusInternalServerError {
			log.Error("http request", fields...)
		} else {
			log.Info("http request", fields...)
		}
		return err
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// APIKeyAuth guards admin routes with static API keys.
type APIKeyAuth struct {
	headerName string
	keys       []string
}

// NewAPIKeyAuth creates an authenticator. Empty keys are ignored.
func NewAPIKeyAuth(headerName string, keys []string) *APIKeyAuth {
	if headerName == "" {
		headerName = "X-API-Key"
	}
	valid := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			valid = append(valid, k)
		}
	}
	return &APIKeyAuth{headerName: headerName, keys: valid}
}

// Enabled reports whether any key is configured.
func (a *APIKeyAuth) Enabled() bool {
	return len(a.keys) > 0
}

// IsValid checks a key in constant time per configured key.
func (a *APIKeyAuth) IsValid(key string) bool {
	for _, k := range a.keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return true
		}
	}
	return false
}

// Middleware rejects requests without a valid key. It passes everything
// through when no keys are configured.
func (a *APIKeyAuth) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !a.Enabled() {
			return c.Next()
		}

		key := c.Get(a.headerName)
		if key == "" {
			if auth := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		switch {
		case key == "":
			return fiber.NewError(fiber.StatusUnauthorized, "API key is required")
		case !a.IsValid(key):
			return fiber.NewError(fiber.StatusUnauthorized, "invalid API key")
		}
		return c.Next()
	}
}
