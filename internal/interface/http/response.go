package http

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
	"github.com/dojo-hub/dojo-community-hub/internal/interface/http/handlers"
	"github.com/dojo-hub/dojo-community-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse is the envelope of every API response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      any           `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ResponseMeta carries paging and versioning information.
type ResponseMeta struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version"`
	TotalCount int       `json:"total_count,omitempty"`
	Offset     int       `json:"offset,omitempty"`
	Limit      int       `json:"limit,omitempty"`
	HasMore    bool      `json:"has_more,omitempty"`
}

func writeJSON(c *fiber.Ctx, status int, data any) error {
	return writeJSONWithMeta(c, status, data, nil)
}

func writeJSONWithMeta(c *fiber.Ctx, status int, data any, meta *ResponseMeta) error {
	if meta == nil {
		meta = &ResponseMeta{}
	}
	meta.Timestamp = time.Now().UTC()
	meta.Version = "v1"

	return c.Status(status).JSON(JSONResponse{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Meta:      meta,
		RequestID: handlers.RequestID(c),
	})
}

func writeJSONError(c *fiber.Ctx, status int, apiErr APIError) error {
	return c.Status(status).JSON(JSONResponse{
		Success:   false,
		Error:     &apiErr,
		Meta:      &ResponseMeta{Timestamp: time.Now().UTC(), Version: "v1"},
		RequestID: handlers.RequestID(c),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// handleError is the fiber error handler. Domain error kinds map to status
// codes; anything unrecognized is a 500 with a generic message.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status, apiErr := classify(err)
	if status >= fiber.StatusInternalServerError {
		s.log.Error("request failed",
			logger.String("path", c.Path()),
			logger.String("request_id", handlers.RequestID(c)),
			logger.Err(err),
		)
	}
	return writeJSONError(c, status, apiErr)
}

func classify(err error) (int, APIError) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, APIError{Code: codeForStatus(fe.Code), Message: fe.Message}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return fiber.StatusBadRequest, APIError{
			Code:    "validation_failed",
			Message: "request validation failed",
			Fields:  fieldErrors(verrs),
		}
	}

	message := err.Error()
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		message = de.Message
	}

	switch {
	case shared.IsNotFound(err):
		return fiber.StatusNotFound, APIError{Code: "not_found", Message: message}
	case shared.IsAlreadyExists(err), shared.IsStateConflict(err):
		return fiber.StatusConflict, APIError{Code: "conflict", Message: message}
	case shared.IsValidation(err):
		return fiber.StatusBadRequest, APIError{Code: "invalid_request", Message: message}
	case shared.IsExternalService(err):
		return fiber.StatusServiceUnavailable, APIError{Code: "service_unavailable", Message: message}
	default:
		return fiber.StatusInternalServerError, APIError{Code: "internal_error", Message: "an unexpected error occurred"}
	}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "invalid_request"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	case fiber.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case fiber.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	default:
		if status >= fiber.StatusInternalServerError {
			return "internal_error"
		}
		return "error"
	}
}
