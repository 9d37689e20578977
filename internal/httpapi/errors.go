package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"docqa/internal/domain"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domain.ErrEmptyInput, fiber.StatusBadRequest, "empty_input"},
	{domain.ErrInvalidConfig, fiber.StatusBadRequest, "invalid_request"},
	{domain.ErrUnsupportedType, fiber.StatusUnsupportedMediaType, "unsupported_type"},
	{domain.ErrMalformedDocument, fiber.StatusUnprocessableEntity, "malformed_document"},
	{domain.ErrDuplicateDocument, fiber.StatusConflict, "duplicate_document"},
	{domain.ErrNotFound, fiber.StatusNotFound, "not_found"},
	{domain.ErrEmbeddingTimeout, fiber.StatusGatewayTimeout, "embedding_timeout"},
	{domain.ErrGenerationTimeout, fiber.StatusGatewayTimeout, "generation_timeout"},
	{domain.ErrEmbeddingUnavailable, fiber.StatusServiceUnavailable, "embedding_unavailable"},
	{domain.ErrGenerationUnavailable, fiber.StatusServiceUnavailable, "generation_unavailable"},
	{domain.ErrDimensionMismatch, fiber.StatusInternalServerError, "dimension_mismatch"},
	{domain.ErrCorruptIndex, fiber.StatusInternalServerError, "corrupt_index"},
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	SessionID string `json:"session_id,omitempty"`
}

func classify(err error) (int, ErrorResponse) {
	resp := ErrorResponse{
		Error:     "internal",
		Message:   err.Error(),
		Retryable: domain.IsTransient(err),
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			resp.Error = m.code
			return m.status, resp
		}
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		resp.Error = "http"
		resp.Message = fe.Message
		return fe.Code, resp
	}
	return fiber.StatusInternalServerError, resp
}

func writeError(c fiber.Ctx, err error, sessionID string) error {
	status, resp := classify(err)
	resp.SessionID = sessionID
	return c.Status(status).JSON(resp)
}

// errorHandler renders errors that escape handlers, including recovered panics.
func errorHandler(c fiber.Ctx, err error) error {
	return writeError(c, err, "")
}
