package utils

import (
	"errors"
	"net/http"

	"docuchat-backend/models"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// RespondWithPipelineError maps pipeline error classes onto HTTP responses.
// Provider failures surface as a generic internal failure; the cause is for
// the logs, not the client.
func RespondWithPipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		RespondWithError(c, http.StatusBadRequest, "invalid_input", err.Error(), nil)
	case errors.Is(err, models.ErrIndexUnavailable):
		RespondWithError(c, http.StatusConflict, "index_unavailable",
			"No documents have been ingested yet", nil)
	case errors.Is(err, models.ErrParse):
		RespondWithError(c, http.StatusUnprocessableEntity, "parse_error", err.Error(), nil)
	case errors.Is(err, models.ErrFetch), errors.Is(err, models.ErrNetwork):
		RespondWithError(c, http.StatusBadGateway, "fetch_error", err.Error(), nil)
	case errors.Is(err, models.ErrConfig):
		RespondWithInternalError(c, "Service misconfigured", nil)
	case errors.Is(err, models.ErrEmbeddingService), errors.Is(err, models.ErrGenerationService):
		RespondWithInternalError(c, "AI provider request failed", nil)
	default:
		RespondWithInternalError(c, "Internal server error", nil)
	}
}
