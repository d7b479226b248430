package routes

import (
	"net/http"
	"time"

	"docuchat-backend/internal/chat"
	"docuchat-backend/internal/logger"
	"docuchat-backend/internal/telemetry"
	"docuchat-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AskRequest is the query boundary payload. A missing session id starts a
// fresh conversation; the minted id comes back in the response.
type AskRequest struct {
	Question  string `json:"question" binding:"required"`
	SessionID string `json:"session_id,omitempty"`
}

// SetupChatRoutes wires the question-answering boundary.
func SetupChatRoutes(router *gin.Engine, orchestrator *chat.Orchestrator, metrics *telemetry.Metrics) {
	router.POST("/ask", func(c *gin.Context) {
		var req AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Question is required", gin.H{"error": err.Error()})
			return
		}

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		start := time.Now()
		result, err := orchestrator.Ask(c.Request.Context(), sessionID, req.Question)
		if err != nil {
			logger.Error("Ask failed", "session_id", sessionID, "error", err)
			if metrics != nil {
				metrics.RecordAsk(time.Since(start).Seconds(), "error")
			}
			utils.RespondWithPipelineError(c, err)
			return
		}
		if metrics != nil {
			metrics.RecordAsk(time.Since(start).Seconds(), "success")
		}

		c.JSON(http.StatusOK, gin.H{
			"answer":           result.Answer,
			"retrieved_chunks": result.RetrievedChunks,
			"session_id":       result.SessionID,
			"latency_ms":       int(time.Since(start).Milliseconds()),
		})
	})
}
