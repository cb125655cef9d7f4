package messagehandler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jarvishq/jarvis-server/internal/domain/pipeline"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/logger"
	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

// MessageRequest is one user turn submitted over HTTP.
type MessageRequest struct {
	Identity string `json:"identity" binding:"required"`
	Text     string `json:"text" binding:"required"`
}

// MessageResponse carries the assistant's reply.
type MessageResponse struct {
	Reply string `json:"reply"`
}

// MessageHandler exposes the conversation pipeline over HTTP.
type MessageHandler struct {
	pipeline *pipeline.Pipeline
}

func NewMessageHandler(pipe *pipeline.Pipeline) *MessageHandler {
	return &MessageHandler{pipeline: pipe}
}

// HandleMessage godoc
// @Summary Submit a user message
// @Description Runs one conversation turn through the assistant and returns the reply
// @Tags Messages
// @Accept json
// @Produce json
// @Param request body MessageRequest true "User turn"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /v1/messages [post]
func (h *MessageHandler) HandleMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identity and text are required"})
		return
	}

	identity := strings.TrimSpace(req.Identity)
	if identity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identity must not be blank"})
		return
	}

	reply, err := h.pipeline.HandleMessage(c.Request.Context(), identity, req.Text)
	if err != nil {
		status := http.StatusInternalServerError
		var platformErr *platformerrors.PlatformError
		if errors.As(err, &platformErr) {
			status = platformerrors.ErrorTypeToHTTPStatus(platformErr.Type)
			platformerrors.LogError(logger.WithComponent("http"), platformErr)
		} else {
			log := logger.WithComponent("http")
			log.Error().Err(err).Msg("message handling failed")
		}
		c.JSON(status, gin.H{"error": "failed to handle message"})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Reply: reply})
}
