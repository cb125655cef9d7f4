package telegramhandler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jarvishq/jarvis-server/internal/domain/pipeline"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/logger"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/telegram"
)

// WebhookHandler accepts Bot API webhook pushes as an alternative to the
// polling loop. Telegram retries failed deliveries, so the handler always
// answers 200 once the update is parseable.
type WebhookHandler struct {
	pipeline *pipeline.Pipeline
	client   *telegram.Client
}

func NewWebhookHandler(pipe *pipeline.Pipeline, client *telegram.Client) *WebhookHandler {
	return &WebhookHandler{pipeline: pipe, client: client}
}

// HandleUpdate godoc
// @Summary Telegram webhook endpoint
// @Tags Telegram
// @Accept json
// @Produce json
// @Param update body telegram.Update true "Bot API update"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /v1/telegram/webhook [post]
func (h *WebhookHandler) HandleUpdate(c *gin.Context) {
	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed update"})
		return
	}

	if update.Message == nil || strings.TrimSpace(update.Message.Text) == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	log := logger.WithComponent("telegram")
	identity := fmt.Sprintf("tg:%d", update.Message.Chat.ID)

	reply, err := h.pipeline.HandleMessage(c.Request.Context(), identity, update.Message.Text)
	if err != nil {
		log.Error().Err(err).Str("identity", identity).Msg("webhook message handling failed")
	}
	if reply != "" {
		if err := h.client.SendMessage(c.Request.Context(), update.Message.Chat.ID, reply); err != nil {
			log.Error().Err(err).Str("identity", identity).Msg("webhook reply delivery failed")
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
