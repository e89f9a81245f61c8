package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/socialgrab/downorc/internal/orchestrator"
	"github.com/socialgrab/downorc/internal/utils"
)

// WebhookHandler is the single ingress point the messenger posts chat
// updates to (§6). It only extracts enough to dispatch into the
// orchestrator; everything else is the orchestrator's concern.
type WebhookHandler struct {
	core *orchestrator.Core
}

func NewWebhookHandler(core *orchestrator.Core) *WebhookHandler {
	return &WebhookHandler{core: core}
}

// Ingress decodes one Telegram update and dispatches it asynchronously,
// returning 200 immediately so the messenger doesn't retry the update
// while a download is still running (§5 "one request does not block
// another").
func (h *WebhookHandler) Ingress(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update payload"})
		return
	}

	if update.Message == nil || update.Message.Text == "" {
		c.Status(http.StatusOK)
		return
	}

	in := orchestrator.Incoming{
		ChatID:      update.Message.Chat.ID,
		UserRef:     userRefFor(update),
		Text:        update.Message.Text,
		LanguageTag: update.Message.From.LanguageCode,
	}

	// Detached from the request context: processing a download outlives
	// the HTTP response (§5), matching the teacher's
	// go d.downloadTelegramMedia(context.Background(), post) dispatch.
	bgCtx := context.Background()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				utils.LogError(bgCtx, "webhook: panic in async request processing", nil)
			}
		}()
		h.core.Process(bgCtx, in)
	}()

	c.Status(http.StatusOK)
}

func userRefFor(update tgbotapi.Update) string {
	if update.Message.From == nil {
		return ""
	}
	return update.Message.From.UserName
}
