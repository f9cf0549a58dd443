package assistant

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"recipe-aggregator/internal/api/handlers"
	"recipe-aggregator/internal/api/middleware"
	"recipe-aggregator/internal/core/ai/service"
	assistantCore "recipe-aggregator/internal/core/assistant"
)

// Assistant 對話助理能力
type Assistant interface {
	Chat(ctx context.Context, caller, message string, history []assistantCore.Turn, metered bool) (*assistantCore.ChatReply, error)
	Tip(ctx context.Context, caller, category, situation string) (*assistantCore.TipReply, error)
	Usage(ctx context.Context, caller string) (service.Usage, error)
}

// ChatRequest 對話請求
type ChatRequest struct {
	Message string               `json:"message" binding:"required,max=2000"`
	History []assistantCore.Turn `json:"history" binding:"max=50,dive"`
}

// Handler 助理處理程序
type Handler struct {
	assistant Assistant
}

func NewHandler(a Assistant) *Handler {
	return &Handler{assistant: a}
}

// Chat POST /assistant/chat
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, err)
		return
	}
	caller, metered := middleware.CallerFrom(c)

	reply, err := h.assistant.Chat(c.Request.Context(), caller, req.Message, req.History, metered)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// Tip GET /assistant/tip?category=&context=
func (h *Handler) Tip(c *gin.Context) {
	caller, _ := middleware.CallerFrom(c)

	tip, err := h.assistant.Tip(c.Request.Context(), caller, c.Query("category"), c.Query("context"))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, tip)
}

// Usage GET /assistant/usage
func (h *Handler) Usage(c *gin.Context) {
	caller, _ := middleware.CallerFrom(c)

	usage, err := h.assistant.Usage(c.Request.Context(), caller)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}
