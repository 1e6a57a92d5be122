package handlers

import (
	"errors"
	"net/http"

	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/chat"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/models"
	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ChatHandler struct {
	chatService *chat.Service
	logger      *zap.Logger
}

func NewChatHandler(chatService *chat.Service, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

type ChatResponse struct {
	Message models.ChatMessage `json:"message"`
	State   chat.State         `json:"state"`
}

type HistoryResponse struct {
	Messages []models.ChatMessage `json:"messages"`
	Total    int                  `json:"total"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// POST /chat - отправка сообщения в диалог
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request format",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	result, err := h.chatService.SendPrompt(c.Request.Context(), req.Message)
	if err != nil {
		if errors.Is(err, llm.ErrBlankPrompt) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "Message must not be blank",
				Code:  "BLANK_MESSAGE",
			})
			return
		}
		h.logger.Error("Failed to process message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to process message",
			Code:    "PROCESSING_ERROR",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, ChatResponse{
		Message: result,
		State:   h.chatService.State().Current(),
	})
}

// GET /chat/history - история диалога
func (h *ChatHandler) GetHistory(c *gin.Context) {
	messages, err := h.chatService.History(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to get history",
			Code:    "HISTORY_ERROR",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{
		Messages: messages,
		Total:    len(messages),
	})
}

// POST /chat/clear - очистка истории диалога
func (h *ChatHandler) ClearHistory(c *gin.Context) {
	if err := h.chatService.ClearHistory(c.Request.Context()); err != nil {
		h.logger.Error("Failed to clear history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to clear history",
			Code:    "CLEAR_ERROR",
			Details: err.Error(),
		})
		return
	}

	h.logger.Info("Chat history cleared via API")
	c.JSON(http.StatusOK, gin.H{"message": "History cleared successfully"})
}

// GET /chat/state - текущее наблюдаемое состояние диалога
func (h *ChatHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.chatService.State().Current())
}

// GET /chat/metrics - счётчики использования
func (h *ChatHandler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.chatService.Metrics().GetStats())
}
