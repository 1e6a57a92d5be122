package handlers

import (
	"errors"
	"net/http"

	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/prompts"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PromptsHandler struct {
	promptsManager *prompts.Manager
	logger         *zap.Logger
}

func NewPromptsHandler(promptsManager *prompts.Manager, logger *zap.Logger) *PromptsHandler {
	return &PromptsHandler{
		promptsManager: promptsManager,
		logger:         logger,
	}
}

type PromptRequest struct {
	Name    string `json:"name" binding:"required"`
	Content string `json:"content"`
}

type UpdatePromptRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// GET /prompts - список системных промптов
func (h *PromptsHandler) ListPrompts(c *gin.Context) {
	list, err := h.promptsManager.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list prompts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list prompts",
			Code:    "PROMPTS_ERROR",
			Details: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompts": list, "total": len(list)})
}

// POST /prompts - создание промпта
func (h *PromptsHandler) CreatePrompt(c *gin.Context) {
	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request format",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	prompt, err := h.promptsManager.Create(c.Request.Context(), req.Name, req.Content)
	if err != nil {
		h.logger.Error("Failed to create prompt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to create prompt",
			Code:    "PROMPTS_ERROR",
			Details: err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, prompt)
}

// PUT /prompts/:id - обновление промпта
func (h *PromptsHandler) UpdatePrompt(c *gin.Context) {
	var req UpdatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request format",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	prompt, err := h.promptsManager.Update(c.Request.Context(), c.Param("id"), req.Name, req.Content)
	if err != nil {
		h.respondPromptError(c, err, "Failed to update prompt")
		return
	}
	c.JSON(http.StatusOK, prompt)
}

// DELETE /prompts/:id - удаление промпта
func (h *PromptsHandler) DeletePrompt(c *gin.Context) {
	if err := h.promptsManager.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondPromptError(c, err, "Failed to delete prompt")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Prompt deleted successfully"})
}

// POST /prompts/:id/select - выбор активного промпта
func (h *PromptsHandler) SelectPrompt(c *gin.Context) {
	if err := h.promptsManager.Select(c.Request.Context(), c.Param("id")); err != nil {
		h.respondPromptError(c, err, "Failed to select prompt")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Prompt selected successfully"})
}

// GET /prompts/current - активный промпт
func (h *PromptsHandler) GetCurrentPrompt(c *gin.Context) {
	prompt, err := h.promptsManager.Current(c.Request.Context())
	if err != nil {
		h.respondPromptError(c, err, "Failed to get current prompt")
		return
	}
	c.JSON(http.StatusOK, prompt)
}

func (h *PromptsHandler) respondPromptError(c *gin.Context, err error, message string) {
	if errors.Is(err, prompts.ErrPromptNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Prompt not found",
			Code:  "PROMPT_NOT_FOUND",
		})
		return
	}
	h.logger.Error(message, zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   message,
		Code:    "PROMPTS_ERROR",
		Details: err.Error(),
	})
}
