package handlers

import (
	"net/http"

	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/settings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SettingsHandler struct {
	settingsManager *settings.Manager
	logger          *zap.Logger
}

func NewSettingsHandler(settingsManager *settings.Manager, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		settingsManager: settingsManager,
		logger:          logger,
	}
}

type UpdateSettingsRequest struct {
	Temperature   *float64 `json:"temperature,omitempty"`
	MaxTokens     *int     `json:"max_tokens,omitempty"`
	SelectedModel *string  `json:"selected_model,omitempty"`
}

// GET /settings - текущие настройки генерации
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	current, err := h.settingsManager.Get(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to get settings",
			Code:    "SETTINGS_ERROR",
			Details: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, current)
}

// PUT /settings - частичное обновление настроек.
// Значения вне диапазона обрезаются, а не отклоняются.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request format",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	if req.Temperature != nil {
		if err := h.settingsManager.SetTemperature(ctx, *req.Temperature); err != nil {
			h.logger.Error("Failed to update temperature", zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "Failed to update temperature",
				Code:    "SETTINGS_ERROR",
				Details: err.Error(),
			})
			return
		}
	}
	if req.MaxTokens != nil {
		if err := h.settingsManager.SetMaxTokens(ctx, *req.MaxTokens); err != nil {
			h.logger.Error("Failed to update max tokens", zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "Failed to update max tokens",
				Code:    "SETTINGS_ERROR",
				Details: err.Error(),
			})
			return
		}
	}
	if req.SelectedModel != nil {
		if err := h.settingsManager.SetSelectedModel(ctx, *req.SelectedModel); err != nil {
			h.logger.Error("Failed to update selected model", zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "Failed to update selected model",
				Code:    "SETTINGS_ERROR",
				Details: err.Error(),
			})
			return
		}
	}

	current, err := h.settingsManager.Get(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to read settings",
			Code:    "SETTINGS_ERROR",
			Details: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, current)
}
