package handlers

import (
	"net/http"

	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm"
	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm/providers"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ModelsHandler struct {
	router *providers.Router
	logger *zap.Logger
}

func NewModelsHandler(router *providers.Router, logger *zap.Logger) *ModelsHandler {
	return &ModelsHandler{
		router: router,
		logger: logger,
	}
}

type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Provider    string `json:"provider"`
	Available   bool   `json:"available"`
}

// GET /models - каталог моделей с доступностью провайдеров
func (h *ModelsHandler) GetAvailableModels(c *gin.Context) {
	live := make(map[llm.Provider]bool)
	for _, p := range h.router.Providers() {
		live[p] = true
	}

	catalog := llm.Models()
	out := make([]ModelInfo, 0, len(catalog))
	for _, m := range catalog {
		out = append(out, ModelInfo{
			Name:        m.Name,
			DisplayName: m.DisplayName,
			Provider:    string(m.Provider),
			Available:   live[m.Provider],
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"models":  out,
		"default": llm.DefaultModel().Name,
	})
}
