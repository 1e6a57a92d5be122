package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/chat"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/history"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/prompts"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/settings"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/summary"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/memory"
	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm/providers"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type echoClient struct{}

func (e *echoClient) Name() string { return "echo" }

func (e *echoClient) GenerateResponse(ctx context.Context, req providers.Request) (*providers.Response, error) {
	return &providers.Response{Text: "эхо: " + req.Prompt}, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	t.Cleanup(func() { store.Close() })
	logger := zap.NewNop()

	settingsManager := settings.NewManager(store, logger)
	promptsManager := prompts.NewManager(store, logger)
	require.NoError(t, promptsManager.InitializeDefault(context.Background()))

	client := &echoClient{}
	chatService := chat.NewService(
		client,
		history.NewManager(store, logger),
		settingsManager,
		promptsManager,
		summary.NewService(client, logger),
		chat.DefaultConfig(),
		logger,
	)
	t.Cleanup(func() { chatService.State().Close() })

	r := gin.New()
	chatHandler := NewChatHandler(chatService, logger)
	settingsHandler := NewSettingsHandler(settingsManager, logger)

	api := r.Group("/api/v1")
	api.POST("/chat", chatHandler.SendMessage)
	api.GET("/chat/history", chatHandler.GetHistory)
	api.POST("/chat/clear", chatHandler.ClearHistory)
	api.GET("/chat/state", chatHandler.GetState)
	api.GET("/settings", settingsHandler.GetSettings)
	api.PUT("/settings", settingsHandler.UpdateSettings)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChatEndpoint_RoundTrip(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/chat", gin.H{"message": "привет"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "эхо: привет", resp.Message.Text)
	assert.Equal(t, chat.PhaseSuccess, resp.State.Phase)

	w = doJSON(t, r, http.MethodGet, "/api/v1/chat/history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var hist HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	assert.Equal(t, 2, hist.Total)
}

func TestChatEndpoint_BlankMessage(t *testing.T) {
	r := newTestRouter(t)

	// binding:"required" отсекает отсутствующее поле
	w := doJSON(t, r, http.MethodPost, "/api/v1/chat", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Пробельное сообщение отклоняется оркестратором
	w = doJSON(t, r, http.MethodPost, "/api/v1/chat", gin.H{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/chat/history", nil)
	var hist HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	assert.Equal(t, 0, hist.Total)
}

func TestClearEndpoint(t *testing.T) {
	r := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/api/v1/chat", gin.H{"message": "привет"})
	w := doJSON(t, r, http.MethodPost, "/api/v1/chat/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/chat/state", nil)
	var state chat.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, chat.PhaseIdle, state.Phase)
	assert.Empty(t, state.Messages)
}

func TestSettingsEndpoint_ClampsValues(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPut, "/api/v1/settings", gin.H{
		"temperature": 9.0,
		"max_tokens":  999999,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"maxTokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2.0, resp.Temperature)
	assert.Equal(t, 32000, resp.MaxTokens)
}
