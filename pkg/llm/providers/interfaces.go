package providers

import (
	"context"
	"time"

	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm"
)

// HistoryMessage сообщение прошлого контекста в провайдер-независимом формате.
type HistoryMessage struct {
	Role string `json:"role"` // "user" или "assistant"
	Text string `json:"text"`
}

// Request провайдер-независимый запрос на генерацию ответа.
type Request struct {
	Prompt       string
	SystemPrompt string
	Model        llm.Model
	Temperature  float64
	MaxTokens    int
	History      []HistoryMessage
}

// TokenInfo телеметрия одного хода: счётчики токенов, время и стоимость.
type TokenInfo struct {
	RequestTokens  int     `json:"request_tokens"`
	ResponseTokens int     `json:"response_tokens"`
	ResponseTimeMs int64   `json:"response_time_ms"`
	CostUSD        float64 `json:"cost_usd"`
}

// Response нормализованный результат генерации.
// Tokens == nil означает, что провайдер не поддерживает телеметрию.
type Response struct {
	Text   string
	Tokens *TokenInfo
}

// Client интерфейс клиента одного вендора.
type Client interface {
	// Name возвращает тег провайдера.
	Name() string

	// GenerateResponse выполняет один запрос к completion-эндпоинту.
	// Пустой prompt отклоняется локально до любого сетевого вызова.
	GenerateResponse(ctx context.Context, req Request) (*Response, error)
}

// Config общая конфигурация клиента провайдера.
type Config struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	FolderID   string        `mapstructure:"folder_id"`
	Timeout    time.Duration `mapstructure:"timeout"`
	PricePer1K float64       `mapstructure:"price_per_1k"`
}

func clampMaxTokens(n int) int {
	if n < 1 {
		return 1
	}
	if n > 32000 {
		return 32000
	}
	return n
}
