package models

import (
	"encoding/json"
	"time"
)

// ChatMessage представляет одно сообщение диалога в том виде,
// в котором оно хранится и сериализуется в историю.
// Телеметрия (токены, время, стоимость) опциональна: nil означает
// "нет данных", а не ноль.
type ChatMessage struct {
	ID             int64    `json:"id"`
	Text           string   `json:"text"`
	IsUser         bool     `json:"isUser"`
	TimestampMs    int64    `json:"timestampMs"`
	Model          *string  `json:"model,omitempty"`
	RequestTokens  *int     `json:"requestTokens,omitempty"`
	ResponseTokens *int     `json:"responseTokens,omitempty"`
	ResponseTimeMs *int64   `json:"responseTimeMs,omitempty"`
	CostUSD        *float64 `json:"costUsd,omitempty"`
	IsSummary      bool     `json:"isSummary,omitempty"`
}

// SystemPrompt сохранённый системный промпт.
type SystemPrompt struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

// Settings снимок пользовательских настроек на момент хода.
type Settings struct {
	Temperature   float64 `json:"temperature"`
	MaxTokens     int     `json:"maxTokens"`
	SelectedModel string  `json:"selectedModel"`
}

const (
	DefaultTemperature = 0.6
	DefaultMaxTokens   = 2000

	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinMaxTokens   = 1
	MaxMaxTokens   = 32000
)

// NewUserMessage создаёт сообщение пользователя с id, производным от времени.
func NewUserMessage(id int64, text string) ChatMessage {
	return ChatMessage{
		ID:          id,
		Text:        text,
		IsUser:      true,
		TimestampMs: id,
	}
}

// NewAssistantMessage создаёт ответ ассистента.
func NewAssistantMessage(id int64, text, model string) ChatMessage {
	return ChatMessage{
		ID:          id,
		Text:        text,
		IsUser:      false,
		TimestampMs: id,
		Model:       &model,
	}
}

// NewSummaryMessage создаёт сводку, замещающую сжатый блок истории.
// timestampMs берётся у первого сжатого сообщения, чтобы сводка
// встала на его хронологическое место.
func NewSummaryMessage(id int64, text string, timestampMs int64, model string) ChatMessage {
	return ChatMessage{
		ID:          id,
		Text:        text,
		IsUser:      false,
		TimestampMs: timestampMs,
		Model:       &model,
		IsSummary:   true,
	}
}

// EncodeHistory сериализует историю целиком (full-document replace).
func EncodeHistory(messages []ChatMessage) (string, error) {
	if messages == nil {
		messages = []ChatMessage{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeHistory разбирает сохранённую историю. Повреждённый JSON
// трактуется как пустая история, а не как ошибка.
func DecodeHistory(raw string) []ChatMessage {
	if raw == "" {
		return []ChatMessage{}
	}
	var messages []ChatMessage
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return []ChatMessage{}
	}
	if messages == nil {
		return []ChatMessage{}
	}
	return messages
}

// EncodePrompts сериализует список системных промптов.
func EncodePrompts(prompts []SystemPrompt) (string, error) {
	if prompts == nil {
		prompts = []SystemPrompt{}
	}
	data, err := json.Marshal(prompts)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodePrompts разбирает сохранённый список промптов.
func DecodePrompts(raw string) []SystemPrompt {
	if raw == "" {
		return []SystemPrompt{}
	}
	var prompts []SystemPrompt
	if err := json.Unmarshal([]byte(raw), &prompts); err != nil {
		return []SystemPrompt{}
	}
	if prompts == nil {
		return []SystemPrompt{}
	}
	return prompts
}

// Timestamp возвращает время сообщения как time.Time.
func (m ChatMessage) Timestamp() time.Time {
	return time.UnixMilli(m.TimestampMs)
}
