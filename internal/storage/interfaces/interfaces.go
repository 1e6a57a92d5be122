package interfaces

import (
	"context"
)

// PreferenceStore асинхронное key-value хранилище настроек,
// промптов и истории с уведомлением об изменениях.
type PreferenceStore interface {
	// Get возвращает значение ключа; второй результат false, если ключа нет.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set записывает значение ключа и уведомляет наблюдателей.
	Set(ctx context.Context, key, value string) error

	// Delete удаляет ключ.
	Delete(ctx context.Context, key string) error

	// Watch возвращает канал, получающий новое значение при каждой записи ключа.
	// Канал закрывается при закрытии хранилища.
	Watch(key string) <-chan string

	Close() error
}

// Ключи хранилища. Формат значений стабилен между перезапусками.
const (
	KeyChatHistory     = "chat_history"      // JSON-массив ChatMessage
	KeyTemperature     = "temperature"       // float
	KeySelectedModel   = "selected_model"    // имя модели из реестра
	KeyMaxTokens       = "max_tokens"        // int
	KeySystemPrompts   = "prompts"           // JSON-массив SystemPrompt
	KeyCurrentPromptID = "current_prompt_id" // string
)
