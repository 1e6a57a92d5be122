package history

import (
	"context"
	"fmt"

	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/interfaces"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/models"

	"go.uber.org/zap"
)

// Manager грузит и сохраняет историю чата одним документом.
// Частичных записей нет: каждое изменение — полная перезапись,
// поэтому любое сохранённое состояние самосогласовано.
type Manager struct {
	store  interfaces.PreferenceStore
	logger *zap.Logger
}

func NewManager(store interfaces.PreferenceStore, logger *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger.With(zap.String("component", "history_manager")),
	}
}

// Load возвращает сохранённую историю. Отсутствующий или
// повреждённый документ даёт пустую историю.
func (m *Manager) Load(ctx context.Context) ([]models.ChatMessage, error) {
	raw, ok, err := m.store.Get(ctx, interfaces.KeyChatHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}
	if !ok {
		return []models.ChatMessage{}, nil
	}
	return models.DecodeHistory(raw), nil
}

// Save перезаписывает историю целиком.
func (m *Manager) Save(ctx context.Context, messages []models.ChatMessage) error {
	encoded, err := models.EncodeHistory(messages)
	if err != nil {
		return fmt.Errorf("failed to encode chat history: %w", err)
	}
	if err := m.store.Set(ctx, interfaces.KeyChatHistory, encoded); err != nil {
		return fmt.Errorf("failed to save chat history: %w", err)
	}
	m.logger.Debug("Chat history saved", zap.Int("messages_count", len(messages)))
	return nil
}

// Clear удаляет историю.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, interfaces.KeyChatHistory); err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}
	m.logger.Info("Chat history cleared")
	return nil
}
