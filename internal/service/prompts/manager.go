package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/interfaces"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultPromptContent содержимое системного промпта по умолчанию,
// создаваемого при первом запуске.
const DefaultPromptContent = `Ты — Шеф-Помощник, дружелюбный и опытный кулинарный ассистент. Твоя задача — помогать пользователю готовить вкусные блюда, подбирать рецепты из имеющихся продуктов, советовать замены ингредиентов и объяснять кулинарные техники простым языком. Отвечай кратко и по делу, при необходимости уточняй детали у пользователя.`

const defaultPromptName = "Шеф-Помощник"

// ErrPromptNotFound промпт с указанным id отсутствует.
var ErrPromptNotFound = fmt.Errorf("prompt not found")

// Manager управляет коллекцией системных промптов и указателем
// на активный промпт. Коллекция хранится одним JSON-документом.
type Manager struct {
	store  interfaces.PreferenceStore
	logger *zap.Logger
}

func NewManager(store interfaces.PreferenceStore, logger *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger.With(zap.String("component", "prompts_manager")),
	}
}

// InitializeDefault создаёт дефолтный промпт при пустой коллекции.
// Повторный вызов на непустой коллекции ничего не делает.
func (m *Manager) InitializeDefault(ctx context.Context) error {
	prompts, err := m.List(ctx)
	if err != nil {
		return err
	}
	if len(prompts) > 0 {
		return nil
	}

	def := models.SystemPrompt{
		ID:        uuid.NewString(),
		Name:      defaultPromptName,
		Content:   DefaultPromptContent,
		IsDefault: true,
	}
	if err := m.save(ctx, []models.SystemPrompt{def}); err != nil {
		return err
	}
	if err := m.store.Set(ctx, interfaces.KeyCurrentPromptID, def.ID); err != nil {
		return fmt.Errorf("failed to save current prompt id: %w", err)
	}

	m.logger.Info("Default system prompt created", zap.String("prompt_id", def.ID))
	return nil
}

// List возвращает все сохранённые промпты.
func (m *Manager) List(ctx context.Context) ([]models.SystemPrompt, error) {
	raw, ok, err := m.store.Get(ctx, interfaces.KeySystemPrompts)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts: %w", err)
	}
	if !ok {
		return []models.SystemPrompt{}, nil
	}
	return models.DecodePrompts(raw), nil
}

// Create добавляет новый промпт и возвращает его с присвоенным id.
func (m *Manager) Create(ctx context.Context, name, content string) (models.SystemPrompt, error) {
	if strings.TrimSpace(name) == "" {
		return models.SystemPrompt{}, fmt.Errorf("prompt name must not be blank")
	}

	prompts, err := m.List(ctx)
	if err != nil {
		return models.SystemPrompt{}, err
	}

	prompt := models.SystemPrompt{
		ID:      uuid.NewString(),
		Name:    name,
		Content: content,
	}
	prompts = append(prompts, prompt)
	if err := m.save(ctx, prompts); err != nil {
		return models.SystemPrompt{}, err
	}

	m.logger.Info("System prompt created",
		zap.String("prompt_id", prompt.ID),
		zap.String("name", prompt.Name),
	)
	return prompt, nil
}

// Update изменяет имя и содержимое существующего промпта.
func (m *Manager) Update(ctx context.Context, id, name, content string) (models.SystemPrompt, error) {
	prompts, err := m.List(ctx)
	if err != nil {
		return models.SystemPrompt{}, err
	}

	for i := range prompts {
		if prompts[i].ID != id {
			continue
		}
		if strings.TrimSpace(name) != "" {
			prompts[i].Name = name
		}
		prompts[i].Content = content
		if err := m.save(ctx, prompts); err != nil {
			return models.SystemPrompt{}, err
		}
		m.logger.Info("System prompt updated", zap.String("prompt_id", id))
		return prompts[i], nil
	}
	return models.SystemPrompt{}, fmt.Errorf("%w: %s", ErrPromptNotFound, id)
}

// Delete удаляет промпт. Дефолтный промпт удалить нельзя.
// Если удалён активный промпт, указатель переводится на дефолтный.
func (m *Manager) Delete(ctx context.Context, id string) error {
	prompts, err := m.List(ctx)
	if err != nil {
		return err
	}

	kept := make([]models.SystemPrompt, 0, len(prompts))
	found := false
	for _, p := range prompts {
		if p.ID == id {
			if p.IsDefault {
				return fmt.Errorf("default prompt cannot be deleted")
			}
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrPromptNotFound, id)
	}

	if err := m.save(ctx, kept); err != nil {
		return err
	}

	currentID, ok, err := m.store.Get(ctx, interfaces.KeyCurrentPromptID)
	if err == nil && ok && currentID == id {
		if err := m.store.Delete(ctx, interfaces.KeyCurrentPromptID); err != nil {
			m.logger.Warn("Failed to reset current prompt id", zap.Error(err))
		}
	}

	m.logger.Info("System prompt deleted", zap.String("prompt_id", id))
	return nil
}

// Select делает промпт активным.
func (m *Manager) Select(ctx context.Context, id string) error {
	prompts, err := m.List(ctx)
	if err != nil {
		return err
	}
	for _, p := range prompts {
		if p.ID == id {
			if err := m.store.Set(ctx, interfaces.KeyCurrentPromptID, id); err != nil {
				return fmt.Errorf("failed to save current prompt id: %w", err)
			}
			m.logger.Info("System prompt selected", zap.String("prompt_id", id))
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrPromptNotFound, id)
}

// Current возвращает активный промпт. Порядок выбора: сохранённый
// указатель, затем дефолтный промпт, затем первый в коллекции.
func (m *Manager) Current(ctx context.Context) (models.SystemPrompt, error) {
	prompts, err := m.List(ctx)
	if err != nil {
		return models.SystemPrompt{}, err
	}
	if len(prompts) == 0 {
		return models.SystemPrompt{}, fmt.Errorf("%w: collection is empty", ErrPromptNotFound)
	}

	currentID, ok, err := m.store.Get(ctx, interfaces.KeyCurrentPromptID)
	if err != nil {
		return models.SystemPrompt{}, fmt.Errorf("failed to read current prompt id: %w", err)
	}
	if ok {
		for _, p := range prompts {
			if p.ID == currentID {
				return p, nil
			}
		}
	}
	for _, p := range prompts {
		if p.IsDefault {
			return p, nil
		}
	}
	return prompts[0], nil
}

func (m *Manager) save(ctx context.Context, prompts []models.SystemPrompt) error {
	encoded, err := models.EncodePrompts(prompts)
	if err != nil {
		return fmt.Errorf("failed to encode prompts: %w", err)
	}
	if err := m.store.Set(ctx, interfaces.KeySystemPrompts, encoded); err != nil {
		return fmt.Errorf("failed to save prompts: %w", err)
	}
	return nil
}
