package settings

import (
	"context"
	"fmt"
	"strconv"

	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/interfaces"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/models"
	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm"

	"go.uber.org/zap"
)

// Manager хранит пользовательские настройки генерации в PreferenceStore.
// Значения вне допустимого диапазона обрезаются при записи, так что
// прочитанное значение всегда валидно.
type Manager struct {
	store  interfaces.PreferenceStore
	logger *zap.Logger
}

func NewManager(store interfaces.PreferenceStore, logger *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger.With(zap.String("component", "settings_manager")),
	}
}

// Get возвращает текущие настройки; отсутствующие ключи
// заполняются значениями по умолчанию.
func (m *Manager) Get(ctx context.Context) (models.Settings, error) {
	settings := models.Settings{
		Temperature:   models.DefaultTemperature,
		MaxTokens:     models.DefaultMaxTokens,
		SelectedModel: llm.DefaultModel().Name,
	}

	if raw, ok, err := m.store.Get(ctx, interfaces.KeyTemperature); err != nil {
		return settings, fmt.Errorf("failed to read temperature: %w", err)
	} else if ok {
		if t, err := strconv.ParseFloat(raw, 64); err == nil {
			settings.Temperature = clampTemperature(t)
		}
	}

	if raw, ok, err := m.store.Get(ctx, interfaces.KeyMaxTokens); err != nil {
		return settings, fmt.Errorf("failed to read max tokens: %w", err)
	} else if ok {
		if n, err := strconv.Atoi(raw); err == nil {
			settings.MaxTokens = clampMaxTokens(n)
		}
	}

	if raw, ok, err := m.store.Get(ctx, interfaces.KeySelectedModel); err != nil {
		return settings, fmt.Errorf("failed to read selected model: %w", err)
	} else if ok {
		settings.SelectedModel = llm.ModelByName(raw).Name
	}

	return settings, nil
}

// SetTemperature сохраняет temperature, обрезав к [0, 2].
// Провайдер-специфичное сужение диапазона происходит в момент запроса.
func (m *Manager) SetTemperature(ctx context.Context, t float64) error {
	clamped := clampTemperature(t)
	if err := m.store.Set(ctx, interfaces.KeyTemperature, strconv.FormatFloat(clamped, 'f', -1, 64)); err != nil {
		return fmt.Errorf("failed to save temperature: %w", err)
	}
	m.logger.Debug("Temperature updated", zap.Float64("temperature", clamped))
	return nil
}

// SetMaxTokens сохраняет maxTokens, обрезав к [1, 32000].
func (m *Manager) SetMaxTokens(ctx context.Context, n int) error {
	clamped := clampMaxTokens(n)
	if err := m.store.Set(ctx, interfaces.KeyMaxTokens, strconv.Itoa(clamped)); err != nil {
		return fmt.Errorf("failed to save max tokens: %w", err)
	}
	m.logger.Debug("Max tokens updated", zap.Int("max_tokens", clamped))
	return nil
}

// SetSelectedModel сохраняет имя выбранной модели. Неизвестное имя
// заменяется моделью по умолчанию.
func (m *Manager) SetSelectedModel(ctx context.Context, name string) error {
	model := llm.ModelByName(name)
	if err := m.store.Set(ctx, interfaces.KeySelectedModel, model.Name); err != nil {
		return fmt.Errorf("failed to save selected model: %w", err)
	}
	m.logger.Info("Selected model updated", zap.String("model", model.Name))
	return nil
}

// SelectedModel возвращает выбранную модель из реестра.
func (m *Manager) SelectedModel(ctx context.Context) (llm.Model, error) {
	settings, err := m.Get(ctx)
	if err != nil {
		return llm.DefaultModel(), err
	}
	return llm.ModelByName(settings.SelectedModel), nil
}

func clampTemperature(t float64) float64 {
	if t < models.MinTemperature {
		return models.MinTemperature
	}
	if t > models.MaxTemperature {
		return models.MaxTemperature
	}
	return t
}

func clampMaxTokens(n int) int {
	if n < models.MinMaxTokens {
		return models.MinMaxTokens
	}
	if n > models.MaxMaxTokens {
		return models.MaxMaxTokens
	}
	return n
}
