package settings

import (
	"context"
	"testing"

	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/memory"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/models"
	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	store := memory.New()
	t.Cleanup(func() { store.Close() })
	return NewManager(store, zap.NewNop())
}

func TestManager_DefaultsWhenStoreEmpty(t *testing.T) {
	manager := newTestManager(t)

	settings, err := manager.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.DefaultTemperature, settings.Temperature)
	assert.Equal(t, models.DefaultMaxTokens, settings.MaxTokens)
	assert.Equal(t, llm.DefaultModel().Name, settings.SelectedModel)
}

func TestManager_ClampsOnSet(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, manager.SetTemperature(ctx, 7.5))
	require.NoError(t, manager.SetMaxTokens(ctx, 1_000_000))

	settings, err := manager.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.MaxTemperature, settings.Temperature)
	assert.Equal(t, models.MaxMaxTokens, settings.MaxTokens)

	require.NoError(t, manager.SetTemperature(ctx, -3))
	require.NoError(t, manager.SetMaxTokens(ctx, 0))

	settings, err = manager.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.MinTemperature, settings.Temperature)
	assert.Equal(t, models.MinMaxTokens, settings.MaxTokens)
}

func TestManager_UnknownModelFallsBackToDefault(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, manager.SetSelectedModel(ctx, "NO_SUCH_MODEL"))

	model, err := manager.SelectedModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, llm.DefaultModel().Name, model.Name)
}

func TestManager_SelectedModelRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, manager.SetSelectedModel(ctx, "DEEPSEEK_CHAT"))

	model, err := manager.SelectedModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, "DEEPSEEK_CHAT", model.Name)
	assert.Equal(t, llm.ProviderDeepSeek, model.Provider)
}
