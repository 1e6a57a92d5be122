package providers

import (
	"context"
	"testing"

	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRouter_SkipsProvidersWithoutAPIKey(t *testing.T) {
	router, err := NewRouter(map[llm.Provider]Config{
		llm.ProviderYandex:   {BaseURL: "https://example.com"},
		llm.ProviderDeepSeek: {BaseURL: "https://example.com"},
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, router.Providers())
}

func TestNewRouter_RegistersConfiguredProviders(t *testing.T) {
	router, err := NewRouter(map[llm.Provider]Config{
		llm.ProviderYandex: {
			BaseURL:  "https://example.com",
			APIKey:   "key",
			FolderID: "folder",
		},
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []llm.Provider{llm.ProviderYandex}, router.Providers())
}

func TestRouter_UnknownProviderErrors(t *testing.T) {
	router, err := NewRouter(nil, zap.NewNop())
	require.NoError(t, err)

	_, err = router.GenerateResponse(context.Background(), Request{
		Prompt: "вопрос",
		Model:  llm.ModelByName("YANDEX_LATEST"),
	})
	assert.ErrorIs(t, err, llm.ErrUnsupportedTag)
}

func TestNewClient_UnsupportedProvider(t *testing.T) {
	_, err := NewClient("anthropic", Config{APIKey: "key"}, zap.NewNop())
	assert.ErrorIs(t, err, llm.ErrUnsupportedTag)
}
