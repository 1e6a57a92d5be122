package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/history"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/prompts"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/settings"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/summary"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/memory"
	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm"
	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const summaryMarker = "Сожми следующий фрагмент"

// fakeClient детерминированный провайдер для тестов оркестратора.
type fakeClient struct {
	mu       sync.Mutex
	requests []providers.Request

	respond func(req providers.Request) (*providers.Response, error)
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) GenerateResponse(ctx context.Context, req providers.Request) (*providers.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.respond(req)
}

func (f *fakeClient) capturedRequests() []providers.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]providers.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

func withTelemetry(text string) func(providers.Request) (*providers.Response, error) {
	return func(req providers.Request) (*providers.Response, error) {
		if strings.Contains(req.Prompt, summaryMarker) {
			return &providers.Response{Text: "сводка диалога"}, nil
		}
		return &providers.Response{
			Text: text,
			Tokens: &providers.TokenInfo{
				RequestTokens:  11,
				ResponseTokens: 22,
				ResponseTimeMs: 5,
				CostUSD:        0.00022,
			},
		}, nil
	}
}

func newTestService(t *testing.T, client *fakeClient) *Service {
	t.Helper()

	store := memory.New()
	t.Cleanup(func() { store.Close() })
	logger := zap.NewNop()

	promptsManager := prompts.NewManager(store, logger)
	require.NoError(t, promptsManager.InitializeDefault(context.Background()))

	service := NewService(
		client,
		history.NewManager(store, logger),
		settings.NewManager(store, logger),
		promptsManager,
		summary.NewService(client, logger),
		DefaultConfig(),
		logger,
	)
	t.Cleanup(func() { service.State().Close() })
	return service
}

func TestSendPrompt_BlankRejected(t *testing.T) {
	client := &fakeClient{respond: withTelemetry("ответ")}
	service := newTestService(t, client)
	ctx := context.Background()

	_, err := service.SendPrompt(ctx, "   \t\n")
	assert.ErrorIs(t, err, llm.ErrBlankPrompt)

	messages, err := service.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Empty(t, client.capturedRequests())
}

func TestSendPrompt_AppendsUserAndAssistant(t *testing.T) {
	client := &fakeClient{respond: withTelemetry("Плов готовится так...")}
	service := newTestService(t, client)
	ctx := context.Background()

	result, err := service.SendPrompt(ctx, "Как приготовить плов?")
	require.NoError(t, err)
	assert.Equal(t, "Плов готовится так...", result.Text)
	assert.False(t, result.IsUser)

	messages, err := service.History(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	user, assistant := messages[0], messages[1]
	assert.True(t, user.IsUser)
	assert.Equal(t, "Как приготовить плов?", user.Text)
	assert.Less(t, user.TimestampMs, assistant.TimestampMs)

	// Телеметрия ассистента
	require.NotNil(t, assistant.RequestTokens)
	assert.Equal(t, 22, *assistant.ResponseTokens)
	assert.Equal(t, int64(5), *assistant.ResponseTimeMs)
	assert.InDelta(t, 0.00022, *assistant.CostUSD, 1e-9)

	// Токены запроса ретроспективно проставлены сообщению пользователя
	require.NotNil(t, user.RequestTokens)
	assert.Equal(t, 11, *user.RequestTokens)

	assert.Equal(t, PhaseSuccess, service.State().Current().Phase)
}

func TestSendPrompt_HistoryPayloadExcludesCurrentPrompt(t *testing.T) {
	client := &fakeClient{respond: withTelemetry("ответ")}
	service := newTestService(t, client)
	ctx := context.Background()

	_, err := service.SendPrompt(ctx, "первый вопрос")
	require.NoError(t, err)
	_, err = service.SendPrompt(ctx, "второй вопрос")
	require.NoError(t, err)

	requests := client.capturedRequests()
	require.Len(t, requests, 2)

	// Первый ход: контекст пуст, промпт идёт отдельным полем
	assert.Empty(t, requests[0].History)
	assert.Equal(t, "первый вопрос", requests[0].Prompt)

	// Второй ход: в контексте ровно предыдущая пара, без текущего промпта
	require.Len(t, requests[1].History, 2)
	assert.Equal(t, "user", requests[1].History[0].Role)
	assert.Equal(t, "первый вопрос", requests[1].History[0].Text)
	assert.Equal(t, "assistant", requests[1].History[1].Role)
	assert.Equal(t, "второй вопрос", requests[1].Prompt)
}

func TestSendPrompt_UsesActiveSystemPrompt(t *testing.T) {
	client := &fakeClient{respond: withTelemetry("ответ")}
	service := newTestService(t, client)

	_, err := service.SendPrompt(context.Background(), "вопрос")
	require.NoError(t, err)

	requests := client.capturedRequests()
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].SystemPrompt, "Шеф-Помощник")
}

func TestSendPrompt_ProviderFailurePersistsErrorMessage(t *testing.T) {
	client := &fakeClient{respond: func(req providers.Request) (*providers.Response, error) {
		return nil, errors.New("quota exceeded")
	}}
	service := newTestService(t, client)
	ctx := context.Background()

	result, err := service.SendPrompt(ctx, "вопрос")
	require.NoError(t, err, "provider failure must not surface as an error")
	assert.Equal(t, "Ошибка: quota exceeded", result.Text)

	messages, err := service.History(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	// Сообщение пользователя переживает сбой: оно записано до вызова
	assert.True(t, messages[0].IsUser)
	assert.False(t, messages[1].IsUser)
	assert.Nil(t, messages[1].RequestTokens)

	state := service.State().Current()
	assert.Equal(t, PhaseError, state.Phase)
	assert.Equal(t, "quota exceeded", state.Error)
}

func TestSendPrompt_NoTelemetryProvider(t *testing.T) {
	client := &fakeClient{respond: func(req providers.Request) (*providers.Response, error) {
		return &providers.Response{Text: "ответ без токенов"}, nil
	}}
	service := newTestService(t, client)
	ctx := context.Background()

	_, err := service.SendPrompt(ctx, "вопрос")
	require.NoError(t, err)

	messages, err := service.History(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	// Отсутствие телеметрии — nil-поля, не нулевые значения
	assert.Nil(t, messages[0].RequestTokens)
	assert.Nil(t, messages[1].RequestTokens)
	assert.Nil(t, messages[1].ResponseTokens)
	assert.Nil(t, messages[1].CostUSD)
}

func TestCompaction_TriggersAtThreshold(t *testing.T) {
	client := &fakeClient{respond: withTelemetry("ответ")}
	service := newTestService(t, client)
	ctx := context.Background()

	// 4 хода = 8 сообщений, порог не достигнут
	for i := 0; i < 4; i++ {
		_, err := service.SendPrompt(ctx, fmt.Sprintf("вопрос %d", i))
		require.NoError(t, err)
	}
	messages, err := service.History(ctx)
	require.NoError(t, err)
	assert.Len(t, messages, 8)

	// Пятый ход доводит до 10 несводочных сообщений и запускает сжатие
	_, err = service.SendPrompt(ctx, "вопрос 4")
	require.NoError(t, err)

	messages, err = service.History(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].IsSummary)
	assert.Equal(t, "сводка диалога", messages[0].Text)
	assert.False(t, messages[0].IsUser)

	// Запрос на сжатие ушёл с пустым контекстом и всем блоком в промпте
	requests := client.capturedRequests()
	last := requests[len(requests)-1]
	assert.Contains(t, last.Prompt, summaryMarker)
	assert.Empty(t, last.History)
	assert.Contains(t, last.Prompt, "Пользователь: вопрос 0")
	assert.Contains(t, last.Prompt, "Ассистент: ответ")
}

func TestCompaction_SummaryTakesPlaceOfOldestMessage(t *testing.T) {
	client := &fakeClient{respond: withTelemetry("ответ")}
	service := newTestService(t, client)
	ctx := context.Background()

	var firstTimestamp int64
	for i := 0; i < 5; i++ {
		_, err := service.SendPrompt(ctx, fmt.Sprintf("вопрос %d", i))
		require.NoError(t, err)
		if i == 0 {
			messages, err := service.History(ctx)
			require.NoError(t, err)
			firstTimestamp = messages[0].TimestampMs
		}
	}

	messages, err := service.History(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, firstTimestamp, messages[0].TimestampMs)
}

func TestCompaction_FailureLeavesHistoryUntouched(t *testing.T) {
	client := &fakeClient{respond: func(req providers.Request) (*providers.Response, error) {
		if strings.Contains(req.Prompt, summaryMarker) {
			return nil, errors.New("summary model unavailable")
		}
		return &providers.Response{Text: "ответ"}, nil
	}}
	service := newTestService(t, client)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := service.SendPrompt(ctx, fmt.Sprintf("вопрос %d", i))
		require.NoError(t, err)
	}

	// Сбой сжатия проглочен, история осталась несжатой
	messages, err := service.History(ctx)
	require.NoError(t, err)
	assert.Len(t, messages, 10)
	for _, msg := range messages {
		assert.False(t, msg.IsSummary)
	}
	assert.Equal(t, PhaseSuccess, service.State().Current().Phase)
}

func TestSendPrompt_PublishesLoadingBeforeTerminalState(t *testing.T) {
	client := &fakeClient{respond: withTelemetry("ответ")}
	service := newTestService(t, client)

	states, unsubscribe := service.State().Subscribe()
	defer unsubscribe()

	_, err := service.SendPrompt(context.Background(), "вопрос")
	require.NoError(t, err)

	var phases []Phase
	deadline := time.After(time.Second)
collect:
	for {
		select {
		case state := <-states:
			phases = append(phases, state.Phase)
			if state.Phase == PhaseSuccess || state.Phase == PhaseError {
				break collect
			}
		case <-deadline:
			t.Fatal("terminal state was not published")
		}
	}

	require.GreaterOrEqual(t, len(phases), 3)
	assert.Equal(t, PhaseIdle, phases[0])
	assert.Equal(t, PhaseLoading, phases[1])
	assert.Equal(t, PhaseSuccess, phases[len(phases)-1])
}

func TestClearHistory(t *testing.T) {
	client := &fakeClient{respond: withTelemetry("ответ")}
	service := newTestService(t, client)
	ctx := context.Background()

	_, err := service.SendPrompt(ctx, "вопрос")
	require.NoError(t, err)
	require.NoError(t, service.ClearHistory(ctx))

	messages, err := service.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Equal(t, PhaseIdle, service.State().Current().Phase)
}

func TestMetrics_CountsTurns(t *testing.T) {
	client := &fakeClient{respond: withTelemetry("ответ")}
	service := newTestService(t, client)
	ctx := context.Background()

	_, err := service.SendPrompt(ctx, "вопрос")
	require.NoError(t, err)

	client.respond = func(req providers.Request) (*providers.Response, error) {
		return nil, errors.New("boom")
	}
	_, err = service.SendPrompt(ctx, "ещё вопрос")
	require.NoError(t, err)

	stats := service.Metrics().GetStats()
	assert.Equal(t, int64(2), stats["total_requests"])
	assert.Equal(t, int64(1), stats["failed_requests"])
	assert.Equal(t, int64(33), stats["total_tokens"])
}
