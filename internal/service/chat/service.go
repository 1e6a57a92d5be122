package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/history"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/prompts"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/settings"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/summary"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/models"
	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm"
	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm/providers"

	"go.uber.org/zap"
)

// Config конфигурация оркестратора.
type Config struct {
	// CompactThreshold — число несводочных сообщений, при достижении
	// которого запускается сжатие истории.
	CompactThreshold int `mapstructure:"compact_threshold"`

	// CompactBlockSize — сколько старейших сообщений уходит в сводку.
	CompactBlockSize int `mapstructure:"compact_block_size"`

	// RequestTimeout ограничивает один вызов провайдера.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

func DefaultConfig() Config {
	return Config{
		CompactThreshold: 10,
		CompactBlockSize: 10,
		RequestTimeout:   120 * time.Second,
	}
}

// Service оркестратор одного диалога: принимает промпт, ведёт
// историю, вызывает провайдера и поддерживает сжатие истории.
// Ходы сериализованы мьютексом: одновременно выполняется не более
// одного обращения к модели.
type Service struct {
	client     providers.Client
	history    *history.Manager
	settings   *settings.Manager
	prompts    *prompts.Manager
	summarizer *summary.Service
	state      *StateBroadcaster
	metrics    *Metrics
	config     Config
	logger     *zap.Logger

	mu     sync.Mutex
	lastID int64
}

func NewService(
	client providers.Client,
	historyMgr *history.Manager,
	settingsMgr *settings.Manager,
	promptsMgr *prompts.Manager,
	summarizer *summary.Service,
	config Config,
	logger *zap.Logger,
) *Service {
	if config.CompactThreshold <= 0 {
		config.CompactThreshold = DefaultConfig().CompactThreshold
	}
	if config.CompactBlockSize <= 0 {
		config.CompactBlockSize = DefaultConfig().CompactBlockSize
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultConfig().RequestTimeout
	}

	return &Service{
		client:     client,
		history:    historyMgr,
		settings:   settingsMgr,
		prompts:    promptsMgr,
		summarizer: summarizer,
		state:      NewStateBroadcaster(),
		metrics:    NewMetrics(),
		config:     config,
		logger:     logger.With(zap.String("component", "chat_service")),
	}
}

// State возвращает наблюдаемое состояние чата.
func (s *Service) State() *StateBroadcaster {
	return s.state
}

// Metrics возвращает счётчики использования.
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// History возвращает текущую историю в хронологическом порядке.
func (s *Service) History(ctx context.Context) ([]models.ChatMessage, error) {
	messages, err := s.history.Load(ctx)
	if err != nil {
		return nil, err
	}
	sortByTime(messages)
	return messages, nil
}

// SendPrompt выполняет один ход диалога.
//
// Сообщение пользователя сохраняется до сетевого вызова, поэтому
// переживает сбой провайдера. Сбой провайдера не возвращается
// ошибкой: вместо ответа в историю пишется сообщение об ошибке.
// Ошибку получает только вызов с пустым промптом.
func (s *Service) SendPrompt(ctx context.Context, text string) (models.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return models.ChatMessage{}, llm.ErrBlankPrompt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Снимок настроек и активного промпта на весь ход: смена модели
	// посреди хода не влияет на уже начатый запрос.
	turnSettings, err := s.settings.Get(ctx)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("failed to read settings: %w", err)
	}
	model := llm.ModelByName(turnSettings.SelectedModel)

	systemPrompt := ""
	if prompt, err := s.prompts.Current(ctx); err == nil {
		systemPrompt = prompt.Content
	} else {
		s.logger.Warn("No active system prompt, proceeding without one", zap.Error(err))
	}

	messages, err := s.history.Load(ctx)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("failed to load history: %w", err)
	}
	sortByTime(messages)

	// Оптимистичная запись: сообщение пользователя попадает в историю
	// до обращения к модели.
	userMsg := models.NewUserMessage(s.nextID(), text)
	payload := buildPayload(messages)
	messages = append(messages, userMsg)
	if err := s.history.Save(ctx, messages); err != nil {
		return models.ChatMessage{}, fmt.Errorf("failed to persist user message: %w", err)
	}

	s.state.publish(State{Phase: PhaseLoading, Messages: snapshot(messages)})

	reqCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	startTime := time.Now()
	resp, err := s.client.GenerateResponse(reqCtx, providers.Request{
		Prompt:       text,
		SystemPrompt: systemPrompt,
		Model:        model,
		Temperature:  turnSettings.Temperature,
		MaxTokens:    turnSettings.MaxTokens,
		History:      payload,
	})
	latency := time.Since(startTime)

	var result models.ChatMessage
	if err != nil {
		s.metrics.recordFailure(latency)
		s.logger.Warn("Turn failed",
			zap.String("model", model.Name),
			zap.Error(err),
		)

		result = models.NewAssistantMessage(s.nextID(), "Ошибка: "+err.Error(), model.DisplayName)
		messages = append(messages, result)
		if saveErr := s.history.Save(ctx, messages); saveErr != nil {
			s.logger.Error("Failed to persist error message", zap.Error(saveErr))
		}
		s.state.publish(State{Phase: PhaseError, Messages: snapshot(messages), Error: err.Error()})
	} else {
		result = models.NewAssistantMessage(s.nextID(), resp.Text, model.DisplayName)
		if resp.Tokens != nil {
			result.RequestTokens = intPtr(resp.Tokens.RequestTokens)
			result.ResponseTokens = intPtr(resp.Tokens.ResponseTokens)
			result.ResponseTimeMs = int64Ptr(resp.Tokens.ResponseTimeMs)
			result.CostUSD = float64Ptr(resp.Tokens.CostUSD)

			// Ретроспективно проставляем токены запроса сообщению
			// пользователя, по id.
			for i := range messages {
				if messages[i].ID == userMsg.ID {
					messages[i].RequestTokens = intPtr(resp.Tokens.RequestTokens)
					break
				}
			}
			s.metrics.recordSuccess(resp.Tokens.RequestTokens+resp.Tokens.ResponseTokens, resp.Tokens.CostUSD, latency)
		} else {
			s.metrics.recordSuccess(0, 0, latency)
		}

		messages = append(messages, result)
		if saveErr := s.history.Save(ctx, messages); saveErr != nil {
			s.logger.Error("Failed to persist assistant message", zap.Error(saveErr))
		}
		s.state.publish(State{Phase: PhaseSuccess, Messages: snapshot(messages)})
	}

	s.compactHistoryIfNeeded(ctx, messages, model, turnSettings)
	return result, nil
}

// ClearHistory удаляет историю и возвращает состояние в Idle.
func (s *Service) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.history.Clear(ctx); err != nil {
		return err
	}
	s.state.publish(State{Phase: PhaseIdle, Messages: []models.ChatMessage{}})
	return nil
}

// compactHistoryIfNeeded сжимает старейший блок несводочных сообщений,
// когда их накопилось не меньше порога. Сбой сжатия проглатывается:
// история остаётся как есть до следующего хода.
func (s *Service) compactHistoryIfNeeded(ctx context.Context, messages []models.ChatMessage, model llm.Model, turnSettings models.Settings) {
	var regular []models.ChatMessage
	for _, msg := range messages {
		if !msg.IsSummary {
			regular = append(regular, msg)
		}
	}
	if len(regular) < s.config.CompactThreshold {
		return
	}

	sortByTime(regular)
	blockSize := s.config.CompactBlockSize
	if blockSize > len(regular) {
		blockSize = len(regular)
	}
	block := regular[:blockSize]

	summaryText, err := s.summarizer.Summarize(ctx, block, model, turnSettings.Temperature, turnSettings.MaxTokens)
	if err != nil {
		s.logger.Warn("History compaction failed, keeping history as is", zap.Error(err))
		return
	}

	compacted := make(map[int64]struct{}, len(block))
	for _, msg := range block {
		compacted[msg.ID] = struct{}{}
	}

	kept := make([]models.ChatMessage, 0, len(messages)-len(block)+1)
	for _, msg := range messages {
		if _, ok := compacted[msg.ID]; ok {
			continue
		}
		kept = append(kept, msg)
	}
	kept = append(kept, models.NewSummaryMessage(s.nextID(), summaryText, block[0].TimestampMs, model.DisplayName))
	sortByTime(kept)

	if err := s.history.Save(ctx, kept); err != nil {
		s.logger.Error("Failed to persist compacted history", zap.Error(err))
		return
	}

	s.metrics.recordCompaction()
	s.logger.Info("History compacted",
		zap.Int("compacted_messages", len(block)),
		zap.Int("remaining_messages", len(kept)),
	)
	s.state.publish(State{Phase: s.state.Current().Phase, Messages: snapshot(kept), Error: s.state.Current().Error})
}

// nextID выдаёт уникальный монотонный id на основе текущего времени.
// Два сообщения в одну миллисекунду получают разные id.
func (s *Service) nextID() int64 {
	now := time.Now().UnixMilli()
	if now <= s.lastID {
		now = s.lastID + 1
	}
	s.lastID = now
	return now
}

// buildPayload конвертирует историю в провайдер-независимый формат.
// Сводки уходят в контекст как сообщения ассистента.
func buildPayload(messages []models.ChatMessage) []providers.HistoryMessage {
	payload := make([]providers.HistoryMessage, 0, len(messages))
	for _, msg := range messages {
		role := "assistant"
		if msg.IsUser {
			role = "user"
		}
		payload = append(payload, providers.HistoryMessage{Role: role, Text: msg.Text})
	}
	return payload
}

func sortByTime(messages []models.ChatMessage) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].TimestampMs < messages[j].TimestampMs
	})
}

func snapshot(messages []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, len(messages))
	copy(out, messages)
	return out
}

func intPtr(n int) *int             { return &n }
func int64Ptr(n int64) *int64       { return &n }
func float64Ptr(f float64) *float64 { return &f }
