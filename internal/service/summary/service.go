package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/models"
	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm"
	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm/providers"

	"go.uber.org/zap"
)

const summarySystemPrompt = `Ты — ассистент, который сжимает историю диалога. Составь краткую сводку переданного фрагмента диалога на том же языке, на котором ведётся диалог. Сохрани все факты, договорённости и предпочтения пользователя, важные для продолжения разговора. Не добавляй ничего от себя.`

const summaryPromptTemplate = `Сожми следующий фрагмент диалога в краткую сводку:

%s`

// Service строит сводку блока сообщений независимым вызовом модели.
// Вызов сжатия идёт с пустой историей: сводка никогда не сжимается
// рекурсивно через самоё себя.
type Service struct {
	client providers.Client
	logger *zap.Logger
}

func NewService(client providers.Client, logger *zap.Logger) *Service {
	return &Service{
		client: client,
		logger: logger.With(zap.String("component", "summary_service")),
	}
}

// Summarize возвращает текст сводки переданного блока сообщений.
// Порядок сообщений в блоке — хронологический, ответственность вызывающего.
func (s *Service) Summarize(ctx context.Context, messages []models.ChatMessage, model llm.Model, temperature float64, maxTokens int) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("nothing to summarize")
	}

	dialog := formatDialog(messages)
	s.logger.Debug("Summarizing history block",
		zap.Int("messages_count", len(messages)),
		zap.String("model", model.Name),
	)

	resp, err := s.client.GenerateResponse(ctx, providers.Request{
		Prompt:       fmt.Sprintf(summaryPromptTemplate, dialog),
		SystemPrompt: summarySystemPrompt,
		Model:        model,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		History:      nil,
	})
	if err != nil {
		return "", fmt.Errorf("summary request failed: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", llm.ErrEmptyResponse
	}
	return resp.Text, nil
}

func formatDialog(messages []models.ChatMessage) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		speaker := "Ассистент"
		if msg.IsUser {
			speaker = "Пользователь"
		}
		lines = append(lines, speaker+": "+msg.Text)
	}
	return strings.Join(lines, "\n")
}
