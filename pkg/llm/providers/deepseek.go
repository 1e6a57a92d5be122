package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"go.uber.org/zap"
)

// DeepSeekClient клиент DeepSeek через OpenAI-совместимый API.
// Телеметрию не отдаёт: у ответа всегда Tokens == nil.
type DeepSeekClient struct {
	client *openai.Client
	logger *zap.Logger
}

func NewDeepSeekClient(config Config, logger *zap.Logger) (*DeepSeekClient, error) {
	if config.APIKey == "" {
		return nil, llm.ErrAPIKeyNotSet
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required for DeepSeek")
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}

	client := openai.NewClient(
		option.WithBaseURL(config.BaseURL),
		option.WithAPIKey(config.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
	)

	return &DeepSeekClient{
		client: &client,
		logger: logger.With(zap.String("provider", "deepseek")),
	}, nil
}

func (c *DeepSeekClient) Name() string {
	return string(llm.ProviderDeepSeek)
}

func (c *DeepSeekClient) GenerateResponse(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, llm.ErrBlankPrompt
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	systemPrompt := formatSystemPrompt(req.SystemPrompt, req.Model.DisplayName, timestamp)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	messages = append(messages, openai.SystemMessage(systemPrompt))
	for _, msg := range req.History {
		switch msg.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Text))
		default:
			messages = append(messages, openai.UserMessage(msg.Text))
		}
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	c.logger.Debug("Sending DeepSeek completion request",
		zap.String("model", req.Model.ModelPath),
		zap.Int("messages_count", len(messages)),
	)

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(req.Model.ModelPath),
		Messages:    messages,
		Temperature: openai.Float(req.Model.Provider.ClampTemperature(req.Temperature)),
		MaxTokens:   openai.Int(int64(clampMaxTokens(req.MaxTokens))),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return nil, fmt.Errorf("%s", apiErr.Message)
		}
		return nil, fmt.Errorf("deepseek request failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, llm.ErrEmptyResponse
	}
	raw := completion.Choices[0].Message.Content

	c.logger.Debug("DeepSeek response received", zap.Int("raw_length", len(raw)))

	return &Response{
		Text:   llm.StripCodeFences(raw),
		Tokens: nil,
	}, nil
}

// Verify interface implementation
var _ Client = (*DeepSeekClient)(nil)
