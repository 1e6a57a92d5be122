package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm"

	"go.uber.org/zap"
)

const (
	yandexCompletionPath = "foundationModels/v1/completion"
	yandexTokenizePath   = "foundationModels/v1/tokenize"
)

// YandexClient клиент Yandex Foundation Models API.
// Единственный провайдер с телеметрией: перед completion-вызовом
// запрос токенизируется отдельным эндпоинтом, стоимость считается
// по линейному тарифу за 1000 токенов.
type YandexClient struct {
	baseURL    string
	folderID   string
	pricePer1K float64
	httpClient *http.Client
	logger     *zap.Logger
}

// headerRoundTripper подставляет аутентификационные заголовки
// в каждый исходящий запрос.
type headerRoundTripper struct {
	next    http.RoundTripper
	headers map[string]string
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range h.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return h.next.RoundTrip(req)
}

func NewYandexClient(config Config, logger *zap.Logger) (*YandexClient, error) {
	if config.APIKey == "" {
		return nil, llm.ErrAPIKeyNotSet
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required for Yandex")
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}

	return &YandexClient{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		folderID:   config.FolderID,
		pricePer1K: config.PricePer1K,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &headerRoundTripper{
				next: http.DefaultTransport,
				headers: map[string]string{
					"Authorization": "Api-Key " + config.APIKey,
					"x-folder-id":   config.FolderID,
				},
			},
		},
		logger: logger.With(zap.String("provider", "yandex")),
	}, nil
}

func (c *YandexClient) Name() string {
	return string(llm.ProviderYandex)
}

type yandexMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type yandexCompletionOptions struct {
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type yandexCompletionRequest struct {
	ModelURI          string                  `json:"modelUri"`
	CompletionOptions yandexCompletionOptions `json:"completionOptions"`
	Messages          []yandexMessage         `json:"messages"`
}

type yandexUsage struct {
	InputTextTokens  string `json:"inputTextTokens"`
	CompletionTokens string `json:"completionTokens"`
	TotalTokens      string `json:"totalTokens"`
}

type yandexCompletionResponse struct {
	Result *struct {
		Alternatives []struct {
			Message *yandexMessage `json:"message"`
			Status  string         `json:"status"`
		} `json:"alternatives"`
		Usage *yandexUsage `json:"usage"`
	} `json:"result"`
}

type yandexTokenizeRequest struct {
	ModelURI string `json:"modelUri"`
	Text     string `json:"text"`
}

type yandexTokenizeResponse struct {
	Tokens []struct {
		ID      string `json:"id"`
		Text    string `json:"text"`
		Special bool   `json:"special"`
	} `json:"tokens"`
}

type yandexAPIError struct {
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *YandexClient) GenerateResponse(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, llm.ErrBlankPrompt
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	modelURI := req.Model.ModelURI(c.folderID)
	systemPrompt := formatSystemPrompt(req.SystemPrompt, req.Model.DisplayName, timestamp)

	messages := make([]yandexMessage, 0, len(req.History)+2)
	messages = append(messages, yandexMessage{Role: "system", Text: systemPrompt})
	for _, msg := range req.History {
		messages = append(messages, yandexMessage{Role: msg.Role, Text: msg.Text})
	}
	messages = append(messages, yandexMessage{Role: "user", Text: req.Prompt})

	c.logger.Debug("Sending Yandex completion request",
		zap.String("model_uri", modelURI),
		zap.Int("messages_count", len(messages)),
	)

	// Токенизация собранного запроса. Сбой телеметрии не валит ход.
	requestTokens, tokenizeErr := c.countTokens(ctx, modelURI, joinForTokenize(messages))
	if tokenizeErr != nil {
		c.logger.Warn("Failed to tokenize request text", zap.Error(tokenizeErr))
	}

	completionReq := yandexCompletionRequest{
		ModelURI: modelURI,
		CompletionOptions: yandexCompletionOptions{
			Stream:      false,
			Temperature: req.Model.Provider.ClampTemperature(req.Temperature),
			MaxTokens:   clampMaxTokens(req.MaxTokens),
		},
		Messages: messages,
	}

	startTime := time.Now()
	var completionResp yandexCompletionResponse
	if err := c.doPost(ctx, yandexCompletionPath, completionReq, &completionResp); err != nil {
		return nil, err
	}
	responseTimeMs := time.Since(startTime).Milliseconds()

	raw := ""
	var usage *yandexUsage
	if completionResp.Result != nil {
		usage = completionResp.Result.Usage
		if len(completionResp.Result.Alternatives) > 0 && completionResp.Result.Alternatives[0].Message != nil {
			raw = completionResp.Result.Alternatives[0].Message.Text
		}
	}

	// Предпочитаем usage из ответа; tokenize остаётся запасным вариантом.
	inputTokens := requestTokens
	completionTokens := 0
	if usage != nil {
		if n, err := strconv.Atoi(usage.InputTextTokens); err == nil && n > 0 {
			inputTokens = n
		}
		if n, err := strconv.Atoi(usage.CompletionTokens); err == nil {
			completionTokens = n
		}
	}

	responseTokens := completionTokens
	if responseTokens == 0 && raw != "" {
		n, err := c.countTokens(ctx, modelURI, raw)
		if err != nil {
			c.logger.Warn("Failed to tokenize response text", zap.Error(err))
		} else {
			responseTokens = n
		}
	}

	totalTokens := inputTokens + responseTokens
	costUSD := float64(totalTokens) / 1000.0 * c.pricePer1K

	c.logger.Debug("Yandex response received",
		zap.Int("raw_length", len(raw)),
		zap.Int("input_tokens", inputTokens),
		zap.Int("response_tokens", responseTokens),
		zap.Float64("cost_usd", costUSD),
		zap.Int64("response_time_ms", responseTimeMs),
	)

	return &Response{
		Text: llm.StripCodeFences(raw),
		Tokens: &TokenInfo{
			RequestTokens:  inputTokens,
			ResponseTokens: responseTokens,
			ResponseTimeMs: responseTimeMs,
			CostUSD:        costUSD,
		},
	}, nil
}

func (c *YandexClient) countTokens(ctx context.Context, modelURI, text string) (int, error) {
	var resp yandexTokenizeResponse
	if err := c.doPost(ctx, yandexTokenizePath, yandexTokenizeRequest{ModelURI: modelURI, Text: text}, &resp); err != nil {
		return 0, err
	}
	return len(resp.Tokens), nil
}

func (c *YandexClient) doPost(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("yandex request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return fmt.Errorf("%s", extractErrorMessage(respBody, httpResp.Status))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// extractErrorMessage вытаскивает человекочитаемое сообщение из тела
// ошибки: вложенное error.message, затем message верхнего уровня,
// затем сырое тело, затем HTTP-статус.
func extractErrorMessage(body []byte, httpStatus string) string {
	var apiErr yandexAPIError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Error != nil && apiErr.Error.Message != "" {
			return apiErr.Error.Message
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	if raw := strings.TrimSpace(string(body)); raw != "" {
		return raw
	}
	return httpStatus
}

func joinForTokenize(messages []yandexMessage) string {
	parts := make([]string, len(messages))
	for i, msg := range messages {
		parts[i] = msg.Role + ": " + msg.Text
	}
	return strings.Join(parts, "\n\n")
}

// Verify interface implementation
var _ Client = (*YandexClient)(nil)
