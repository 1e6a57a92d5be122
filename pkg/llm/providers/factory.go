package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm"

	"go.uber.org/zap"
)

// Router маршрутизирует запрос к клиенту нужного вендора по тегу
// провайдера выбранной модели. Сам реализует Client, так что
// вызывающий код не различает один провайдер и несколько.
type Router struct {
	clients map[llm.Provider]Client
	logger  *zap.Logger
}

// NewClient создаёт клиента конкретного провайдера.
func NewClient(provider llm.Provider, config Config, logger *zap.Logger) (Client, error) {
	switch provider {
	case llm.ProviderYandex:
		return NewYandexClient(config, logger)
	case llm.ProviderDeepSeek:
		return NewDeepSeekClient(config, logger)
	default:
		return nil, fmt.Errorf("%w: %s", llm.ErrUnsupportedTag, provider)
	}
}

// NewRouter собирает маршрутизатор по карте конфигураций.
// Провайдеры без API-ключа пропускаются: модель без живого клиента
// даст ошибку только в момент обращения.
func NewRouter(configs map[llm.Provider]Config, logger *zap.Logger) (*Router, error) {
	router := &Router{
		clients: make(map[llm.Provider]Client),
		logger:  logger.With(zap.String("component", "llm_router")),
	}

	for provider, config := range configs {
		client, err := NewClient(provider, config, logger)
		if err != nil {
			if err == llm.ErrAPIKeyNotSet {
				router.logger.Warn("Provider skipped: API key is not set",
					zap.String("provider", string(provider)))
				continue
			}
			return nil, fmt.Errorf("failed to create %s client: %w", provider, err)
		}
		router.clients[provider] = client
		router.logger.Info("Provider registered", zap.String("provider", string(provider)))
	}

	return router, nil
}

func (r *Router) Name() string {
	return "router"
}

// Providers возвращает теги провайдеров с живыми клиентами.
func (r *Router) Providers() []llm.Provider {
	providers := make([]llm.Provider, 0, len(r.clients))
	for p := range r.clients {
		providers = append(providers, p)
	}
	return providers
}

func (r *Router) GenerateResponse(ctx context.Context, req Request) (*Response, error) {
	client, ok := r.clients[req.Model.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: no client for provider %s", llm.ErrUnsupportedTag, req.Model.Provider)
	}

	startTime := time.Now()
	resp, err := client.GenerateResponse(ctx, req)
	elapsed := time.Since(startTime)

	if err != nil {
		r.logger.Warn("Provider request failed",
			zap.String("provider", string(req.Model.Provider)),
			zap.String("model", req.Model.Name),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	r.logger.Debug("Provider request completed",
		zap.String("provider", string(req.Model.Provider)),
		zap.String("model", req.Model.Name),
		zap.Duration("elapsed", elapsed),
		zap.Bool("has_tokens", resp.Tokens != nil),
	)
	return resp, nil
}

// Verify interface implementation
var _ Client = (*Router)(nil)
