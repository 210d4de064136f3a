package infra

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/focusfade/focusfade/internal/config"
	"github.com/focusfade/focusfade/internal/domain"
)

// modelRetryAttempts is the fixed retry budget for model transport
// failures. Only the model call retries; nothing else in the system does.
const modelRetryAttempts = 3

// NewModelClient selects the backend for the given AI settings:
// native-ollama forces the standard local endpoint, ollama uses the
// configured local-compatible URL, anything else is treated as an
// OpenAI-compatible chat-completion endpoint.
func NewModelClient(settings config.AISettings, logger *zap.Logger) domain.ModelClient {
	var inner domain.ModelClient

	switch settings.Provider {
	case config.ProviderNativeOllama:
		inner = NewOllamaClient(config.NativeOllamaURL, settings.Model)
	case config.ProviderOllama:
		inner = NewOllamaClient(settings.URL, settings.Model)
	default:
		inner = NewOpenAIClient(settings.URL, settings.Model, settings.APIKey)
	}

	return &retryingClient{inner: inner, attempts: modelRetryAttempts, logger: logger}
}

// retryingClient wraps a ModelClient with a small fixed retry budget.
type retryingClient struct {
	inner    domain.ModelClient
	attempts int
	logger   *zap.Logger
}

func (r *retryingClient) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		text, err := r.inner.Complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", lastErr
		}
		r.logger.Warn("model call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return "", lastErr
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	return "", lastErr
}

// Ensure retryingClient implements domain.ModelClient.
var _ domain.ModelClient = (*retryingClient)(nil)
