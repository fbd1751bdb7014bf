package llm

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/config"
)

// NewCompleter builds the configured completion client wrapped with retries
// and a circuit breaker. It returns (nil, nil) when no API key is configured;
// callers treat a nil Completer as "completion unavailable" and fall back to
// deterministic answers.
func NewCompleter(cfg config.LLMConfig, logger *zap.Logger) (Completer, error) {
	if !cfg.IsAvailable() {
		logger.Info("Completion service not configured; answers will use deterministic fallbacks")
		return nil, nil
	}

	clientCfg := &Config{
		Endpoint:    config.ResolveURLForDocker(cfg.BaseURL),
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		MaxTokens:   cfg.MaxTokens,
		Temperature: DefaultTemperature,
	}

	var (
		client Completer
		err    error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI:
		client, err = NewOpenAIClient(clientCfg, logger)
	case config.ProviderAnthropic:
		client, err = NewAnthropicClient(clientCfg, logger)
	default:
		return nil, fmt.Errorf("unsupported completion provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	logger.Info("Completion service configured",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model))

	breaker := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	return NewRetryingCompleter(client, cfg.MaxRetries, breaker, logger).
		WithAttemptTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second), nil
}
