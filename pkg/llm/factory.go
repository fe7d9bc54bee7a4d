package llm

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/config"
)

// ErrNotConfigured is returned when no API key is configured for the gateway.
var ErrNotConfigured = errors.New("llm gateway not configured")

// Provider names accepted in llm.provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// NewClientFromConfig creates the client selected by cfg.Provider.
// Returns ErrNotConfigured when no API key is set.
func NewClientFromConfig(cfg *config.LLMConfig, logger *zap.Logger) (LLMClient, error) {
	if !cfg.IsConfigured() {
		return nil, ErrNotConfigured
	}

	clientCfg := &Config{
		Endpoint: cfg.BaseURL,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.Timeout,
	}

	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewClient(clientCfg, logger)
	case ProviderAnthropic:
		// The default base URL targets OpenAI; only pass through an explicit override.
		if clientCfg.Endpoint == defaultOpenAIBaseURL {
			clientCfg.Endpoint = ""
		}
		return NewAnthropicClient(clientCfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

const defaultOpenAIBaseURL = "https://api.openai.com/v1"
