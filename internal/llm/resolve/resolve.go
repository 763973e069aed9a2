// Package resolve builds the configured llm.Client.
package resolve

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/pdftoxl/internal/common"
	"github.com/joseph-ayodele/pdftoxl/internal/llm"
	"github.com/joseph-ayodele/pdftoxl/internal/llm/gemini"
	"github.com/joseph-ayodele/pdftoxl/internal/llm/openai"
)

// Client creates the provider named by cfg.Provider. A missing key is an error so
// startup fails instead of every request.
func Client(cfg common.LLMConfig, logger *slog.Logger) (llm.Client, error) {
	if cfg.APIKey() == "" {
		return nil, fmt.Errorf("resolve: no API key for provider %q", cfg.Provider)
	}
	switch cfg.Provider {
	case common.ProviderGemini, "":
		return gemini.NewClient(gemini.Config{
			APIKey:      cfg.GoogleAPIKey,
			BaseURL:     cfg.GeminiBaseURL,
			Model:       cfg.GeminiModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	case common.ProviderOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("resolve: unknown provider %q", cfg.Provider)
	}
}
