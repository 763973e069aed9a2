package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/pdftoxl/internal/llm"
)

const systemPrompt = "You extract structured data from financial documents. Return ONLY one JSON object, no prose."

// Generate implements llm.Client using text-only chat/completions.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := llm.SendJSON(ctx, c.http, llm.Request{
		Provider: c.Name(),
		URL:      endpoint,
		Body:     body,
		Headers:  map[string]string{"Authorization": "Bearer " + c.cfg.APIKey},
	}, c.logger)
	if err != nil {
		c.logger.Error("llm.openai.http_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage *struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.openai.decode_error", "error", err, "raw_bytes", len(raw))
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.openai.no_choices", "raw", string(raw))
		return "", fmt.Errorf("no choices in openai response")
	}
	content := cc.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("openai returned an empty answer (finish reason %q)", cc.Choices[0].FinishReason)
	}

	attrs := []any{
		"model", c.cfg.Model,
		"text_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	if u := cc.Usage; u != nil {
		attrs = append(attrs, "prompt_tokens", u.PromptTokens, "output_tokens", u.CompletionTokens)
	}
	c.logger.Info("llm.openai.ok", attrs...)
	return content, nil
}
