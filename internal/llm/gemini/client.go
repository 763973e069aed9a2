package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/pdftoxl/internal/llm"
)

// ErrNoCandidates is returned when the model produced no answer, typically because the prompt was blocked.
var ErrNoCandidates = errors.New("gemini returned no candidates")

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"`
}

type generationConfig struct {
	Temperature      float32 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Generate implements llm.Client with a single generateContent call.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature: c.cfg.Temperature,
		},
	}
	if !c.cfg.DisableJSONMode {
		body.GenerationConfig.ResponseMimeType = "application/json"
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	raw, err := llm.SendJSON(ctx, c.http, llm.Request{
		Provider: c.Name(),
		URL:      url,
		Body:     body,
		Headers:  map[string]string{"x-goog-api-key": c.cfg.APIKey},
	}, c.logger)
	if err != nil {
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Error("llm.gemini.decode_error", "error", err, "raw_bytes", len(raw))
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: prompt blocked: %s", ErrNoCandidates, resp.PromptFeedback.BlockReason)
		}
		return "", ErrNoCandidates
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	text := b.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini returned an empty answer (finish reason %q)", resp.Candidates[0].FinishReason)
	}

	attrs := []any{
		"model", c.cfg.Model,
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	if u := resp.UsageMetadata; u != nil {
		attrs = append(attrs, "prompt_tokens", u.PromptTokenCount, "output_tokens", u.CandidatesTokenCount)
	}
	c.logger.Info("llm.gemini.ok", attrs...)
	return text, nil
}
