package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/pdftoxl/internal/extract"
)

// TextStage pulls the text layer out of an upload.
type TextStage struct {
	Extractor extract.TextExtractor
	Logger    *slog.Logger
}

func NewTextStage(tx extract.TextExtractor, logger *slog.Logger) *TextStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextStage{Extractor: tx, Logger: logger}
}

func (s *TextStage) Run(ctx context.Context, up Upload) (extract.TextExtractionResult, error) {
	res, err := s.Extractor.Extract(ctx, up.Content)
	if err != nil {
		s.Logger.Warn("pipeline.text.failed", "file", up.Filename, "err", err)
		return res, fmt.Errorf("extract text: %w", err)
	}
	for _, w := range res.Warnings {
		s.Logger.Debug("pipeline.text.warning", "file", up.Filename, "warning", w)
	}
	s.Logger.Info("pipeline.text.ok",
		"file", up.Filename,
		"pages", res.Pages,
		"empty_pages", len(res.EmptyPages),
		"text_len", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
