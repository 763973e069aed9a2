package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/pdftoxl/internal/extract"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "pdftext <file.pdf>")
		os.Exit(2)
	}
	path := os.Args[1]

	content, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := extract.NewPDFExtractor(logger).Extract(ctx, content)
	if err != nil {
		logger.Error("extract", "path", path, "error", err)
		os.Exit(1)
	}
	for _, w := range res.Warnings {
		logger.Warn("extract warning", "warning", w)
	}
	logger.Info("extracted",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"empty_pages", res.EmptyPages,
		"chars", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	if !res.HasText() {
		logger.Warn("no text layer found")
		os.Exit(1)
	}
	fmt.Print(res.Text)
}
