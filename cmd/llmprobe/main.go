package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/pdftoxl/constants"
	"github.com/joseph-ayodele/pdftoxl/internal/common"
	"github.com/joseph-ayodele/pdftoxl/internal/extract"
	"github.com/joseph-ayodele/pdftoxl/internal/llm/resolve"
	"github.com/joseph-ayodele/pdftoxl/internal/pipeline"
	"github.com/joseph-ayodele/pdftoxl/internal/templates"
)

// llmprobe runs one PDF through the per-file pipeline, optionally several
// times, and prints the normalized sheets of the last successful run.
func main() {
	var (
		templateID = flag.String("template", "1", "extraction template")
		times      = flag.Int("times", 1, "number of runs")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		logger.Error("usage: llmprobe [-template 1] [-times n] <file.pdf>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	if err := common.LoadDotEnv(); err != nil {
		logger.Error("load .env", "error", err)
		os.Exit(2)
	}
	cfg := common.LoadConfig()
	tpl, err := templates.Default().Lookup(*templateID)
	if err != nil {
		logger.Error("template", "id", *templateID, "error", err)
		os.Exit(2)
	}
	client, err := resolve.Client(cfg.LLM, logger)
	if err != nil {
		logger.Error("llm client", "error", err)
		os.Exit(2)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}
	up := pipeline.Upload{
		Filename:    filepath.Base(path),
		ContentType: constants.ContentTypePDF,
		Content:     content,
	}

	proc := pipeline.New(extract.NewPDFExtractor(logger), client, logger, nil)
	var last pipeline.FileResult
	ok := 0
	for i := 1; i <= max(*times, 1); i++ {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.FileTimeout)
		res := proc.ProcessFile(ctx, tpl, up)
		cancel()
		if !res.OK() {
			logger.Warn("run failed", "run", i, "status", res.Status, "error", res.Err.Message)
			continue
		}
		ok++
		last = res
		logger.Info("run ok",
			"run", i,
			"sheets", res.Sheets.Len(),
			"rows", res.Sheets.RowCount(),
			"elapsed", res.Elapsed.Round(time.Millisecond).String(),
		)
	}
	logger.Info("probe done", "provider", client.Name(), "model", client.Model(), "runs", max(*times, 1), "ok", ok)
	if ok == 0 {
		os.Exit(1)
	}

	out, err := json.MarshalIndent(last.Sheets, "", "  ")
	if err != nil {
		logger.Error("encode sheets", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
