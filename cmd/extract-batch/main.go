package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/joseph-ayodele/pdftoxl/constants"
	"github.com/joseph-ayodele/pdftoxl/internal/common"
	"github.com/joseph-ayodele/pdftoxl/internal/export"
	"github.com/joseph-ayodele/pdftoxl/internal/extract"
	"github.com/joseph-ayodele/pdftoxl/internal/ingest"
	"github.com/joseph-ayodele/pdftoxl/internal/llm/resolve"
	"github.com/joseph-ayodele/pdftoxl/internal/pipeline"
	"github.com/joseph-ayodele/pdftoxl/internal/repository"
	"github.com/joseph-ayodele/pdftoxl/internal/templates"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir        = flag.String("dir", "", "directory to read PDFs from (required)")
		out        = flag.String("out", "", "output XLSX file path (optional, defaults to <dir>/"+constants.OutputFilename+")")
		templateID = flag.String("template", "1", "extraction template: "+fmt.Sprint(templates.Default().IDs()))
		workers    = flag.Int("workers", 0, "concurrent files (defaults to EXTRACT_WORKERS)")
		hidden     = flag.Bool("hidden", false, "include hidden files and directories")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(2)
	}
	if *out == "" {
		*out = filepath.Join(*dir, constants.OutputFilename)
	}
	tpl, err := templates.Default().Lookup(*templateID)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	if err := common.LoadDotEnv(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	cfg := common.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	client, err := resolve.Client(cfg.LLM, logger)
	if err != nil {
		logger.Error("failed to create LLM client", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ing := ingest.NewFSIngestor(cfg.Server.MaxUploadBytes(), logger)
	ing.SkipHidden = !*hidden
	uploads, results, stats, err := ing.ReadDirectory(ctx, *dir)
	if err != nil {
		logger.Error("failed to read directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	for _, r := range results {
		if r.Err != "" {
			logger.Warn("skipped file", "path", r.Path, "error", r.Err)
		}
	}
	logger.Info("directory scanned",
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	if len(uploads) == 0 {
		printError("Error: no PDF files found in %s\n", *dir)
		os.Exit(1)
	}

	n := cfg.Pipeline.Workers
	if *workers > 0 {
		n = *workers
	}
	opts := []pipeline.Option{
		pipeline.WithWorkers(n),
		pipeline.WithFileTimeout(cfg.Pipeline.FileTimeout),
		pipeline.WithBatchTimeout(cfg.Pipeline.BatchTimeout),
	}
	if cfg.Database.JobLedger {
		db, jobs, err := repository.OpenLedger(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("job ledger disabled", "error", err)
		} else {
			defer db.Close(logger)
			opts = append(opts, pipeline.WithLedger(jobs))
		}
	}

	proc := pipeline.New(extract.NewPDFExtractor(logger), client, logger, nil)
	data, fileResults, err := pipeline.NewBatch(proc, logger, opts...).Run(ctx, tpl, uploads)
	for _, r := range fileResults {
		if !r.OK() {
			printError("%s: %s\n", r.Filename, r.Err.Message)
		}
	}
	if err != nil {
		printError("Error: %s\n", common.Message(err))
		os.Exit(1)
	}

	xlsx, err := export.NewService(logger).ExportXLSX(ctx, data, tpl)
	if errors.Is(err, export.ErrNoTables) {
		printError("Error: %s\n", pipeline.MsgNoData)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to build workbook", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("failed to write output file", "path", *out, "error", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s (%d files, %d errors)\n", *out, len(uploads), data.ErrorCount())
}
