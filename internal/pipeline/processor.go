package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joseph-ayodele/pdftoxl/constants"
	"github.com/joseph-ayodele/pdftoxl/internal/common"
	"github.com/joseph-ayodele/pdftoxl/internal/extract"
	"github.com/joseph-ayodele/pdftoxl/internal/llm"
	"github.com/joseph-ayodele/pdftoxl/internal/observer"
	"github.com/joseph-ayodele/pdftoxl/internal/templates"
)

// MsgNoText is recorded for files whose pages carry no text layer.
const MsgNoText = "No text could be extracted."

// Processor coordinates text extraction then the LLM parse for one upload.
type Processor struct {
	Logger *slog.Logger
	Text   *TextStage
	Parse  *ParseStage
	Inst   *observer.Instruments
}

func NewProcessor(logger *slog.Logger, text *TextStage, parse *ParseStage, inst *observer.Instruments) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if inst == nil {
		inst = observer.Nop()
	}
	return &Processor{Logger: logger, Text: text, Parse: parse, Inst: inst}
}

// New wires the default stages around an extractor and an LLM client.
func New(tx extract.TextExtractor, client llm.Client, logger *slog.Logger, inst *observer.Instruments) *Processor {
	return NewProcessor(logger, NewTextStage(tx, logger), NewParseStage(client, logger), inst)
}

// ProcessFile never returns an error: every failure, a panic included, is folded
// into the FileResult so the rest of the batch carries on.
func (p *Processor) ProcessFile(ctx context.Context, tpl templates.Template, up Upload) (res FileResult) {
	start := time.Now()
	ctx, span := p.Inst.Tracer.Start(ctx, "pipeline.file", trace.WithAttributes(
		observer.AttrFileName.String(up.Filename),
		observer.AttrTemplateID.String(tpl.ID),
	))
	defer func() {
		if rec := recover(); rec != nil {
			p.Logger.Error("pipeline.file.panic", "file", up.Filename, "panic", rec)
			res = failed(up.Filename, constants.JobStatusFailed, fmt.Sprintf("internal error: %v", rec),
				fmt.Errorf("%w: panic: %v", common.ErrInternal, rec))
		}
		res.Elapsed = time.Since(start)
		status := "ok"
		if !res.OK() {
			status = string(res.Status)
			span.SetStatus(codes.Error, res.Err.Message)
		}
		p.Inst.RecordFile(ctx, tpl.ID, status, res.Elapsed)
		span.End()
	}()

	if !constants.IsPDF(up.ContentType, filepath.Ext(up.Filename)) {
		p.Logger.Warn("pipeline.file.skipped", "file", up.Filename, "content_type", up.ContentType)
		return failed(up.Filename, constants.JobStatusSkipped,
			fmt.Sprintf("Skipped non-PDF file (content type %q)", up.ContentType), nil)
	}

	text, err := p.Text.Run(ctx, up)
	if err != nil {
		return failed(up.Filename, constants.JobStatusFailed, describe(ctx, "Could not read PDF", err), err)
	}
	if !text.HasText() {
		p.Logger.Warn("pipeline.file.no_text", "file", up.Filename, "pages", text.Pages)
		return failed(up.Filename, constants.JobStatusFailed, MsgNoText, nil)
	}

	doc, err := p.Parse.Run(ctx, tpl, up.Filename, text.Text)
	if err != nil {
		if errors.Is(err, llm.ErrMalformedResponse) {
			return failed(up.Filename, constants.JobStatusFailed, err.Error(), err)
		}
		return failed(up.Filename, constants.JobStatusFailed, describe(ctx, "An error occurred during LLM extraction", err), err)
	}

	p.Logger.Info("pipeline.file.ok",
		"file", up.Filename,
		"pages", text.Pages,
		"rows", doc.RowCount(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return FileResult{Filename: up.Filename, Status: constants.JobStatusSucceeded, Sheets: doc, Pages: text.Pages}
}

func describe(ctx context.Context, prefix string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "Processing timed out."
	}
	return prefix + ": " + err.Error()
}
