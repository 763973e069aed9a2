package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/pdftoxl/internal/llm"
	"github.com/joseph-ayodele/pdftoxl/internal/sheet"
	"github.com/joseph-ayodele/pdftoxl/internal/templates"
)

// ParseStage sends extracted text to the LLM and normalizes the reply into sheets.
type ParseStage struct {
	LLM    llm.Client
	Logger *slog.Logger

	contracts sync.Map // template ID -> *llm.SheetContract
}

func NewParseStage(client llm.Client, logger *slog.Logger) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseStage{LLM: client, Logger: logger}
}

// Run returns the normalized sheets with every row tagged with filename.
// Errors from the LLM call are returned as is; reply parse errors wrap llm.ErrMalformedResponse.
func (s *ParseStage) Run(ctx context.Context, tpl templates.Template, filename, text string) (*sheet.Sheets, error) {
	start := time.Now()
	prompt := tpl.BuildPrompt(text)

	reply, err := s.LLM.Generate(ctx, prompt)
	if err != nil {
		s.Logger.Error("pipeline.llm.failed",
			"file", filename,
			"provider", s.LLM.Name(),
			"err", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	doc, deviations, err := llm.NormalizeChecked(reply, s.contract(tpl))
	if err != nil {
		s.Logger.Error("pipeline.parse.failed",
			"file", filename,
			"err", err,
			"reply_len", len(reply),
		)
		return nil, err
	}

	if len(deviations) > 0 {
		s.Logger.Warn("pipeline.parse.off_template",
			"file", filename,
			"template", tpl.ID,
			"deviations", deviations,
		)
	}
	for _, name := range doc.Names() {
		for _, row := range doc.Rows(name) {
			row.Set(sheet.SourceFileColumn, filename)
		}
	}
	s.Logger.Info("pipeline.parse.ok",
		"file", filename,
		"template", tpl.ID,
		"sheets", doc.Len(),
		"deviations", len(deviations),
		"rows", doc.RowCount(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

// contract returns the compiled sheet contract for tpl, or nil when it cannot
// be built; deviations are only ever logged.
func (s *ParseStage) contract(tpl templates.Template) *llm.SheetContract {
	if c, ok := s.contracts.Load(tpl.ID); ok {
		return c.(*llm.SheetContract)
	}
	c, err := llm.NewSheetContract(tpl.Sheets)
	if err != nil {
		s.Logger.Warn("pipeline.parse.contract_failed", "template", tpl.ID, "err", err)
		return nil
	}
	actual, _ := s.contracts.LoadOrStore(tpl.ID, c)
	return actual.(*llm.SheetContract)
}
