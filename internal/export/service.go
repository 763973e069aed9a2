package export

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/pdftoxl/internal/sheet"
	"github.com/joseph-ayodele/pdftoxl/internal/templates"
)

// Service is a tiny façade that produces XLSX bytes for one extraction batch.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportXLSX lays out data with tpl's summary sheets transposed and returns the workbook bytes.
func (s *Service) ExportXLSX(ctx context.Context, data *sheet.AggregatedData, tpl templates.Template) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	tables := BuildTables(data, tpl.IsSummary)
	out, err := WriteWorkbook(tables)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "template", tpl.ID, "err", err)
		return nil, err
	}

	rows := 0
	for _, t := range tables {
		rows += len(t.Rows)
	}
	s.logger.Info("export.xlsx.ok",
		"template", tpl.ID,
		"sheets", len(tables),
		"rows", rows,
		"bytes", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
