package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

const MethodPDFText = "pdf-text"

// ErrEmptyContent is returned for zero-length uploads.
var ErrEmptyContent = errors.New("empty PDF content")

// PDFExtractor reads the text layer of every page in order. Pages without a
// text layer contribute nothing; no OCR is attempted.
type PDFExtractor struct {
	logger *slog.Logger
}

func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{logger: logger}
}

// Extract concatenates page texts, each followed by a newline. A panic inside the
// PDF library is converted into an error so one corrupt file cannot take down a batch.
func (e *PDFExtractor) Extract(ctx context.Context, content []byte) (res TextExtractionResult, err error) {
	start := time.Now()
	res.Method = MethodPDFText
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("read pdf: %v", rec)
		}
		res.Duration = time.Since(start)
	}()

	if len(content) == 0 {
		return res, ErrEmptyContent
	}

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return res, fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	res.Pages = r.NumPage()
	for i := 1; i <= res.Pages; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			res.EmptyPages = append(res.EmptyPages, i)
			continue
		}
		txt, perr := page.GetPlainText(nil)
		if perr != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", i, perr))
			res.EmptyPages = append(res.EmptyPages, i)
			continue
		}
		if strings.TrimSpace(txt) == "" {
			res.EmptyPages = append(res.EmptyPages, i)
			continue
		}
		b.WriteString(txt)
		b.WriteString("\n")
	}
	res.Text = b.String()

	e.logger.Debug("extract.pdf.ok",
		"pages", res.Pages,
		"empty_pages", len(res.EmptyPages),
		"text_len", len(res.Text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
