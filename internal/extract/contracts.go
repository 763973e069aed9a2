package extract

import (
	"context"
	"time"
)

// TextExtractor turns an uploaded document into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, content []byte) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text       string
	Pages      int
	EmptyPages []int // 1-based pages that yielded no text (image-only or unreadable)
	Method     string
	Duration   time.Duration
	Warnings   []string
}

// HasText reports whether anything other than whitespace was extracted.
func (r TextExtractionResult) HasText() bool {
	for _, c := range r.Text {
		switch c {
		case ' ', '\t', '\n', '\r', '\f', '\v':
		default:
			return true
		}
	}
	return false
}
