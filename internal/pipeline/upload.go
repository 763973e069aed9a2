// Package pipeline runs uploads through text extraction, the LLM and the
// normalizer, and aggregates per-file results into one set of sheets.
package pipeline

import (
	"time"

	"github.com/joseph-ayodele/pdftoxl/constants"
	"github.com/joseph-ayodele/pdftoxl/internal/sheet"
)

// Upload is one file of a request. Content is read fully before processing.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// FileError is a file-level failure. Message is what lands in the Errors sheet.
type FileError struct {
	Filename string
	Message  string
	Cause    error
}

func (e *FileError) Error() string {
	return e.Filename + ": " + e.Message
}

func (e *FileError) Unwrap() error { return e.Cause }

// FileResult is the outcome of one upload: either Sheets or Err is set.
type FileResult struct {
	Filename string
	Status   constants.JobStatus
	Sheets   *sheet.Sheets
	Err      *FileError
	Pages    int
	Elapsed  time.Duration
}

func (r FileResult) OK() bool { return r.Err == nil }

func failed(filename string, status constants.JobStatus, message string, cause error) FileResult {
	return FileResult{
		Filename: filename,
		Status:   status,
		Err:      &FileError{Filename: filename, Message: message, Cause: cause},
	}
}
