// Package ingest reads PDFs from the local filesystem into pipeline uploads
// for the batch tools.
package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pdftoxl/constants"
)

// FileResult is the per-file outcome of a directory scan. Err is set for files
// that matched but could not be read.
type FileResult struct {
	Path         string
	Size         int64
	HashHex      string
	Deduplicated bool
	Err          string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// AllowedExt reports whether a file with this extension is picked up.
func AllowedExt(ext string) bool {
	return constants.NormalizeExt(ext) == "pdf"
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return base != "." && base != ".." && strings.HasPrefix(base, ".")
}
