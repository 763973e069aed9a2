package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pdftoxl/constants"
	"github.com/joseph-ayodele/pdftoxl/internal/pipeline"
)

// ErrTooLarge is returned for files above the reader's size limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// FSIngestor reads PDFs from the local filesystem.
type FSIngestor struct {
	MaxBytes   int64 // 0 means no limit
	SkipHidden bool
	logger     *slog.Logger
}

func NewFSIngestor(maxBytes int64, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{MaxBytes: maxBytes, SkipHidden: true, logger: logger}
}

// ReadPath loads one PDF. The upload is named after the file's base name.
func (i *FSIngestor) ReadPath(ctx context.Context, path string) (pipeline.Upload, FileResult, error) {
	res := FileResult{Path: path}
	if err := ctx.Err(); err != nil {
		return pipeline.Upload{}, res, err
	}
	if !AllowedExt(filepath.Ext(path)) {
		return pipeline.Upload{}, res, fmt.Errorf("unsupported extension %q", filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return pipeline.Upload{}, res, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			i.logger.Warn("ingest.close_failed", "path", path, "err", err)
		}
	}()

	var r io.Reader = f
	if i.MaxBytes > 0 {
		r = io.LimitReader(f, i.MaxBytes+1)
	}
	h := sha256.New()
	content, err := io.ReadAll(io.TeeReader(r, h))
	if err != nil {
		return pipeline.Upload{}, res, fmt.Errorf("read %s: %w", path, err)
	}
	if i.MaxBytes > 0 && int64(len(content)) > i.MaxBytes {
		return pipeline.Upload{}, res, fmt.Errorf("%s: %w (%d bytes)", path, ErrTooLarge, i.MaxBytes)
	}

	res.Size = int64(len(content))
	res.HashHex = hex.EncodeToString(h.Sum(nil))
	up := pipeline.Upload{
		Filename:    filepath.Base(path),
		ContentType: constants.ContentTypePDF,
		Content:     content,
	}
	return up, res, nil
}

// ReadDirectory walks root in lexical order and loads every PDF. Files whose
// content was already seen in this walk are reported as deduplicated and left
// out of the uploads. Unreadable files are reported and skipped.
func (i *FSIngestor) ReadDirectory(ctx context.Context, root string) ([]pipeline.Upload, []FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, errors.New("root path is required")
	}

	var (
		uploads []pipeline.Upload
		results []FileResult
		stats   DirStats
		seen    = map[string]string{}
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if i.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		up, res, err := i.ReadPath(ctx, path)
		if err != nil {
			i.logger.Warn("ingest.read_failed", "path", path, "err", err)
			res.Err = err.Error()
			results = append(results, res)
			stats.Failed++
			return nil
		}
		if first, dup := seen[res.HashHex]; dup {
			i.logger.Info("ingest.duplicate", "path", path, "same_as", first)
			res.Deduplicated = true
			results = append(results, res)
			stats.Deduplicated++
			return nil
		}
		seen[res.HashHex] = path
		uploads = append(uploads, up)
		results = append(results, res)
		stats.Succeeded++
		return nil
	})
	if err != nil {
		return uploads, results, stats, fmt.Errorf("walk: %w", err)
	}
	return uploads, results, stats, nil
}
