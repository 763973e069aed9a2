package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/pdftoxl/constants"
	"github.com/joseph-ayodele/pdftoxl/internal/common"
	"github.com/joseph-ayodele/pdftoxl/internal/entity"
	"github.com/joseph-ayodele/pdftoxl/internal/sheet"
	"github.com/joseph-ayodele/pdftoxl/internal/templates"
)

// MsgNoData is the request-level message when no file produced a data row.
const MsgNoData = "Data could not be extracted from any of the files."

const ledgerTimeout = 5 * time.Second

// JobRecorder persists one row per processed file.
type JobRecorder interface {
	Record(ctx context.Context, job *entity.ExtractionJob) error
}

// Batch fans uploads out to a Processor with bounded concurrency and merges
// the results in upload order.
type Batch struct {
	proc         *Processor
	logger       *slog.Logger
	workers      int
	fileTimeout  time.Duration
	batchTimeout time.Duration
	ledger       JobRecorder
}

type Option func(*Batch)

func WithWorkers(n int) Option {
	return func(b *Batch) {
		if n > 0 {
			b.workers = n
		}
	}
}

func WithFileTimeout(d time.Duration) Option {
	return func(b *Batch) {
		if d > 0 {
			b.fileTimeout = d
		}
	}
}

func WithBatchTimeout(d time.Duration) Option {
	return func(b *Batch) {
		if d > 0 {
			b.batchTimeout = d
		}
	}
}

// WithLedger records every file outcome from the worker that produced it.
// Recording failures are logged only.
func WithLedger(r JobRecorder) Option {
	return func(b *Batch) {
		b.ledger = r
	}
}

func NewBatch(proc *Processor, logger *slog.Logger, opts ...Option) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Batch{
		proc:         proc,
		logger:       logger,
		workers:      4,
		fileTimeout:  3 * time.Minute,
		batchTimeout: 10 * time.Minute,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Run processes uploads and returns the aggregated sheets plus one FileResult per
// upload, in upload order. It fails with common.ErrNoData when no sheet other than
// Errors received a row; the aggregate is still returned in that case.
func (b *Batch) Run(ctx context.Context, tpl templates.Template, uploads []Upload) (*sheet.AggregatedData, []FileResult, error) {
	if len(uploads) == 0 {
		return nil, nil, common.InvalidInputError("No files were uploaded.")
	}
	start := time.Now()
	logger := common.LoggerFromContext(ctx, b.logger)

	batchCtx, cancel := context.WithTimeout(ctx, b.batchTimeout)
	defer cancel()

	results := make([]FileResult, len(uploads))
	var g errgroup.Group
	g.SetLimit(b.workers)
	for i, up := range uploads {
		g.Go(func() error {
			if err := batchCtx.Err(); err != nil {
				results[i] = failed(up.Filename, constants.JobStatusFailed, describe(batchCtx, "Not processed", err), err)
			} else {
				fileCtx, cancelFile := context.WithTimeout(batchCtx, b.fileTimeout)
				results[i] = b.proc.ProcessFile(fileCtx, tpl, up)
				cancelFile()
			}
			b.record(ctx, tpl.ID, results[i])
			return nil
		})
	}
	_ = g.Wait()

	agg := sheet.NewAggregatedData()
	for _, res := range results {
		if res.OK() {
			agg.Merge(res.Sheets)
		} else {
			agg.AddError(res.Filename, res.Err.Message)
		}
	}

	logger.Info("pipeline.batch.done",
		"template", tpl.ID,
		"files", len(uploads),
		"errors", agg.ErrorCount(),
		"sheets", agg.Len(),
		"rows", agg.RowCount(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if !agg.HasData() {
		return agg, results, common.NewAppError("NO_DATA", MsgNoData, common.ErrNoData)
	}
	return agg, results, nil
}

func (b *Batch) record(ctx context.Context, templateID string, res FileResult) {
	if b.ledger == nil {
		return
	}
	job := &entity.ExtractionJob{
		Filename:   res.Filename,
		TemplateID: templateID,
		Status:     res.Status,
	}
	if res.OK() {
		data, err := json.Marshal(res.Sheets)
		if err != nil {
			b.logger.Warn("pipeline.ledger.encode_failed", "file", res.Filename, "err", err)
		} else {
			job.ExtractedData = data
		}
	} else {
		msg := res.Err.Message
		job.ErrorMessage = &msg
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
	defer cancel()
	if err := b.ledger.Record(rctx, job); err != nil {
		b.logger.Warn("pipeline.ledger.record_failed", "file", res.Filename, "err", err)
	}
}
