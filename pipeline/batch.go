package pipeline

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/nvr-ai/go-blockseg/layout"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Job is one page to resolve.
type Job struct {
	// Name identifies the page in logs and reports.
	Name string
	// Load produces the page and any diagnostics met while loading it.
	Load func(ctx context.Context) (*layout.Page, []layout.Diagnostic, error)
	// Store persists the result. Optional.
	Store func(ctx context.Context, res *layout.Result) error
}

// PageReport is the outcome of one job.
type PageReport struct {
	Name    string
	Result  *layout.Result
	Err     error
	Elapsed time.Duration
}

// BatchProcessor runs jobs through a resolver with bounded concurrency.
type BatchProcessor struct {
	resolver    *layout.Resolver
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of pages resolved at once.
// Default is runtime.NumCPU() if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(resolver *layout.Resolver, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		resolver:    resolver,
		concurrency: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch resolves every job and returns one report per job, in job
// order. Per-page failures are recorded in the reports; the error is only
// set when ctx is cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, jobs []Job) ([]*PageReport, error) {
	reports := make([]*PageReport, len(jobs))
	err := bp.ProcessBatchWithCallback(ctx, jobs, func(r *PageReport, i int) {
		// Each index is written by exactly one goroutine.
		reports[i] = r
	})
	return reports, err
}

// ProcessBatchWithCallback resolves every job and calls callback with each
// report as soon as its page is done. The callback runs on the worker
// goroutine and must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	jobs []Job,
	callback func(report *PageReport, index int),
) error {
	bp.logger.Info("starting batch processing",
		"pages", len(jobs),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			report := bp.run(ctx, job)
			if report.Err != nil {
				bp.logger.Warn("page failed", "page", job.Name, "error", report.Err)
			}
			callback(report, i)

			// Don't fail the group; the error is in the report.
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch processing complete",
		"pages", len(jobs),
		"elapsed", time.Since(startTime),
	)
	return err
}

func (bp *BatchProcessor) run(ctx context.Context, job Job) *PageReport {
	start := time.Now()
	report := &PageReport{Name: job.Name}
	defer func() { report.Elapsed = time.Since(start) }()

	if job.Load == nil {
		report.Err = errors.Errorf("job %q has no loader", job.Name)
		return report
	}
	page, diags, err := job.Load(ctx)
	if err != nil {
		report.Err = errors.Wrap(err, "loading page")
		return report
	}

	res, err := bp.resolver.Resolve(page)
	if err != nil {
		report.Err = errors.Wrap(err, "resolving page")
		return report
	}
	res.Diagnostics = append(diags, res.Diagnostics...)
	report.Result = res

	if job.Store != nil {
		if err := job.Store(ctx, res); err != nil {
			report.Err = errors.Wrap(err, "storing page")
		}
	}
	return report
}

// Summary aggregates a batch.
type Summary struct {
	Pages       int
	Failed      int
	Regions     int
	Dropped     int
	Diagnostics int
}

// Summarize counts the outcome of reports. Nil reports (jobs skipped after
// cancellation) count as failed.
func Summarize(reports []*PageReport) Summary {
	s := Summary{Pages: len(reports)}
	for _, r := range reports {
		if r == nil || r.Err != nil {
			s.Failed++
		}
		if r == nil || r.Result == nil {
			continue
		}
		s.Regions += r.Result.Stats.Emitted
		s.Dropped += r.Result.Stats.Dropped
		s.Diagnostics += len(r.Result.Diagnostics)
	}
	return s
}
