package plan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/shelf/internal/readwise"
)

const (
	defaultBatchSize     = 5
	defaultRequestDelay  = 3500 * time.Millisecond
	defaultRetryFallback = time.Minute

	// interruptPollInterval bounds how long a retry or pacing wait can run
	// before the interrupt flag is rechecked.
	interruptPollInterval = 500 * time.Millisecond

	previewLimit = 10
)

// Deleter is the slice of the document store the executor needs.
type Deleter interface {
	DeleteDocument(ctx context.Context, id string) error
}

// InterruptFlag is the cooperative cancellation switch: set once from a
// signal handler, read at the executor's checkpoints. The in-flight request
// always finishes.
type InterruptFlag struct {
	flag atomic.Bool
}

func (f *InterruptFlag) Set()        { f.flag.Store(true) }
func (f *InterruptFlag) IsSet() bool { return f.flag.Load() }

// WatchSignals flips the returned flag on the first SIGINT or SIGTERM and
// logs a single line; it does nothing else in the handler. After the first
// signal the default handling is restored, so a second interrupt kills the
// process.
func WatchSignals(logger zerolog.Logger) *InterruptFlag {
	flag := &InterruptFlag{}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		flag.Set()
		signal.Stop(ch)
		logger.Warn().Msg("interrupt received, finishing current operation before stopping")
	}()
	return flag
}

// Options tune the executor. Zero values fall back to the documented
// defaults; a nil Interrupt means the run cannot be cancelled by signal.
type Options struct {
	BatchSize     int
	RequestDelay  time.Duration
	RetryFallback time.Duration
	Interrupt     *InterruptFlag

	// ReportPath overrides the default execution_report_<timestamp>.json.
	ReportPath string
}

// Executor walks a plan's DELETE candidates sequentially: fixed-size batches,
// a fixed delay before every call, unbounded 429 retries, and no retry for
// anything else.
type Executor struct {
	deleter       Deleter
	logger        zerolog.Logger
	interrupt     *InterruptFlag
	batchSize     int
	requestDelay  time.Duration
	retryFallback time.Duration
	reportPath    string
}

func NewExecutor(deleter Deleter, logger zerolog.Logger, opts Options) *Executor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.RequestDelay <= 0 {
		opts.RequestDelay = defaultRequestDelay
	}
	if opts.RetryFallback <= 0 {
		opts.RetryFallback = defaultRetryFallback
	}
	if opts.Interrupt == nil {
		opts.Interrupt = &InterruptFlag{}
	}
	return &Executor{
		deleter:       deleter,
		logger:        logger,
		interrupt:     opts.Interrupt,
		batchSize:     opts.BatchSize,
		requestDelay:  opts.RequestDelay,
		retryFallback: opts.RetryFallback,
		reportPath:    opts.ReportPath,
	}
}

// Result is what one Execute call produced. Preview is only filled on dry
// runs; Report and ReportFile only on live runs.
type Result struct {
	DryRun          bool
	TotalCandidates int
	Preview         []PlanRow
	Report          *ExecutionReport
	ReportFile      string
}

type deleteOutcome int

const (
	outcomeSuccess deleteOutcome = iota
	outcomeFailed
	outcomeAlreadyGone
	outcomeInterrupted
)

// Execute runs the plan at planPath. Dry runs make zero store calls and
// return a bounded preview. Live runs persist an ExecutionReport whether they
// complete or get interrupted, and rewrite the plan to a new timestamped file
// once at least one candidate was processed (deleted, or already gone).
func (e *Executor) Execute(ctx context.Context, planPath string, dryRun bool) (Result, error) {
	rows, err := ReadPlanCSV(planPath)
	if err != nil {
		return Result{}, fmt.Errorf("read deletion plan: %w", err)
	}

	var candidates []int
	for i, row := range rows {
		if row.Action == ActionDelete {
			candidates = append(candidates, i)
		}
	}

	if dryRun {
		preview := make([]PlanRow, 0, previewLimit)
		for _, idx := range candidates {
			if len(preview) == previewLimit {
				break
			}
			preview = append(preview, rows[idx])
		}
		e.logger.Info().
			Int("candidates", len(candidates)).
			Msg("dry run, no documents will be deleted")
		return Result{DryRun: true, TotalCandidates: len(candidates), Preview: preview}, nil
	}

	report := ExecutionReport{
		TotalCandidates:  len(candidates),
		Errors:           make([]string, 0),
		CompletionStatus: StatusCompleted,
	}
	processed := make(map[int]bool)
	interrupted := false

	e.logger.Info().
		Int("candidates", len(candidates)).
		Int("batch_size", e.batchSize).
		Msg("executing deletion plan")

batches:
	for start := 0; start < len(candidates); start += e.batchSize {
		if e.interrupt.IsSet() {
			interrupted = true
			break
		}
		end := start + e.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		e.logger.Info().
			Int("from", start+1).
			Int("to", end).
			Int("total", len(candidates)).
			Msg("processing batch")

		for _, idx := range candidates[start:end] {
			if e.interrupt.IsSet() {
				interrupted = true
				break batches
			}
			if !e.wait(ctx, e.requestDelay) {
				interrupted = true
				break batches
			}

			row := rows[idx]
			outcome, err := e.deleteWithRetry(ctx, row)
			switch outcome {
			case outcomeSuccess:
				report.SuccessfulDeletions++
				processed[idx] = true
				e.logger.Info().Str("id", row.DocumentID).Str("title", row.Title).Msg("deleted document")
			case outcomeAlreadyGone:
				report.FailedDeletions++
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", row.DocumentID, err))
				processed[idx] = true
				e.logger.Warn().Str("id", row.DocumentID).Msg("document already gone, dropping from plan")
			case outcomeFailed:
				report.FailedDeletions++
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", row.DocumentID, err))
				e.logger.Warn().Err(err).Str("id", row.DocumentID).Msg("failed to delete document")
			case outcomeInterrupted:
				interrupted = true
				break batches
			}
		}
	}

	if interrupted {
		report.CompletionStatus = StatusInterrupted
	}

	if len(processed) > 0 {
		updated, err := writeUpdatedPlan(planPath, rows, processed)
		if err != nil {
			return Result{}, fmt.Errorf("rewrite plan: %w", err)
		}
		report.UpdatedPlanFile = updated
		e.logger.Info().Str("file", updated).Msg("wrote updated plan")
	}

	reportFile, err := WriteReport(report, e.reportPath)
	if err != nil {
		return Result{}, fmt.Errorf("write execution report: %w", err)
	}

	e.logger.Info().
		Int("succeeded", report.SuccessfulDeletions).
		Int("failed", report.FailedDeletions).
		Str("status", report.CompletionStatus).
		Msg("deletion run finished")

	return Result{TotalCandidates: report.TotalCandidates, Report: &report, ReportFile: reportFile}, nil
}

// deleteWithRetry attempts one candidate until it succeeds, fails on a
// non-retryable error, or the run is interrupted. Only a 429 retries.
func (e *Executor) deleteWithRetry(ctx context.Context, row PlanRow) (deleteOutcome, error) {
	if row.DocumentID == "" {
		return outcomeFailed, errors.New("missing document id")
	}

	for {
		err := e.deleter.DeleteDocument(ctx, row.DocumentID)
		if err == nil {
			return outcomeSuccess, nil
		}
		if readwise.IsNotFound(err) {
			return outcomeAlreadyGone, err
		}
		if readwise.IsRateLimited(err) {
			wait := readwise.RetryAfter(err, e.retryFallback)
			e.logger.Warn().
				Dur("wait", wait).
				Str("id", row.DocumentID).
				Msg("rate limited, waiting before retry")
			if !e.wait(ctx, wait) {
				return outcomeInterrupted, err
			}
			continue
		}
		return outcomeFailed, err
	}
}

// wait sleeps for d in short slices, returning false early when the
// interrupt flag is set or the context is done.
func (e *Executor) wait(ctx context.Context, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		if e.interrupt.IsSet() {
			return false
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		slice := interruptPollInterval
		if remaining < slice {
			slice = remaining
		}
		timer := time.NewTimer(slice)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}
