// Package ingest loads the canonical subject dataset into the content graph
// in batches, tolerating per-record and per-batch failures.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"proceres/internal/core"
	"proceres/internal/platform/logger"
	"proceres/internal/platform/tracing"
	"proceres/pkg/domain"
)

// Defaults for a zero-configured engine.
const (
	DefaultBatchSize   = 5
	DefaultParallelism = 1
	DefaultRetries     = 2
)

// ReasonDeadline is the failure reason for records whose batch could not run
// before the run deadline.
const ReasonDeadline = "run deadline exceeded"

// ReasonCancelled is the failure reason for records whose batch was skipped
// because the caller cancelled the run.
const ReasonCancelled = "run cancelled"

// Failure names one record that could not be loaded. Index is the record's
// zero-based position in the input.
type Failure struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Report summarises one ingestion run.
type Report struct {
	Total          int       `json:"total"`
	Loaded         int       `json:"loaded"`
	AlreadyPresent int       `json:"already_present"`
	Failed         int       `json:"failed"`
	Failures       []Failure `json:"failures,omitempty"`
}

// Engine batches dataset records into store transactions.
type Engine struct {
	store       domain.PersistentStore
	batchSize   int
	parallelism int
	retries     int
	backoff     time.Duration
	runTimeout  time.Duration
	log         *logger.Logger
	metrics     *Metrics
}

// Option customises an Engine.
type Option func(*Engine)

// WithBatchSize sets the number of records per transaction.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithParallelism bounds how many batches run at once.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithRetries sets how many times a failed batch transaction is retried.
func WithRetries(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.retries = n
		}
	}
}

// WithBackoff sets the base pause between batch retries.
func WithBackoff(d time.Duration) Option {
	return func(e *Engine) { e.backoff = d }
}

// WithRunTimeout bounds the whole run. Zero means no bound.
func WithRunTimeout(d time.Duration) Option {
	return func(e *Engine) { e.runTimeout = d }
}

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l.With("component", "ingest")
		}
	}
}

// WithMetrics sets the collectors updated per batch.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine returns an engine writing into store.
func NewEngine(store domain.PersistentStore, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		batchSize:   DefaultBatchSize,
		parallelism: DefaultParallelism,
		retries:     DefaultRetries,
		backoff:     50 * time.Millisecond,
		log:         logger.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type indexedRecord struct {
	index  int
	record SubjectRecord
}

type batchResult struct {
	loaded   int
	present  int
	failures []Failure
}

func (r *batchResult) fail(rec indexedRecord, reason string) {
	r.failures = append(r.failures, Failure{Index: rec.index, ID: rec.record.ID, Reason: reason})
}

// Ingest loads records on behalf of actor. Per-record and per-batch failures
// are reported in the Report; an error is returned only when the run cannot
// start.
func (e *Engine) Ingest(ctx context.Context, records []SubjectRecord, actor domain.UserRef) (Report, error) {
	if e.store == nil {
		return Report{}, errors.New("ingest: nil store")
	}
	if actor.ID == "" {
		return Report{}, errors.New("ingest: actor id is required")
	}
	if _, ok := e.store.GetUser(actor.ID); !ok {
		return Report{}, &domain.NotFoundError{Entity: domain.EntityUser, ID: actor.ID}
	}

	runCtx := ctx
	if e.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.runTimeout)
		defer cancel()
	}
	runCtx, span := tracing.Start(runCtx, "ingest.run",
		attribute.Int("proceres.ingest.records", len(records)),
		attribute.Int("proceres.ingest.batch_size", e.batchSize),
	)
	defer span.End()

	batches := partition(records, e.batchSize)
	results := make([]batchResult, len(batches))

	var g errgroup.Group
	g.SetLimit(e.parallelism)
	for i, batch := range batches {
		g.Go(func() error {
			results[i] = e.runBatch(runCtx, i, batch, actor)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Total: len(records)}
	for _, r := range results {
		report.Loaded += r.loaded
		report.AlreadyPresent += r.present
		report.Failed += len(r.failures)
		report.Failures = append(report.Failures, r.failures...)
	}
	span.SetAttributes(
		attribute.Int("proceres.ingest.loaded", report.Loaded),
		attribute.Int("proceres.ingest.already_present", report.AlreadyPresent),
		attribute.Int("proceres.ingest.failed", report.Failed),
	)
	e.log.Info("ingestion finished",
		"total", report.Total,
		"loaded", report.Loaded,
		"already_present", report.AlreadyPresent,
		"failed", report.Failed,
	)
	return report, nil
}

func partition(records []SubjectRecord, size int) [][]indexedRecord {
	var out [][]indexedRecord
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		batch := make([]indexedRecord, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, indexedRecord{index: i, record: records[i]})
		}
		out = append(out, batch)
	}
	return out
}

func stopReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonDeadline
	}
	return ReasonCancelled
}

type candidate struct {
	rec     indexedRecord
	subject domain.Subject
}

func (e *Engine) runBatch(ctx context.Context, n int, batch []indexedRecord, actor domain.UserRef) batchResult {
	var res batchResult
	if err := ctx.Err(); err != nil {
		for _, rec := range batch {
			res.fail(rec, stopReason(err))
		}
		e.metrics.observe(res)
		return res
	}

	ctx, span := tracing.Start(ctx, "ingest.batch",
		attribute.Int("proceres.ingest.batch", n),
		attribute.Int("proceres.ingest.batch_records", len(batch)),
	)
	defer span.End()
	started := time.Now()

	var prepared []candidate
	var preFailures []Failure
	for _, rec := range batch {
		s, err := rec.record.Normalize(actor)
		if err != nil {
			preFailures = append(preFailures, Failure{Index: rec.index, ID: rec.record.ID, Reason: err.Error()})
			continue
		}
		prepared = append(prepared, candidate{rec: rec, subject: s})
	}

	var committed batchResult
	var err error
	for attempt := 0; attempt <= e.retries; attempt++ {
		if attempt > 0 {
			if e.metrics != nil {
				e.metrics.BatchRetries.Inc()
			}
			e.log.Warn("retrying batch", "batch", n, "attempt", attempt, "error", err)
			if !e.sleep(ctx, time.Duration(attempt)*e.backoff) {
				break
			}
		}
		committed, err = e.commit(ctx, prepared)
		if err == nil || !retryable(err) {
			break
		}
	}
	if err != nil {
		tracing.Fail(span, err)
		reason := batchReason(ctx, err)
		committed = batchResult{}
		for _, c := range prepared {
			committed.fail(c.rec, reason)
		}
		e.log.Error("batch failed", "batch", n, "records", len(prepared), "error", err)
	}

	res.loaded = committed.loaded
	res.present = committed.present
	res.failures = mergeFailures(preFailures, committed.failures)
	if e.metrics != nil {
		e.metrics.BatchDuration.Observe(time.Since(started).Seconds())
	}
	e.metrics.observe(res)
	e.log.Debug("batch processed", "batch", n, "loaded", res.loaded, "already_present", res.present, "failed", len(res.failures))
	return res
}

// commit runs one transaction over the prepared records. Record-level
// problems are collected without aborting the transaction.
func (e *Engine) commit(ctx context.Context, prepared []candidate) (batchResult, error) {
	var out batchResult
	_, err := e.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		out = batchResult{}
		roles := core.NewAssetRoleValidator(tx)
		now := time.Now().UTC()
		for _, c := range prepared {
			if _, exists := tx.FindSubjectByExternalID(c.subject.ExternalID); exists {
				out.present++
				continue
			}
			if err := roles.ValidateNewSubject(ctx, c.subject, now); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				out.fail(c.rec, recordReason(err))
				continue
			}
			_, inserted, err := tx.InsertSubjectIfAbsent(c.subject)
			switch {
			case err != nil:
				out.fail(c.rec, recordReason(err))
			case inserted:
				out.loaded++
			default:
				out.present++
			}
		}
		return nil
	})
	return out, err
}

// recordReason renders a record failure on one line; joined errors are
// separated by "; ".
func recordReason(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rv domain.RuleViolationError
	return !errors.As(err, &rv)
}

func batchReason(ctx context.Context, err error) string {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return stopReason(ctxErr)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonDeadline
	}
	var pe *domain.PersistenceError
	if errors.As(err, &pe) {
		return pe.Error()
	}
	var rv domain.RuleViolationError
	if errors.As(err, &rv) {
		return rv.Error()
	}
	return (&domain.PersistenceError{Op: "batch insert", Err: err}).Error()
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// mergeFailures orders failures by input position.
func mergeFailures(a, b []Failure) []Failure {
	out := make([]Failure, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Index <= b[j].Index {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// String renders a one-line summary.
func (r Report) String() string {
	return fmt.Sprintf("%d records: %d loaded, %d already present, %d failed", r.Total, r.Loaded, r.AlreadyPresent, r.Failed)
}
