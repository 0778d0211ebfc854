package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/athena/ai"
	"github.com/poiesic/athena/chunker"
	"github.com/poiesic/athena/core"
	"github.com/poiesic/athena/source"
	"github.com/poiesic/athena/storage"
)

// DefaultDelay is the pause between two documents.
const DefaultDelay = 500 * time.Millisecond

// Pipeline drives source documents through chunking, embedding and storage.
type Pipeline struct {
	source           *source.Source
	store            storage.VectorStore
	ledger           storage.Ledger
	provider         ai.Provider
	chunker          *chunker.Chunker
	pool             *ants.Pool
	concurrency      int
	delay            time.Duration
	maxDocuments     int
	reprocessChanged bool
	progress         io.Writer
	sleep            func(ctx context.Context, d time.Duration) error
	logger           *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "pipeline")
		return nil
	}
}

// WithChunker replaces the default chunker.
func WithChunker(c *chunker.Chunker) Option {
	return func(p *Pipeline) error {
		if c != nil {
			p.chunker = c
		}
		return nil
	}
}

// WithLedger records every written artifact in ledger.
func WithLedger(ledger storage.Ledger) Option {
	return func(p *Pipeline) error {
		p.ledger = ledger
		return nil
	}
}

// WithDelay sets the pause between documents. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d < 0 {
			return &core.ConfigurationError{Field: "batch delay", Reason: "cannot be negative"}
		}
		p.delay = d
		return nil
	}
}

// WithMaxDocuments caps how many documents one run processes. Zero means no cap.
func WithMaxDocuments(n int) Option {
	return func(p *Pipeline) error {
		if n < 0 {
			return &core.ConfigurationError{Field: "max documents", Reason: "cannot be negative"}
		}
		p.maxDocuments = n
		return nil
	}
}

// WithConcurrency sets how many documents are processed at once.
// Default is 1. Chunks of one document are always embedded in order.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return &core.ConfigurationError{Field: "concurrency", Reason: "must be at least 1"}
		}
		p.concurrency = n
		return nil
	}
}

// WithReprocessChanged reprocesses documents whose content no longer matches
// the fingerprint in the ledger. It has no effect without a ledger.
func WithReprocessChanged(enabled bool) Option {
	return func(p *Pipeline) error {
		p.reprocessChanged = enabled
		return nil
	}
}

// WithProgress writes a progress line to w after every document.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

func withSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pipeline) error {
		p.sleep = sleep
		return nil
	}
}

// NewPipeline creates a new batch pipeline.
func NewPipeline(src *source.Source, store storage.VectorStore, provider ai.Provider, opts ...Option) (*Pipeline, error) {
	if src == nil {
		return nil, ErrSourceRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	defaultChunker, err := chunker.New()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		source:      src,
		store:       store,
		provider:    provider,
		chunker:     defaultChunker,
		concurrency: 1,
		delay:       DefaultDelay,
		sleep:       sleepContext,
		logger:      slog.Default().With("component", "pipeline"),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			return nil, optErr
		}
	}

	if p.concurrency > 1 {
		pool, err := ants.NewPool(p.concurrency)
		if err != nil {
			return nil, err
		}
		p.pool = pool
	}

	return p, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

func (p *Pipeline) processor(logger *slog.Logger) *documentProcessor {
	return &documentProcessor{
		chunker:  p.chunker,
		embedder: p.provider.Embedder(),
		provider: p.provider.Name(),
		model:    p.provider.Model(),
		store:    p.store,
		ledger:   p.ledger,
		logger:   logger,
	}
}

// Run processes every document of categories that has no artifact yet.
// All categories are used when none are given. Document failures are
// collected in the report; the returned error is reserved for invalid
// arguments and cancellation, in which case the partial report is still
// returned.
func (p *Pipeline) Run(ctx context.Context, categories ...core.Category) (*Report, error) {
	start := time.Now()
	if len(categories) == 0 {
		categories = core.Categories
	}
	for _, c := range categories {
		if err := core.ValidateCategory(c); err != nil {
			return nil, err
		}
	}

	report := newReport(uuid.NewString())
	logger := p.logger.With("run", report.RunID)
	defer func() {
		report.ProcessingTime = time.Since(start)
	}()

	pending, err := p.partition(ctx, logger, categories, report)
	if err != nil {
		return report, err
	}
	if p.maxDocuments > 0 && len(pending) > p.maxDocuments {
		report.Deferred = len(pending) - p.maxDocuments
		pending = pending[:p.maxDocuments]
	}
	logger.Info("starting run",
		"discovered", report.TotalFiles,
		"skipped", report.Skipped,
		"pending", len(pending),
		"deferred", report.Deferred,
		"provider", p.provider.Name(),
		"model", p.provider.Model())

	var tracker *ProgressTracker
	if p.progress != nil && len(pending) > 0 {
		tracker = NewProgressTracker(p.progress, len(pending), 1)
		tracker.Start()
		defer tracker.Finish()
	}

	dp := p.processor(logger)
	var mu sync.Mutex
	handle := func(entry source.Entry) {
		doc, err := p.source.Read(entry)
		var artifact *core.VectorArtifact
		if err == nil {
			artifact, err = dp.process(ctx, doc, report.RunID)
		}

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("document failed", "path", entry.Path, "err", err)
				report.failed(entry.Category, entry.Path, err)
			}
		} else {
			report.processed(artifact)
		}
		if tracker != nil {
			tracker.Increment(1)
		}
	}

	if p.pool == nil {
		err = p.runSequential(ctx, pending, handle)
	} else {
		err = p.runPooled(ctx, pending, handle)
	}
	if err != nil {
		logger.Warn("run interrupted", "err", err)
		return report, err
	}

	logger.Info("run complete",
		"processed", report.Processed,
		"skipped", report.Skipped,
		"errors", len(report.Errors),
		"embeddings", report.TotalEmbeddings)
	return report, nil
}

// partition discovers documents and returns those that need processing.
// Skips and discovery failures are counted in report.
func (p *Pipeline) partition(ctx context.Context, logger *slog.Logger, categories []core.Category, report *Report) ([]source.Entry, error) {
	var pending []source.Entry
	for _, category := range categories {
		entries, err := p.source.Discover(category)
		if err != nil {
			logger.Error("discovery failed", "category", category, "err", err)
			dir, _ := p.source.Dir(category)
			report.failed(category, dir, err)
			continue
		}

		cr := report.category(category)
		cr.Discovered += len(entries)
		report.TotalFiles += len(entries)

		claimed := make(map[string]string, len(entries))
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if first, ok := claimed[entry.DocumentID]; ok {
				err := fmt.Errorf("%w %s: also derived from %s", ErrDuplicateDocumentID, entry.DocumentID, first)
				logger.Error("document id collision", "path", entry.Path, "id", entry.DocumentID, "first", first)
				report.failed(category, entry.Path, err)
				continue
			}
			claimed[entry.DocumentID] = entry.Path

			exists, err := p.store.Exists(ctx, category, entry.DocumentID)
			if err != nil {
				logger.Error("existence check failed", "path", entry.Path, "err", err)
				report.failed(category, entry.Path, err)
				continue
			}
			if exists && !p.changed(ctx, logger, entry) {
				logger.Debug("skipping document with existing artifact", "path", entry.Path)
				report.skipped(category)
				continue
			}
			pending = append(pending, entry)
		}
	}
	return pending, nil
}

// changed reports whether an already processed document should be processed
// again because its content differs from the ledger fingerprint.
func (p *Pipeline) changed(ctx context.Context, logger *slog.Logger, entry source.Entry) bool {
	if !p.reprocessChanged || p.ledger == nil {
		return false
	}
	recorded, err := p.ledger.Get(ctx, entry.Category, entry.DocumentID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("ledger lookup failed", "path", entry.Path, "err", err)
		}
		return false
	}
	doc, err := p.source.Read(entry)
	if err != nil {
		// Let the processing step report the read failure.
		return true
	}
	if core.FingerprintContent(doc.Content) == recorded.Fingerprint {
		return false
	}
	logger.Info("source changed since last run", "path", entry.Path)
	return true
}

func (p *Pipeline) runSequential(ctx context.Context, pending []source.Entry, handle func(source.Entry)) error {
	for i, entry := range pending {
		if i > 0 && p.delay > 0 {
			if err := p.sleep(ctx, p.delay); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		handle(entry)
	}
	return ctx.Err()
}

func (p *Pipeline) runPooled(ctx context.Context, pending []source.Entry, handle func(source.Entry)) error {
	var wg sync.WaitGroup
	var runErr error
	for i, entry := range pending {
		if i > 0 && p.delay > 0 {
			if runErr = p.sleep(ctx, p.delay); runErr != nil {
				break
			}
		}
		if runErr = ctx.Err(); runErr != nil {
			break
		}
		wg.Add(1)
		if err := p.pool.Submit(func() {
			defer wg.Done()
			handle(entry)
		}); err != nil {
			wg.Done()
			runErr = fmt.Errorf("submit %s: %w", entry.Path, err)
			break
		}
	}
	wg.Wait()
	if runErr != nil {
		return runErr
	}
	return ctx.Err()
}

// ProcessFile processes exactly one file and overwrites its artifact.
// A read or write failure is reported like in Run.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*Report, error) {
	start := time.Now()
	report := newReport(uuid.NewString())
	logger := p.logger.With("run", report.RunID)
	defer func() {
		report.ProcessingTime = time.Since(start)
	}()

	report.TotalFiles = 1
	category := p.source.CategoryForPath(path)
	report.category(category).Discovered++

	doc, err := p.source.ReadFile(path)
	if err == nil {
		var artifact *core.VectorArtifact
		artifact, err = p.processor(logger).process(ctx, doc, report.RunID)
		if err == nil {
			report.processed(artifact)
			return report, nil
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return report, ctxErr
	}
	logger.Error("document failed", "path", path, "err", err)
	report.failed(category, path, err)
	return report, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
