package athena

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/poiesic/athena/ai"
	"github.com/poiesic/athena/ai/backend"
	"github.com/poiesic/athena/chunker"
	"github.com/poiesic/athena/core"
	"github.com/poiesic/athena/pipeline"
	"github.com/poiesic/athena/search"
	"github.com/poiesic/athena/source"
	"github.com/poiesic/athena/storage"
	"github.com/poiesic/athena/storage/badger"
	"github.com/poiesic/athena/storage/filestore"
)

// ConnectionProbe is the text embedded by TestConnection.
const ConnectionProbe = "This is a test sentence for the embedding connection check."

// Engine wires one provider, one vector store and one source root together.
type Engine struct {
	config   *Config
	provider ai.Provider
	store    storage.VectorStore
	source   *source.Source
	chunker  *chunker.Chunker
	logger   *slog.Logger

	ledgerOnce sync.Once
	ledger     storage.Ledger
	ledgerErr  error
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	provider ai.Provider
	logger   *slog.Logger
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithProvider uses provider instead of building one from the configuration.
func WithProvider(provider ai.Provider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// NewEngine validates config and constructs the components it names.
// Configuration errors are returned before any I/O.
func NewEngine(config *Config, opts ...EngineOption) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	options := &engineOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	provider := options.provider
	if provider == nil {
		if err := config.Validate(); err != nil {
			return nil, err
		}
		aiConfig, err := config.AIConfig()
		if err != nil {
			return nil, err
		}
		if provider, err = backend.New(aiConfig); err != nil {
			return nil, err
		}
	} else if err := config.validateLocal(); err != nil {
		return nil, err
	}

	c, err := chunker.New(chunker.WithChunkSize(config.ChunkSize), chunker.WithOverlap(config.ChunkOverlap))
	if err != nil {
		provider.Close()
		return nil, err
	}

	store, err := filestore.New(config.EmbeddingsDir, filestore.WithLogger(options.logger))
	if err != nil {
		provider.Close()
		return nil, err
	}

	return &Engine{
		config:   config,
		provider: provider,
		store:    store,
		source:   source.New(config.SourceDir, source.WithLogger(options.logger)),
		chunker:  c,
		logger:   options.logger,
	}, nil
}

// validateLocal checks everything except the provider settings.
func (c *Config) validateLocal() error {
	probe := *c
	probe.Provider = string(ai.ProviderOllama)
	probe.Ollama = OllamaConfig{URL: ai.DefaultOllamaURL, Model: ai.DefaultOllamaModel}
	probe.RequestsPerSecond = 0
	return probe.Validate()
}

func (e *Engine) Config() *Config            { return e.config }
func (e *Engine) Provider() ai.Provider      { return e.provider }
func (e *Engine) Store() storage.VectorStore { return e.store }
func (e *Engine) Source() *source.Source     { return e.source }
func (e *Engine) Chunker() *chunker.Chunker  { return e.chunker }

// Ledger opens the processed-document ledger on first use. It returns nil
// when the ledger is disabled.
func (e *Engine) Ledger() (storage.Ledger, error) {
	if !e.config.UseLedger {
		return nil, nil
	}
	e.ledgerOnce.Do(func() {
		e.ledger, e.ledgerErr = badger.OpenLedger(e.config.LedgerPath(), false)
	})
	return e.ledger, e.ledgerErr
}

// NewSearcher creates a searcher over the engine's store using the configured
// topK and threshold as defaults.
func (e *Engine) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	base := []search.Option{
		search.WithLogger(e.logger),
		search.WithDefaults(e.config.TopK, e.config.Threshold),
	}
	return search.NewSearcher(e.store, e.provider, append(base, opts...)...)
}

// NewPipeline creates a batch pipeline from the configuration. The caller
// must Release it.
func (e *Engine) NewPipeline(opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	ledger, err := e.Ledger()
	if err != nil {
		return nil, err
	}
	base := []pipeline.Option{
		pipeline.WithLogger(e.logger),
		pipeline.WithChunker(e.chunker),
		pipeline.WithDelay(e.config.BatchDelay.Std()),
		pipeline.WithMaxDocuments(e.config.MaxDocuments),
		pipeline.WithConcurrency(e.config.Concurrency),
		pipeline.WithReprocessChanged(e.config.ReprocessChanged),
	}
	if ledger != nil {
		base = append(base, pipeline.WithLedger(ledger))
	}
	return pipeline.NewPipeline(e.source, e.store, e.provider, append(base, opts...)...)
}

// ConnectionReport describes a successful provider round trip.
type ConnectionReport struct {
	Provider   string
	Model      string
	Dimensions int
	Sample     []float32
}

// TestConnection embeds ConnectionProbe. Provider errors are returned as is.
func (e *Engine) TestConnection(ctx context.Context) (*ConnectionReport, error) {
	vector, err := e.provider.Embedder().EmbedText(ctx, ConnectionProbe)
	if err != nil {
		return nil, err
	}
	return &ConnectionReport{
		Provider:   e.provider.Name(),
		Model:      e.provider.Model(),
		Dimensions: len(vector),
		Sample:     vector[:min(5, len(vector))],
	}, nil
}

// Stats extends the store statistics with the ledger size.
type Stats struct {
	core.StoreStats
	LedgerEntries int `json:"ledgerEntries"`
}

// Stats summarises the store. The ledger count is -1 when the ledger is
// disabled.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	storeStats, err := e.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{StoreStats: *storeStats, LedgerEntries: -1}

	ledger, err := e.Ledger()
	if err != nil {
		return nil, err
	}
	if ledger != nil {
		if stats.LedgerEntries, err = ledger.Count(ctx); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// Close releases the provider and the ledger.
func (e *Engine) Close() error {
	var errs []error

	// Close AI provider first
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing embedding provider", "err", err)
		errs = append(errs, err)
	}

	if e.ledger != nil {
		if err := e.ledger.Close(); err != nil {
			e.logger.Error("error closing ledger", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
