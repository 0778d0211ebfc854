package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/athena/ai"
	"github.com/poiesic/athena/core"
	"github.com/poiesic/athena/storage"
)

const (
	// DefaultTopK is the number of results returned when not overridden.
	DefaultTopK = 5

	// DefaultThreshold is the minimum similarity kept. It is low on purpose
	// so that search favours recall.
	DefaultThreshold = 0.4
)

// Options controls one query.
type Options struct {
	TopK        int
	Threshold   float64
	DocumentIDs []string
	Categories  []core.Category
}

func (o Options) validate() error {
	if o.TopK <= 0 {
		return ErrInvalidTopK
	}
	if o.Threshold < -1 || o.Threshold > 1 {
		return ErrInvalidThreshold
	}
	return nil
}

// QueryOption adjusts the options of a single query.
type QueryOption func(*Options)

// WithTopK limits the number of results.
func WithTopK(k int) QueryOption {
	return func(o *Options) {
		o.TopK = k
	}
}

// WithThreshold sets the minimum similarity a result must reach.
func WithThreshold(threshold float64) QueryOption {
	return func(o *Options) {
		o.Threshold = threshold
	}
}

// WithDocumentIDs restricts the search to the given documents.
func WithDocumentIDs(ids ...string) QueryOption {
	return func(o *Options) {
		o.DocumentIDs = ids
	}
}

// WithCategories restricts the search to the given categories.
func WithCategories(categories ...core.Category) QueryOption {
	return func(o *Options) {
		o.Categories = categories
	}
}

// Searcher runs similarity queries against a vector store.
type Searcher struct {
	store    storage.VectorStore
	embedder ai.Embedder
	model    string
	defaults Options
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "searcher")
		return nil
	}
}

// WithDefaults sets the topK and threshold used when a query does not
// override them.
func WithDefaults(topK int, threshold float64) Option {
	return func(s *Searcher) error {
		opts := Options{TopK: topK, Threshold: threshold}
		if err := opts.validate(); err != nil {
			return err
		}
		s.defaults = opts
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.VectorStore, provider ai.Provider, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if provider == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		store:    store,
		embedder: provider.Embedder(),
		model:    provider.Model(),
		defaults: Options{TopK: DefaultTopK, Threshold: DefaultThreshold},
		logger:   slog.Default().With("component", "searcher"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Defaults returns the options a query starts from.
func (s *Searcher) Defaults() Options {
	return s.defaults
}

// Search returns the records most similar to query, best first.
func (s *Searcher) Search(ctx context.Context, query string, opts ...QueryOption) ([]core.QueryResult, error) {
	return s.SearchWithMonitor(ctx, query, nil, opts...)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, monitor SearchMonitor, opts ...QueryOption) ([]core.QueryResult, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	options := s.defaults
	for _, opt := range opts {
		opt(&options)
	}
	if err := options.validate(); err != nil {
		return nil, err
	}
	monitor.Start(query, options)

	queryVector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(len(queryVector))

	candidates := 0
	results := []core.QueryResult{}
	filter := storage.Filter{Categories: options.Categories, DocumentIDs: options.DocumentIDs}
	err = s.store.Walk(ctx, filter, func(artifact *core.VectorArtifact) error {
		monitor.ArtifactLoaded(artifact)
		if model := artifact.Metadata.Model; model != "" && model != s.model {
			s.logger.Warn("artifact was embedded with a different model",
				"sessionId", artifact.DocumentID,
				"provider", artifact.Metadata.Provider,
				"model", model,
				"activeModel", s.model)
			monitor.ModelMismatch(artifact, s.model)
		}

		for _, record := range artifact.Records {
			similarity, err := CosineSimilarity(queryVector, record.Vector)
			if err != nil {
				return fmt.Errorf("score record %s of %s: %w", record.ID, artifact.DocumentID, err)
			}
			candidates++
			if similarity < options.Threshold {
				continue
			}
			results = append(results, core.QueryResult{
				DocumentID: artifact.DocumentID,
				Text:       record.Text,
				Similarity: similarity,
				Metadata:   record.Metadata,
			})
		}
		return nil
	})
	if err != nil {
		s.logger.Error("error scoring stored records", "err", err)
		return nil, err
	}
	monitor.Scored(candidates, len(results))

	// Stable so that equal scores keep encounter order
	slices.SortStableFunc(results, func(a, b core.QueryResult) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})
	if len(results) > options.TopK {
		results = results[:options.TopK]
	}
	monitor.Finish(results)

	return results, nil
}
