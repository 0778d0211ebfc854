package openai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/poiesic/athena/ai"
	"github.com/poiesic/athena/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const providerName = string(ai.ProviderOpenAI)

var statusPattern = regexp.MustCompile(`status code: (\d+)(?::\s*(.*))?`)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.OpenAIBaseURL),
		openai.WithToken(config.OpenAIAPIKey),
		openai.WithEmbeddingModel(config.OpenAIModel),
	)
	if err != nil {
		return nil, err
	}

	// Chunk text is sent as stored; langchaingo strips newlines by default.
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(false))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, toProviderError(err)
	}

	if len(vectors) == 0 || len(vectors[0]) == 0 {
		e.logger.Warn("embedder returned empty result")
		return nil, &core.ProviderError{Provider: providerName, Message: "malformed response", Err: ai.ErrEmptyEmbedding}
	}

	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, toProviderError(err)
	}
	if len(vectors) != len(texts) {
		return nil, &core.ProviderError{
			Provider: providerName,
			Message:  "malformed response: expected " + strconv.Itoa(len(texts)) + " embeddings, got " + strconv.Itoa(len(vectors)),
		}
	}

	return vectors, nil
}

// toProviderError converts a langchaingo failure into a core.ProviderError,
// recovering the upstream status code and message where present.
func toProviderError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	perr := &core.ProviderError{Provider: providerName, Err: err}
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		perr.StatusCode, _ = strconv.Atoi(m[1])
		perr.Status = http.StatusText(perr.StatusCode)
		perr.Message = strings.TrimSpace(m[2])
		perr.Err = nil
	}
	if errors.Is(err, openai.ErrEmptyResponse) || errors.Is(err, openai.ErrUnexpectedResponseLength) ||
		strings.Contains(err.Error(), "empty response") || strings.Contains(err.Error(), "decode response") {
		perr.Message = "malformed response"
	}
	return perr
}
