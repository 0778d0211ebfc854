package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/athena/ai"
	"github.com/poiesic/athena/core"
)

const (
	providerName = string(ai.ProviderOllama)

	// DefaultMaxAttempts is the number of tries per embedding request.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the backoff unit; attempt n waits n times this.
	DefaultRetryDelay = time.Second

	maxErrorBody = 4096
)

// Embedder implements ai.Embedder against the Ollama /api/embeddings endpoint.
type Embedder struct {
	url         string
	model       string
	httpClient  *http.Client
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

type embeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingsResponse struct {
	Embedding []float32 `json:"embedding"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newEmbedder(config *ai.Config, httpClient *http.Client) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Embedder{
		url:         config.OllamaURL + "/api/embeddings",
		model:       config.OllamaModel,
		httpClient:  httpClient,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		logger:      slog.Default().With("component", "ollama-embedder"),
	}, nil
}

// NewEmbedder creates an embedder for the local server named in config.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config, nil)
}

// EmbedText generates a vector embedding for a single text string. Failed
// requests are retried with linear backoff.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	var vector []float32
	err := ai.RetryWithBackoff(ctx, func() error {
		var err error
		vector, err = e.embed(ctx, text)
		if err != nil {
			e.logger.Warn("embedding request failed", "err", err)
		}
		return err
	}, e.maxAttempts, e.retryDelay)
	if err != nil {
		e.logger.Error("failed to generate embedding", "attempts", e.maxAttempts, "err", err)
		return nil, err
	}
	return vector, nil
}

// EmbedTexts embeds each text in order. The endpoint takes one prompt per call.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vector, err := e.EmbedText(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

// embed performs one request.
func (e *Embedder) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingsRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embeddings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &core.ProviderError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &core.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Message:    errorMessage(resp.Body),
		}
	}

	var decoded embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &core.ProviderError{Provider: providerName, Message: "malformed response", Err: err}
	}
	if len(decoded.Embedding) == 0 {
		return nil, &core.ProviderError{Provider: providerName, Message: "malformed response", Err: ai.ErrEmptyEmbedding}
	}
	return decoded.Embedding, nil
}

// errorMessage extracts the "error" field of a failure body, falling back to
// the raw text.
func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return ""
	}
	var decoded errorResponse
	if json.Unmarshal(raw, &decoded) == nil && decoded.Error != "" {
		return decoded.Error
	}
	return strings.TrimSpace(string(raw))
}
