package ai

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedEmbedder caps the number of provider calls per second.
// Each text counts as one call.
type RateLimitedEmbedder struct {
	inner   Embedder
	limiter *rate.Limiter
}

// NewRateLimitedEmbedder wraps inner with a token bucket of burst 1.
// A non-positive rps returns inner unchanged.
func NewRateLimitedEmbedder(inner Embedder, rps float64) Embedder {
	if rps <= 0 {
		return inner
	}
	return &RateLimitedEmbedder{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// EmbedText waits for a token, then embeds text.
func (r *RateLimitedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.EmbedText(ctx, text)
}

// EmbedTexts waits for one token per text, then embeds them as a batch.
func (r *RateLimitedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	for range texts {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return r.inner.EmbedTexts(ctx, texts)
}
