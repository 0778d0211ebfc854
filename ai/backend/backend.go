// Package backend selects the embedding provider named in an ai.Config.
package backend

import (
	"github.com/poiesic/athena/ai"
	"github.com/poiesic/athena/ai/ollama"
	"github.com/poiesic/athena/ai/openai"
	"github.com/poiesic/athena/core"
)

// New constructs the provider selected by config.Provider. The choice is made
// once; the returned provider never switches backends.
func New(config *ai.Config) (ai.Provider, error) {
	if config == nil {
		return nil, &core.ConfigurationError{Field: "provider", Reason: "configuration is required"}
	}

	switch config.Provider {
	case ai.ProviderOpenAI:
		return openai.NewProvider(config)
	case ai.ProviderOllama:
		return ollama.NewProvider(config)
	}
	return nil, &core.ConfigurationError{Field: "provider", Reason: "unknown provider " + string(config.Provider)}
}
