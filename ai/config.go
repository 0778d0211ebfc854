// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"strings"

	"github.com/poiesic/athena/core"
)

// ProviderKind names an embedding backend.
type ProviderKind string

const (
	// ProviderOpenAI is the remote, authenticated backend.
	ProviderOpenAI ProviderKind = "openai"
	// ProviderOllama is the local, unauthenticated backend.
	ProviderOllama ProviderKind = "ollama"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "text-embedding-3-large"
	DefaultOllamaURL     = "http://localhost:11434"
	DefaultOllamaModel   = "mxbai-embed-large"
)

// ParseProviderKind resolves a provider name. "remote" and "local" are
// accepted as aliases.
func ParseProviderKind(name string) (ProviderKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai", "remote":
		return ProviderOpenAI, nil
	case "ollama", "local", "":
		return ProviderOllama, nil
	}
	return "", &core.ConfigurationError{
		Field:  "provider",
		Reason: "unknown provider " + name + " (want openai or ollama)",
	}
}

// Config holds configuration for embedding providers.
type Config struct {
	// Provider selects the backend. It is fixed for the lifetime of a provider.
	Provider ProviderKind

	// OpenAIBaseURL is the base URL of the remote embeddings API.
	// Example: "https://api.openai.com/v1"
	OpenAIBaseURL string

	// OpenAIAPIKey authenticates remote calls. Required for ProviderOpenAI.
	OpenAIAPIKey string

	// OpenAIModel is the remote embedding model identifier.
	OpenAIModel string

	// OllamaURL is the base URL of the local inference server.
	// Example: "http://localhost:11434"
	OllamaURL string

	// OllamaModel is the local embedding model identifier.
	OllamaModel string

	// RequestsPerSecond caps provider calls. Zero disables the limit.
	RequestsPerSecond float64
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider selects the embedding backend.
func WithProvider(kind ProviderKind) ConfigOption {
	return func(c *Config) {
		c.Provider = kind
	}
}

// WithOpenAI sets the remote base URL and credential.
func WithOpenAI(baseURL, apiKey string) ConfigOption {
	return func(c *Config) {
		c.OpenAIBaseURL = baseURL
		c.OpenAIAPIKey = apiKey
	}
}

// WithOllamaURL sets the local server URL.
func WithOllamaURL(url string) ConfigOption {
	return func(c *Config) {
		c.OllamaURL = url
	}
}

// WithModel sets the model of the currently selected provider.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		if c.Provider == ProviderOpenAI {
			c.OpenAIModel = model
			return
		}
		c.OllamaModel = model
	}
}

// WithRequestsPerSecond caps provider calls per second.
func WithRequestsPerSecond(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

// DefaultConfig returns a Config for a local Ollama server.
func DefaultConfig() *Config {
	return &Config{
		Provider:      ProviderOllama,
		OpenAIBaseURL: DefaultOpenAIBaseURL,
		OpenAIModel:   DefaultOpenAIModel,
		OllamaURL:     DefaultOllamaURL,
		OllamaModel:   DefaultOllamaModel,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderOpenAI),
//	    WithOpenAI("https://api.openai.com/v1", key),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Model returns the model identifier of the selected provider.
func (c *Config) Model() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIModel
	}
	return c.OllamaModel
}

// Normalize ensures the configuration is in a canonical form.
// The remote base URL gets a /v1 suffix if missing, which OpenAI-compatible
// APIs require. The local URL loses any trailing slash.
func (c *Config) Normalize() {
	c.OpenAIAPIKey = strings.TrimSpace(c.OpenAIAPIKey)
	c.OpenAIBaseURL = strings.TrimRight(strings.TrimSpace(c.OpenAIBaseURL), "/")
	if c.OpenAIBaseURL != "" && !strings.HasSuffix(c.OpenAIBaseURL, "/v1") {
		c.OpenAIBaseURL += "/v1"
	}
	c.OllamaURL = strings.TrimSuffix(c.OllamaURL, "/")
}

// Validate checks that the configuration is valid and complete for the
// selected provider. It normalizes the configuration first.
func (c *Config) Validate() error {
	c.Normalize()

	if c.RequestsPerSecond < 0 {
		return &core.ConfigurationError{Field: "requests per second", Reason: "cannot be negative"}
	}

	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return &core.ConfigurationError{Field: "OPENAI_API_KEY", Reason: "required for the openai provider"}
		}
		if c.OpenAIBaseURL == "" {
			return &core.ConfigurationError{Field: "OPENAI_BASE_URL", Reason: "is required"}
		}
		if c.OpenAIModel == "" {
			return &core.ConfigurationError{Field: "OPENAI_EMBEDDING_MODEL", Reason: "is required"}
		}
	case ProviderOllama:
		if c.OllamaURL == "" {
			return &core.ConfigurationError{Field: "OLLAMA_URL", Reason: "is required"}
		}
		if c.OllamaModel == "" {
			return &core.ConfigurationError{Field: "OLLAMA_MODEL", Reason: "is required"}
		}
	default:
		return &core.ConfigurationError{Field: "provider", Reason: "unknown provider " + string(c.Provider)}
	}
	return nil
}
