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


package athena

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/athena/ai"
	"github.com/poiesic/athena/chunker"
	"github.com/poiesic/athena/core"
	"github.com/poiesic/athena/pipeline"
	"github.com/poiesic/athena/search"
	"github.com/poiesic/athena/source"
)

// DefaultEmbeddingsDir is where artifacts are written when not configured.
const DefaultEmbeddingsDir = "claudelogs/embeddings"

// Duration is a time.Duration that reads and writes as "500ms" in config files.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

type OpenAIConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url"`
	APIKey  string `yaml:"api_key" toml:"api_key"`
	Model   string `yaml:"model" toml:"model"`
}

type OllamaConfig struct {
	URL   string `yaml:"url" toml:"url"`
	Model string `yaml:"model" toml:"model"`
}

// Config is the complete configuration of an Engine. It is built in layers:
// DefaultConfig, then an optional file, then the environment, then flags.
// Nothing reads ambient state after the Engine is constructed.
type Config struct {
	Provider          string       `yaml:"provider" toml:"provider"`
	OpenAI            OpenAIConfig `yaml:"openai" toml:"openai"`
	Ollama            OllamaConfig `yaml:"ollama" toml:"ollama"`
	RequestsPerSecond float64      `yaml:"requests_per_second" toml:"requests_per_second"`

	EmbeddingsDir string `yaml:"embeddings_dir" toml:"embeddings_dir"`
	SourceDir     string `yaml:"source_dir" toml:"source_dir"`
	LedgerDir     string `yaml:"ledger_dir" toml:"ledger_dir"`
	UseLedger     bool   `yaml:"use_ledger" toml:"use_ledger"`

	ChunkSize    int `yaml:"chunk_size" toml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" toml:"chunk_overlap"`

	TopK      int     `yaml:"top_k" toml:"top_k"`
	Threshold float64 `yaml:"threshold" toml:"threshold"`

	MaxDocuments     int      `yaml:"max_documents" toml:"max_documents"`
	BatchDelay       Duration `yaml:"batch_delay" toml:"batch_delay"`
	Concurrency      int      `yaml:"concurrency" toml:"concurrency"`
	ReprocessChanged bool     `yaml:"reprocess_changed" toml:"reprocess_changed"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Provider: string(ai.ProviderOllama),
		OpenAI: OpenAIConfig{
			BaseURL: ai.DefaultOpenAIBaseURL,
			Model:   ai.DefaultOpenAIModel,
		},
		Ollama: OllamaConfig{
			URL:   ai.DefaultOllamaURL,
			Model: ai.DefaultOllamaModel,
		},
		EmbeddingsDir: DefaultEmbeddingsDir,
		SourceDir:     source.DefaultRoot,
		UseLedger:     true,
		ChunkSize:     chunker.DefaultChunkSize,
		ChunkOverlap:  chunker.DefaultOverlap,
		TopK:          search.DefaultTopK,
		Threshold:     search.DefaultThreshold,
		BatchDelay:    Duration(pipeline.DefaultDelay),
		Concurrency:   1,
	}
}

// LoadConfigFile reads a YAML or TOML file over the defaults. The format is
// chosen by extension.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.MergeFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeFile decodes a YAML or TOML file over c. Keys missing from the file
// keep their current value.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return &core.ConfigurationError{Field: "config file", Reason: "unsupported format " + filepath.Ext(path) + " (want .yaml, .yml or .toml)"}
	}
	if err != nil {
		return &core.ConfigurationError{Field: "config file", Reason: fmt.Sprintf("%s: %v", path, err)}
	}
	return nil
}

// LoadDotEnv loads KEY=value pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays the process environment on c.
func (c *Config) ApplyEnv() error {
	return c.ApplyLookup(os.LookupEnv)
}

// ApplyLookup overlays the variables found by lookup on c.
func (c *Config) ApplyLookup(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	var errs []error
	integer := func(name string, dst *int) {
		if v, ok := lookup(name); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, &core.ConfigurationError{Field: name, Reason: "not an integer: " + v})
				return
			}
			*dst = n
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := lookup(name); ok && v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, &core.ConfigurationError{Field: name, Reason: "not a number: " + v})
				return
			}
			*dst = f
		}
	}

	str("ATHENA_EMBEDDING_PROVIDER", &c.Provider)
	str("OPENAI_API_KEY", &c.OpenAI.APIKey)
	str("OPENAI_BASE_URL", &c.OpenAI.BaseURL)
	str("OPENAI_EMBEDDING_MODEL", &c.OpenAI.Model)
	str("OLLAMA_URL", &c.Ollama.URL)
	str("OLLAMA_MODEL", &c.Ollama.Model)
	str("ATHENA_EMBEDDINGS_DIR", &c.EmbeddingsDir)
	str("ATHENA_SOURCE_DIR", &c.SourceDir)
	str("ATHENA_LEDGER_DIR", &c.LedgerDir)
	integer("ATHENA_CHUNK_SIZE", &c.ChunkSize)
	integer("ATHENA_CHUNK_OVERLAP", &c.ChunkOverlap)
	integer("ATHENA_TOP_K", &c.TopK)
	float("ATHENA_THRESHOLD", &c.Threshold)
	integer("ATHENA_MAX_DOCUMENTS", &c.MaxDocuments)
	integer("ATHENA_CONCURRENCY", &c.Concurrency)

	if v, ok := lookup("ATHENA_BATCH_DELAY"); ok && v != "" {
		if err := c.BatchDelay.UnmarshalText([]byte(parseMillis(v))); err != nil {
			errs = append(errs, &core.ConfigurationError{Field: "ATHENA_BATCH_DELAY", Reason: "not a duration: " + v})
		}
	}

	return errors.Join(errs...)
}

// parseMillis lets a bare number mean milliseconds.
func parseMillis(v string) string {
	v = strings.TrimSpace(v)
	if _, err := strconv.Atoi(v); err == nil {
		return v + "ms"
	}
	return v
}

// LedgerPath returns the ledger directory, defaulting to a hidden directory
// inside the embeddings directory.
func (c *Config) LedgerPath() string {
	if c.LedgerDir != "" {
		return c.LedgerDir
	}
	return filepath.Join(c.EmbeddingsDir, ".ledger")
}

// AIConfig converts c to the provider configuration.
func (c *Config) AIConfig() (*ai.Config, error) {
	kind, err := ai.ParseProviderKind(c.Provider)
	if err != nil {
		return nil, err
	}
	return ai.NewConfig(
		ai.WithProvider(kind),
		ai.WithOpenAI(c.OpenAI.BaseURL, c.OpenAI.APIKey),
		ai.WithOllamaURL(c.Ollama.URL),
		func(cfg *ai.Config) {
			cfg.OpenAIModel = c.OpenAI.Model
			cfg.OllamaModel = c.Ollama.Model
		},
		ai.WithRequestsPerSecond(c.RequestsPerSecond),
	), nil
}

// Validate checks every setting and returns the first problem as a
// *core.ConfigurationError.
func (c *Config) Validate() error {
	aiConfig, err := c.AIConfig()
	if err != nil {
		return err
	}
	if err := aiConfig.Validate(); err != nil {
		return err
	}

	if strings.TrimSpace(c.EmbeddingsDir) == "" {
		return &core.ConfigurationError{Field: "ATHENA_EMBEDDINGS_DIR", Reason: "is required"}
	}
	if strings.TrimSpace(c.SourceDir) == "" {
		return &core.ConfigurationError{Field: "ATHENA_SOURCE_DIR", Reason: "is required"}
	}
	if _, err := chunker.New(chunker.WithChunkSize(c.ChunkSize), chunker.WithOverlap(c.ChunkOverlap)); err != nil {
		return err
	}
	if c.TopK <= 0 {
		return &core.ConfigurationError{Field: "ATHENA_TOP_K", Reason: "must be greater than 0"}
	}
	if c.Threshold < -1 || c.Threshold > 1 {
		return &core.ConfigurationError{Field: "ATHENA_THRESHOLD", Reason: "must be between -1 and 1"}
	}
	if c.MaxDocuments < 0 {
		return &core.ConfigurationError{Field: "ATHENA_MAX_DOCUMENTS", Reason: "cannot be negative"}
	}
	if c.BatchDelay < 0 {
		return &core.ConfigurationError{Field: "ATHENA_BATCH_DELAY", Reason: "cannot be negative"}
	}
	if c.Concurrency < 1 {
		return &core.ConfigurationError{Field: "ATHENA_CONCURRENCY", Reason: "must be at least 1"}
	}
	return nil
}
