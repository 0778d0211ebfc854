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


// Package ai provides abstractions for the embedding services used by Athena.
//
// The package defines the Embedder capability (text in, vector out) and the
// Provider that owns one backend for its whole lifetime. Callers treat the
// vector length as provider-defined.
//
// # Implementation Packages
//
//   - ai/openai: remote, authenticated backend built on langchaingo
//   - ai/ollama: local backend speaking the Ollama embeddings protocol
//   - ai/backend: picks one of the above from Config.Provider
//   - ai/mock: test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, ollama.NewEmbedder, etc.) return
// INTERFACE types to enforce abstraction. Test utility constructors
// (mock.NewMockEmbedder) return CONCRETE types to enable test assertions.
//
// # Supporting Pieces
//
// RetryWithBackoff retries an operation with linear backoff and honours
// context cancellation. NewRateLimitedEmbedder caps provider calls per
// second with a token bucket.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithProvider(ai.ProviderOllama))
//	provider, err := backend.New(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "Hello world")
package ai
