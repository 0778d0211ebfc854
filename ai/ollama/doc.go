// Package ollama provides the local embedding backend.
//
// Requests go to {OllamaURL}/api/embeddings as {"model", "prompt"} and the
// answer carries a single "embedding" array. The server needs no credential.
// Each request is tried up to three times with a linear backoff of one second
// per attempt. A non-200 answer becomes a *core.ProviderError carrying the
// status code and reason phrase.
package ollama
