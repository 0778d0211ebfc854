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


// Package storage provides the storage abstraction layer for athena.
//
// This package defines the interfaces that decouple persistence from the
// pipeline and the query engine:
//
//   - VectorStore: one artifact per (category, documentId), written whole
//   - Ledger: a record of which source content produced each artifact
//
// It also owns the key to path mapping (ArtifactPath) so that existence
// checks are a single lookup: <root>/<category>/<documentId>.json.
//
// # Constructor Return Type Pattern
//
// Public constructors return INTERFACE types to enforce abstraction:
//
//	store, err := filestore.New(root)        // returns storage.VectorStore
//	ledger, err := badger.OpenLedger(path, false)  // returns storage.Ledger
//
// # Implementations
//
//   - storage/filestore: JSON artifacts on the local file system with atomic
//     replace-on-write
//   - storage/badger: the ledger on BadgerDB, in memory for tests
//
// # Usage
//
//	store, err := filestore.New("embeddings")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	records, err := store.ReadAll(ctx, storage.Filter{
//	    Categories: []core.Category{core.CategoryConversation},
//	})
package storage
