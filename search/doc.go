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


// Package search ranks stored embedding records against a free text query.
//
// The Searcher embeds the query through the active provider, loads records
// from a storage.VectorStore, scores each one by cosine similarity and
// returns the best matches above a threshold. Scoring a record whose vector
// length differs from the query's is an error, never a zero score: it means
// the store holds artifacts from another provider.
package search
