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


// Package source discovers and reads the transcripts that feed the pipeline.
//
// Each category maps to one subdirectory of a source root:
//
//	<root>/sessions/*.md           conversation
//	<root>/todos/*.json            task-history
//	<root>/shell-snapshots/*.sh    environment
//
// The category of a document comes from the directory it was found in, never
// from its content. Document ids are derived from file names (see DocumentID)
// so the same file always maps to the same artifact.
package source
