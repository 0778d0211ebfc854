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


// Package chunker splits transcripts into overlapping text segments.
//
// A transcript is first divided into turns at lines that open with a speaker
// label (User:, Assistant:, Human:, Claude:). Turns that fit within the
// configured chunk size become a single chunk. Longer turns are cut into
// windows of at most the chunk size that overlap by the configured amount,
// preferring to cut at whitespace when doing so keeps at least 70% of the
// window and does not open a gap before the next window.
//
// Sizes and offsets are measured in Unicode code points.
package chunker
