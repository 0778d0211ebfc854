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


// Package pipeline turns source documents into stored vector artifacts.
//
// A run discovers documents per category, skips those that already have an
// artifact, then chunks, embeds and writes the rest one at a time with a
// pause between documents. A chunk whose embedding fails is left out of its
// artifact; a document that cannot be read is reported and the run moves
// on. Every run returns a Report.
package pipeline
