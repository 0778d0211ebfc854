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


package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches any *ConfigurationError.
	ErrConfiguration = errors.New("configuration error")

	// ErrProvider matches any *ProviderError.
	ErrProvider = errors.New("provider error")

	// ErrLengthMismatch matches any *LengthMismatchError.
	ErrLengthMismatch = errors.New("vector length mismatch")

	// ErrStorageRead matches any *StorageReadError.
	ErrStorageRead = errors.New("storage read error")

	// ErrSourceRead matches any *SourceReadError.
	ErrSourceRead = errors.New("source read error")

	// ErrInvalidArtifact indicates a VectorArtifact failed validation.
	ErrInvalidArtifact = errors.New("invalid vector artifact")

	// ErrEmptyDocumentID indicates the artifact has no document id.
	ErrEmptyDocumentID = errors.New("document id cannot be empty")

	// ErrUnknownCategory indicates a category outside the known set.
	ErrUnknownCategory = errors.New("unknown category")
)

// ConfigurationError is fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ProviderError reports a failed embedding call.
type ProviderError struct {
	Provider   string
	StatusCode int
	Status     string
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s provider error: %d %s: %s", e.Provider, e.StatusCode, e.Status, msg)
	}
	return fmt.Sprintf("%s provider error: %s", e.Provider, msg)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// LengthMismatchError is raised when two vectors of different length are compared.
type LengthMismatchError struct {
	Expected int
	Actual   int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("vector length mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *LengthMismatchError) Is(target error) bool {
	return target == ErrLengthMismatch
}

// StorageReadError reports an unreadable or malformed artifact.
type StorageReadError struct {
	Path string
	Err  error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("read artifact %s: %v", e.Path, e.Err)
}

func (e *StorageReadError) Unwrap() error {
	return e.Err
}

func (e *StorageReadError) Is(target error) bool {
	return target == ErrStorageRead
}

// SourceReadError reports a source document that could not be read.
type SourceReadError struct {
	Path string
	Err  error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("read source %s: %v", e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error {
	return e.Err
}

func (e *SourceReadError) Is(target error) bool {
	return target == ErrSourceRead
}
