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


package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/athena/core"
	"github.com/poiesic/athena/storage"
)

// Ledger implements storage.Ledger for BadgerDB.
type Ledger struct {
	backend *Backend
	owned   bool
}

var _ storage.Ledger = (*Ledger)(nil)

// NewLedger creates a ledger on an open backend. Closing the ledger leaves
// the backend open.
func NewLedger(backend *Backend) *Ledger {
	return &Ledger{backend: backend}
}

// OpenLedger opens a BadgerDB database at path and returns a ledger that owns it.
//
// Returns storage.Ledger interface to enforce abstraction.
func OpenLedger(path string, inMemory bool) (storage.Ledger, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return &Ledger{backend: backend, owned: true}, nil
}

// Record stores entry under its (category, documentId) key.
func (l *Ledger) Record(ctx context.Context, entry *storage.LedgerEntry) error {
	if l.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := core.ValidateCategory(entry.Category); err != nil {
		return err
	}
	if entry.DocumentID == "" {
		return core.ErrEmptyDocumentID
	}
	if entry.ProcessedAt.IsZero() {
		entry.ProcessedAt = time.Now().UTC()
	}

	value := storage.MarshalLedgerEntry(entry)

	return l.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeLedgerKey(entry.Category, entry.DocumentID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Get retrieves the entry for a document.
// Returns storage.ErrNotFound if the document was never recorded.
func (l *Ledger) Get(ctx context.Context, category core.Category, documentID string) (*storage.LedgerEntry, error) {
	if l.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var entry *storage.LedgerEntry
	err := l.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeLedgerKey(category, documentID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			entry, unmarshalErr = storage.UnmarshalLedgerEntry(val)
			return unmarshalErr
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns the entries of one category, or all entries when category is
// empty, in key order.
func (l *Ledger) List(ctx context.Context, category core.Category) ([]*storage.LedgerEntry, error) {
	if l.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var entries []*storage.LedgerEntry
	err := l.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(makeLedgerPrefix(category))
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := iter.Item().Value(func(val []byte) error {
				entry, err := storage.UnmarshalLedgerEntry(val)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Count returns the number of recorded documents.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	if l.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}

	count := 0
	err := l.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(makeLedgerPrefix(""))
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Close closes the backend if the ledger opened it.
func (l *Ledger) Close() error {
	if !l.owned || l.backend.IsClosed() {
		return nil
	}
	return l.backend.Close()
}
