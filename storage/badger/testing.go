package badger

import "github.com/poiesic/athena/storage"

// NewMemoryLedger creates an in-memory ledger for testing.
// Caller must close the ledger when done.
func NewMemoryLedger() (storage.Ledger, error) {
	return OpenLedger("", true)
}
