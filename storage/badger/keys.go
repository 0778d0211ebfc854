package badger

import (
	"strings"

	"github.com/poiesic/athena/core"
)

// Key prefixes for different data types
const (
	ledgerPrefix = "ledger"
)

// makeLedgerKey generates a key for a processed document.
// Format: ledger:category:documentID
func makeLedgerKey(category core.Category, documentID string) []byte {
	return []byte(makeLedgerPrefix(category) + documentID)
}

// makeLedgerPrefix generates the scan prefix for one category, or for every
// category when category is empty.
func makeLedgerPrefix(category core.Category) string {
	var sb strings.Builder
	sb.WriteString(ledgerPrefix)
	sb.WriteByte(':')
	if category != "" {
		sb.WriteString(string(category))
		sb.WriteByte(':')
	}
	return sb.String()
}
