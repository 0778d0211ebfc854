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


package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/athena/core"
)

// ledgerEntryVersion prefixes every encoded entry.
const ledgerEntryVersion = 1

// LedgerEntryMUS encodes a LedgerEntry as its version followed by the fields
// in declaration order. ProcessedAt is stored as Unix nanoseconds.
var LedgerEntryMUS mus.Serializer[LedgerEntry] = ledgerEntryMUS{}

type ledgerEntryMUS struct{}

func (ledgerEntryMUS) Marshal(e LedgerEntry, bs []byte) (n int) {
	n = varint.Int.Marshal(ledgerEntryVersion, bs)
	n += ord.String.Marshal(string(e.Category), bs[n:])
	n += ord.String.Marshal(e.DocumentID, bs[n:])
	n += ord.String.Marshal(e.SourcePath, bs[n:])
	n += varint.Uint64.Marshal(uint64(e.Fingerprint), bs[n:])
	n += varint.Int.Marshal(e.Records, bs[n:])
	n += ord.String.Marshal(e.Provider, bs[n:])
	n += ord.String.Marshal(e.Model, bs[n:])
	n += varint.Int.Marshal(e.Dimensions, bs[n:])
	n += varint.Int64.Marshal(e.ProcessedAt.UnixNano(), bs[n:])
	n += ord.String.Marshal(e.RunID, bs[n:])
	return n
}

func (ledgerEntryMUS) Unmarshal(bs []byte) (e LedgerEntry, n int, err error) {
	version, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return e, n, err
	}
	if version != ledgerEntryVersion {
		return e, n, fmt.Errorf("unsupported ledger entry version %d", version)
	}

	var m int
	str := func(dst *string) {
		if err == nil {
			*dst, m, err = ord.String.Unmarshal(bs[n:])
			n += m
		}
	}
	integer := func(dst *int) {
		if err == nil {
			*dst, m, err = varint.Int.Unmarshal(bs[n:])
			n += m
		}
	}

	var category string
	str(&category)
	str(&e.DocumentID)
	str(&e.SourcePath)
	if err == nil {
		var fingerprint uint64
		fingerprint, m, err = varint.Uint64.Unmarshal(bs[n:])
		n += m
		e.Fingerprint = core.ID(fingerprint)
	}
	integer(&e.Records)
	str(&e.Provider)
	str(&e.Model)
	integer(&e.Dimensions)
	if err == nil {
		var nanos int64
		nanos, m, err = varint.Int64.Unmarshal(bs[n:])
		n += m
		e.ProcessedAt = time.Unix(0, nanos).UTC()
	}
	str(&e.RunID)

	e.Category = core.Category(category)
	return e, n, err
}

func (ledgerEntryMUS) Size(e LedgerEntry) (size int) {
	size = varint.Int.Size(ledgerEntryVersion)
	size += ord.String.Size(string(e.Category))
	size += ord.String.Size(e.DocumentID)
	size += ord.String.Size(e.SourcePath)
	size += varint.Uint64.Size(uint64(e.Fingerprint))
	size += varint.Int.Size(e.Records)
	size += ord.String.Size(e.Provider)
	size += ord.String.Size(e.Model)
	size += varint.Int.Size(e.Dimensions)
	size += varint.Int64.Size(e.ProcessedAt.UnixNano())
	size += ord.String.Size(e.RunID)
	return size
}

func (s ledgerEntryMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

// MarshalLedgerEntry serializes a LedgerEntry to bytes.
func MarshalLedgerEntry(entry *LedgerEntry) []byte {
	buf := make([]byte, LedgerEntryMUS.Size(*entry))
	LedgerEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalLedgerEntry deserializes a LedgerEntry from bytes.
func UnmarshalLedgerEntry(data []byte) (*LedgerEntry, error) {
	entry, _, err := LedgerEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return &entry, nil
}
