// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// DiscrepancyKind classifies one integrity finding.
type DiscrepancyKind string

const (
	// KindBrokenChain: an entry's previous_hash does not match the hash
	// of the entry before it (deletion, insertion, or reordering).
	KindBrokenChain DiscrepancyKind = "broken_chain"

	// KindInvalidHash: an entry's stored hash does not match the hash
	// recomputed over its content (in-place tampering).
	KindInvalidHash DiscrepancyKind = "invalid_hash"

	// KindInvalidEncoding: a line could not be parsed as an entry.
	KindInvalidEncoding DiscrepancyKind = "invalid_encoding"

	// KindLostTail: the final line was torn by an interrupted append and
	// its content is unrecoverable.
	KindLostTail DiscrepancyKind = "lost_tail"
)

// Discrepancy describes one integrity finding. Discrepancies are
// collected and returned, never raised as errors: a damaged ledger must
// still be fully reportable.
type Discrepancy struct {
	EntryID  uint64          `json:"entry_id,omitempty"`
	Line     int             `json:"line,omitempty"`
	Kind     DiscrepancyKind `json:"kind"`
	Expected string          `json:"expected,omitempty"`
	Actual   string          `json:"actual,omitempty"`
}

// Verify replays entries with fromID <= entry_id <= toID (toID 0 means
// "to the end") in file order, recomputing every entry hash and checking
// the previous-hash linkage. Malformed lines are reported as
// InvalidEncoding and skipped. The returned error covers I/O problems
// only; integrity findings always arrive through the slice.
//
// Verify takes the shared lock, so it can run concurrently with other
// readers but never against an in-flight append.
func (l *Ledger) Verify(fromID, toID uint64) ([]Discrepancy, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open ledger for verify: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64<<10), maxLineSize)

	var findings []Discrepancy
	previousHash := ZeroHash
	line := 0

	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			findings = append(findings, Discrepancy{
				Line: line,
				Kind: KindInvalidEncoding,
			})
			continue
		}

		if entry.EntryID < fromID {
			// Out of range, but the chain state must still advance so
			// the first in-range entry is checked against its true
			// predecessor.
			previousHash = entry.Hash
			continue
		}
		if toID != 0 && entry.EntryID > toID {
			break
		}

		if entry.PreviousHash != previousHash {
			findings = append(findings, Discrepancy{
				EntryID:  entry.EntryID,
				Line:     line,
				Kind:     KindBrokenChain,
				Expected: previousHash,
				Actual:   entry.PreviousHash,
			})
		}

		computed, err := computeHash(entry)
		if err != nil {
			findings = append(findings, Discrepancy{
				EntryID: entry.EntryID,
				Line:    line,
				Kind:    KindInvalidEncoding,
			})
			previousHash = entry.Hash
			continue
		}
		if computed != entry.Hash {
			findings = append(findings, Discrepancy{
				EntryID:  entry.EntryID,
				Line:     line,
				Kind:     KindInvalidHash,
				Expected: computed,
				Actual:   entry.Hash,
			})
		}

		// Chain onto the stored hash, not the recomputed one: a single
		// tampered entry then yields exactly one InvalidHash instead of
		// cascading BrokenChain findings through every successor.
		previousHash = entry.Hash
	}
	if err := scanner.Err(); err != nil {
		return findings, fmt.Errorf("scan ledger: %w", err)
	}

	return findings, nil
}
