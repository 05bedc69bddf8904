// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package ledger

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// ZeroHash is the previous_hash of the genesis entry: 64 hex zeros.
const ZeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// timestampLayout is the fixed-width UTC representation written into every
// entry. Microsecond precision, no locale or zone variation, so the bytes
// that were hashed can always be reproduced.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// Entry is one immutable audit record. Field order matches the canonical
// on-disk JSON layout; entries are created only by [Ledger.Append] and
// never mutated afterwards.
type Entry struct {
	EntryID      uint64         `json:"entry_id"`
	Timestamp    string         `json:"timestamp"`
	Event        string         `json:"event"`
	UserID       *int64         `json:"user_id"`
	IPAddress    *string        `json:"ip_address"`
	UserAgent    *string        `json:"user_agent"`
	Data         map[string]any `json:"data"`
	PreviousHash string         `json:"previous_hash"`
	Hash         string         `json:"hash"`
}

// Actor identifies who (and from where) triggered an audited event. A nil
// UserID records a system or anonymous actor. IPAddress and UserAgent are
// stored alongside the entry but are not part of the hashed content.
type Actor struct {
	UserID    *int64
	IPAddress string
	UserAgent string
}

// System is the actor used for events not attributable to a user.
var System = Actor{}

// computeHash returns the BLAKE2b-256 digest of the entry's canonical
// encoding, hex-encoded.
//
// The canonical encoding is the JSON serialization of a map holding
// entry_id, timestamp, event, user_id, data, and previous_hash:
// encoding/json sorts map keys at every nesting level, giving a stable
// byte sequence for identical content. IPAddress and UserAgent are
// deliberately excluded, matching the persisted-format contract.
func computeHash(e Entry) (string, error) {
	canonical, err := json.Marshal(map[string]any{
		"entry_id":      e.EntryID,
		"timestamp":     e.Timestamp,
		"event":         e.Event,
		"user_id":       e.UserID,
		"data":          e.Data,
		"previous_hash": e.PreviousHash,
	})
	if err != nil {
		return "", fmt.Errorf("canonical encoding: %w", err)
	}

	sum := blake2b.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// normalizeData round-trips data through JSON so that the values hashed at
// append time are byte-identical to the values re-parsed at verify time
// (ints become float64, structs become sorted maps, and so on).
func normalizeData(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode entry data: %w", err)
	}

	normalized := make(map[string]any, len(data))
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, fmt.Errorf("normalize entry data: %w", err)
	}

	return normalized, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
