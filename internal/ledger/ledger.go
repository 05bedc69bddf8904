// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

// Package ledger implements the append-only, hash-chained audit log.
//
// Every security-relevant action in wardvault is recorded as one JSONL
// entry whose hash covers the previous entry's hash, so any retroactive
// edit, deletion, or reordering is detectable by [Ledger.Verify]. Appends
// are serialized behind a single writer lock; verification and tail reads
// run under a shared lock.
package ledger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wardvault/wardvault/internal/logger"
)

// ErrAppendFailed wraps storage-level failures of Append. A caller whose
// audited action could not be recorded must treat that action as having
// failed.
var ErrAppendFailed = errors.New("ledger append failed")

// maxLineSize bounds a single ledger line during recovery and verify.
// Entries are small; 1 MiB leaves generous headroom for context maps.
const maxLineSize = 1 << 20

// Ledger is the tamper-evident audit log. Construct exactly one per
// process with [Open] and hand it by reference to every component that
// needs to record events; there is no process-global instance.
type Ledger struct {
	path string
	log  *logger.Logger

	mu       sync.RWMutex
	file     *os.File
	nextID   uint64
	lastHash string

	// recovered holds discrepancies found while opening (currently only
	// a lost tail after a torn write).
	recovered []Discrepancy
}

// Open loads the ledger at path, creating it with a genesis entry when it
// does not exist. A malformed final line (torn write from a crash or
// power loss) is treated as a lost tail: it is recorded as a Discrepancy,
// logged, and the chain tail is re-derived from the last well-formed
// entry. The torn bytes stay in place — the storage medium is
// append-only — and a newline is appended so later entries start clean.
func Open(path string, log *logger.Logger) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	l := &Ledger{
		path:     path,
		log:      log,
		lastHash: ZeroHash,
	}

	if err := l.recoverTail(); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open ledger for append: %w", err)
	}
	l.file = file

	if l.nextID == 0 && l.lastHash == ZeroHash {
		if err := l.writeGenesis(); err != nil {
			file.Close()
			return nil, err
		}
	}

	return l, nil
}

// recoverTail scans the existing file, deriving nextID and lastHash from
// the last well-formed entry and noting a lost tail when trailing bytes
// do not parse.
func (l *Ledger) recoverTail() error {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open ledger for recovery: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64<<10), maxLineSize)

	line := 0
	torn := false
	tornLine := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			// A malformed line is only a lost tail when nothing valid
			// follows it; mid-file damage is Verify's business.
			torn = true
			tornLine = line
			continue
		}

		torn = false
		l.nextID = entry.EntryID + 1
		l.lastHash = entry.Hash
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan ledger: %w", err)
	}

	if torn {
		l.recovered = append(l.recovered, Discrepancy{
			Line: tornLine,
			Kind: KindLostTail,
		})
		l.log.Warn().Str("path", l.path).Int("line", tornLine).
			Msg("ledger tail lost to a torn write; resuming from last well-formed entry")
		// Terminate the torn line so the next append starts on a fresh
		// line. A bare newline is legal on append-only storage.
		if err := l.terminateTornLine(); err != nil {
			return err
		}
	}

	return nil
}

func (l *Ledger) terminateTornLine() error {
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open ledger to terminate torn line: %w", err)
	}
	defer file.Close()

	if _, err := file.Write([]byte("\n")); err != nil {
		return fmt.Errorf("terminate torn line: %w", err)
	}
	return nil
}

func (l *Ledger) writeGenesis() error {
	genesis := Entry{
		EntryID:      0,
		Timestamp:    formatTimestamp(time.Now()),
		Event:        EventLogInitialized,
		Data:         map[string]any{"version": "1.0"},
		PreviousHash: ZeroHash,
	}

	hash, err := computeHash(genesis)
	if err != nil {
		return err
	}
	genesis.Hash = hash

	if err := l.writeEntry(genesis); err != nil {
		return err
	}

	l.nextID = 1
	l.lastHash = hash
	l.log.Info().Str("path", l.path).Msg("ledger initialized with genesis entry")
	return nil
}

// Append records one event and returns the new entry's hash. It is the
// only mutator: it reads the current tail hash, builds the entry, hashes
// its canonical encoding, and durably appends entry plus newline as a
// single write followed by fsync. On any storage failure the in-memory
// tail is left untouched, a best-effort truncate removes partial bytes,
// and the returned error wraps [ErrAppendFailed] — the caller must treat
// the audited action as not having happened.
func (l *Ledger) Append(event string, actor Actor, data map[string]any) (string, error) {
	normalized, err := normalizeData(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAppendFailed, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		EntryID:      l.nextID,
		Timestamp:    formatTimestamp(time.Now()),
		Event:        event,
		UserID:       actor.UserID,
		IPAddress:    optionalString(actor.IPAddress),
		UserAgent:    optionalString(actor.UserAgent),
		Data:         normalized,
		PreviousHash: l.lastHash,
	}

	hash, err := computeHash(entry)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAppendFailed, err)
	}
	entry.Hash = hash

	if err := l.writeEntry(entry); err != nil {
		return "", fmt.Errorf("%w: %w", ErrAppendFailed, err)
	}

	l.nextID = entry.EntryID + 1
	l.lastHash = hash
	return hash, nil
}

// writeEntry appends one entry as a single write and syncs. On failure it
// truncates back to the pre-write size so no half-written entry survives
// (best effort: truncation is impossible once the medium is sealed
// append-only, in which case recovery treats the partial line as a lost
// tail on next open).
func (l *Ledger) writeEntry(entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	info, err := l.file.Stat()
	if err != nil {
		return fmt.Errorf("stat ledger: %w", err)
	}
	sizeBefore := info.Size()

	line := append(raw, '\n')
	if _, err := l.file.Write(line); err != nil {
		l.rollback(sizeBefore)
		return fmt.Errorf("write entry: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		l.rollback(sizeBefore)
		return fmt.Errorf("sync ledger: %w", err)
	}

	return nil
}

func (l *Ledger) rollback(size int64) {
	if err := l.file.Truncate(size); err != nil {
		l.log.Error().Err(err).Int64("size", size).
			Msg("could not roll back partial ledger write; next open will recover the tail")
	}
}

// LastHash returns the hash of the most recent entry.
func (l *Ledger) LastHash() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastHash
}

// NextID returns the sequence number the next appended entry will get.
func (l *Ledger) NextID() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nextID
}

// Recovered returns discrepancies detected while opening the ledger.
func (l *Ledger) Recovered() []Discrepancy {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.recovered
}

// Close releases the underlying file handle.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
