// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

// Package shredder implements the emergency data destruction path:
// keys first, then the encrypted volume, then plaintext residue. Every
// step runs regardless of earlier failures and the caller always gets
// a full report; a shred must never die halfway and never panic.
package shredder

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/wardvault/wardvault/internal/ledger"
	"github.com/wardvault/wardvault/internal/logger"
)

// KeyDestroyer is the slice of the key store the shredder needs.
type KeyDestroyer interface {
	DestroyKeys(ctx context.Context) (int, error)
}

// AuditLog records the shred request before destruction begins.
type AuditLog interface {
	AppendSecurityEvent(event string, data map[string]any) (string, error)
}

// RequestSource identifies who asked for destruction.
type RequestSource string

const (
	// SourceTamper is the hardware tamper-detection circuit. Its word
	// is final; no confirmation applies.
	SourceTamper RequestSource = "tamper"

	// SourceOperator is a human request, which must be confirmed.
	SourceOperator RequestSource = "operator"
)

// Request is one destruction request arriving on the shredder's
// channel. Both the tamper circuit and operators speak this type.
type Request struct {
	Source    RequestSource
	Confirmed bool
	Reason    string
}

// Step names in execution order.
const (
	StepDestroyKeys    = "destroy_keys"
	StepDetachVolume   = "detach_volume"
	StepEraseHeader    = "erase_header"
	StepPurgePlaintext = "purge_plaintext"
)

// StepResult is the outcome of one shred step.
type StepResult struct {
	Step string

	// Skipped is set when the step's capability is unavailable on this
	// host, which is a configuration fact, not a shred failure.
	Skipped bool

	// Err is nil for a completed or skipped step.
	Err error

	// Detail is a human-readable note (e.g. number of keys destroyed).
	Detail string
}

// Report is the complete account of one shred run.
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepResult
}

// Complete reports whether every non-skipped step succeeded.
func (r Report) Complete() bool {
	for _, s := range r.Steps {
		if !s.Skipped && s.Err != nil {
			return false
		}
	}
	return true
}

// Shredder executes emergency destruction. It is constructed at boot
// and sits idle; nothing in the processing pipeline can trigger it.
type Shredder struct {
	keys    KeyDestroyer
	volumes VolumeManager
	audit   AuditLog

	// statePaths are plaintext locations purged in the final step:
	// the temp area, inbox, and any other configured residue.
	statePaths []string

	logger *logger.Logger
}

// NewShredder wires the shredder. audit may be nil when the ledger
// itself is being shredded.
func NewShredder(keys KeyDestroyer, volumes VolumeManager, audit AuditLog, statePaths []string, log *logger.Logger) *Shredder {
	log.Debug().Msg("creating emergency shredder")
	return &Shredder{
		keys:       keys,
		volumes:    volumes,
		audit:      audit,
		statePaths: statePaths,
		logger:     log,
	}
}

// Listen consumes destruction requests until ctx is cancelled or the
// channel closes. Tamper requests fire immediately; operator requests
// fire only when confirmed, otherwise they are refused and logged.
func (s *Shredder) Listen(ctx context.Context, requests <-chan Request) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			if req.Source == SourceOperator && !req.Confirmed {
				s.logger.Warn().Str("func", "*Shredder.Listen").Str("reason", req.Reason).
					Msg("unconfirmed operator shred request refused")
				continue
			}
			report := s.Shred(ctx, req)
			s.logger.Warn().Str("func", "*Shredder.Listen").
				Bool("complete", report.Complete()).
				Msg("emergency shred finished")
		}
	}
}

// Shred runs every destruction step in order and returns the report.
// It never panics; a panicking step is captured as that step's error
// and the remaining steps still run.
func (s *Shredder) Shred(ctx context.Context, req Request) Report {
	report := Report{StartedAt: time.Now().UTC()}

	// Best effort: get the request on the record before the record
	// itself may go away.
	if s.audit != nil {
		if _, err := s.audit.AppendSecurityEvent(ledger.EventSecurityShredRequested, map[string]any{
			"source": string(req.Source),
			"reason": req.Reason,
		}); err != nil {
			s.logger.Err(err).Str("func", "*Shredder.Shred").Msg("error: recording shred request")
		}
	}

	report.Steps = append(report.Steps, s.runStep(StepDestroyKeys, func() (string, error) {
		n, err := s.keys.DestroyKeys(ctx)
		return fmt.Sprintf("%d keys destroyed", n), err
	}))
	report.Steps = append(report.Steps, s.runStep(StepDetachVolume, func() (string, error) {
		return "", s.volumes.Detach(ctx)
	}))
	report.Steps = append(report.Steps, s.runStep(StepEraseHeader, func() (string, error) {
		return "", s.volumes.EraseHeader(ctx)
	}))
	report.Steps = append(report.Steps, s.runStep(StepPurgePlaintext, func() (string, error) {
		n, err := s.purgePlaintext()
		return fmt.Sprintf("%d files purged", n), err
	}))

	report.FinishedAt = time.Now().UTC()
	return report
}

func (s *Shredder) runStep(name string, fn func() (string, error)) (result StepResult) {
	result.Step = name
	defer func() {
		if p := recover(); p != nil {
			result.Err = fmt.Errorf("step panicked: %v", p)
		}
		switch {
		case result.Err == nil:
			s.logger.Warn().Str("step", name).Str("detail", result.Detail).Msg("shred step done")
		case errors.Is(result.Err, ErrUnavailable):
			result.Skipped = true
			result.Err = nil
			s.logger.Warn().Str("step", name).Msg("shred step skipped: capability unavailable")
		default:
			s.logger.Err(result.Err).Str("step", name).Msg("shred step failed; continuing")
		}
	}()

	result.Detail, result.Err = fn()
	return result
}

// purgePlaintext overwrites and removes every configured plaintext
// path. All paths are attempted; the first error is reported.
func (s *Shredder) purgePlaintext() (int, error) {
	var purged int
	var first error
	for _, root := range s.statePaths {
		n, err := purgeTree(root)
		purged += n
		if err != nil && first == nil {
			first = err
		}
	}
	return purged, first
}

// purgeTree overwrites each regular file under root with random bytes
// and removes the whole tree. A missing root counts as already purged.
func purgeTree(root string) (int, error) {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	files := 0
	if info.IsDir() {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, werr error) error {
			if werr != nil || !d.Type().IsRegular() {
				return werr
			}
			if oerr := overwriteFile(path); oerr != nil {
				return oerr
			}
			files++
			return nil
		})
	} else {
		err = overwriteFile(root)
		files = 1
	}
	if err != nil {
		return files, err
	}
	return files, os.RemoveAll(root)
}

// overwriteFile replaces the file's content with random bytes of the
// same length and syncs, so the old blocks are gone before the name is.
func overwriteFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	_, err = io.CopyN(f, rand.Reader, info.Size())
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
