// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

// Package storage manages the encrypted document tree on disk: one
// folder per patient, ciphertext moved in by rename, an integrity scan
// against metadata, and encrypted backups of the whole tree.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wardvault/wardvault/internal/config"
	"github.com/wardvault/wardvault/internal/logger"
)

// Manager owns the on-disk layout under the configured data directory.
// The temp directory must live on the same filesystem as the data
// directory so persistence is a rename, never a copy.
type Manager struct {
	cfg       config.Documents
	chunkSize int
	logger    *logger.Logger
}

// NewManager constructs a Manager over the configured directory layout.
// chunkSize is the system-wide cipher chunk size from the resource
// budget, used by the backup path.
func NewManager(cfg config.Documents, chunkSize int, log *logger.Logger) *Manager {
	log.Debug().Msg("creating storage manager")
	return &Manager{
		cfg:       cfg,
		chunkSize: chunkSize,
		logger:    log,
	}
}

// EnsureDirs creates the data, temp, and backup directories with owner-only
// permissions.
func (m *Manager) EnsureDirs() error {
	for _, dir := range []string{m.cfg.DataDir, m.cfg.TempDir, m.cfg.BackupDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create storage directory %s: %w", dir, err)
		}
	}
	return nil
}

// TempDir returns the scratch directory for in-flight pipeline files.
func (m *Manager) TempDir() string {
	return m.cfg.TempDir
}

// PatientFolder returns (creating if necessary) the patient's folder.
// Folder names derive from the numeric patient ID only, never from
// uploaded filenames.
func (m *Manager) PatientFolder(patientID int64) (string, error) {
	dir := filepath.Join(m.cfg.DataDir, strconv.FormatInt(patientID, 10))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create patient folder: %w", err)
	}
	return dir, nil
}

// PersistDocument moves the encrypted document blob and its encrypted
// text sibling from the temp directory into the patient folder. Both
// moves are renames; if the second fails the first is undone so the
// patient folder never holds a half-persisted pair.
func (m *Manager) PersistDocument(ctx context.Context, patientID int64, documentID, tmpBlob, tmpText string) (blobPath, textPath string, err error) {
	log := logger.FromContext(ctx)

	dir, err := m.PatientFolder(patientID)
	if err != nil {
		return "", "", err
	}

	blobPath = filepath.Join(dir, documentID+".enc")
	textPath = filepath.Join(dir, documentID+".txt.enc")

	if err := os.Rename(tmpBlob, blobPath); err != nil {
		log.Err(err).Str("func", "*Manager.PersistDocument").Msg("error: moving document blob")
		return "", "", fmt.Errorf("persist document blob: %w", err)
	}
	if err := os.Rename(tmpText, textPath); err != nil {
		log.Err(err).Str("func", "*Manager.PersistDocument").Msg("error: moving text blob")
		if rerr := os.Rename(blobPath, tmpBlob); rerr != nil {
			log.Err(rerr).Str("func", "*Manager.PersistDocument").Msg("error: undoing blob move")
		}
		return "", "", fmt.Errorf("persist text blob: %w", err)
	}

	for _, p := range []string{blobPath, textPath} {
		if cerr := os.Chmod(p, 0o600); cerr != nil {
			log.Err(cerr).Str("func", "*Manager.PersistDocument").Msg("error: tightening file mode")
		}
	}

	return blobPath, textPath, nil
}

// RemovePersisted deletes a persisted pair, used when a later step of
// the same operation fails and the move must be rolled back. Missing
// files are not an error.
func (m *Manager) RemovePersisted(blobPath, textPath string) error {
	var first error
	for _, p := range []string{blobPath, textPath} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && first == nil {
			first = fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return first
}
