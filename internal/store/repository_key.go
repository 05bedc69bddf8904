// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/wardvault/wardvault/internal/crypto"
	"github.com/wardvault/wardvault/internal/logger"
)

// keyRepository is the SQLite-backed implementation of [KeyRepository].
//
// The check-and-generate sequence is made atomic per subject two ways:
// a singleflight group collapses concurrent in-process calls for the
// same subject into one execution, and the INSERT uses ON CONFLICT DO
// NOTHING followed by a re-read so that even an external writer racing
// us cannot produce two different keys.
type keyRepository struct {
	db     *DB
	logger *logger.Logger
	group  singleflight.Group
}

// NewKeyRepository constructs a [KeyRepository] backed by the provided
// database connection and logger.
func NewKeyRepository(db *DB, logger *logger.Logger) KeyRepository {
	logger.Debug().Msg("creating subject key repository")
	return &keyRepository{
		db:     db,
		logger: logger,
	}
}

// GetOrCreateKey implements [KeyRepository].
func (r *keyRepository) GetOrCreateKey(ctx context.Context, subjectID int64) ([]byte, error) {
	v, err, _ := r.group.Do(strconv.FormatInt(subjectID, 10), func() (any, error) {
		return r.getOrCreate(ctx, subjectID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (r *keyRepository) getOrCreate(ctx context.Context, subjectID int64) ([]byte, error) {
	log := logger.FromContext(ctx)

	key, err := r.find(ctx, subjectID)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}

	fresh, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate subject key: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, insertSubjectKey, subjectID, fresh); err != nil {
		log.Err(err).Str("func", "*keyRepository.GetOrCreateKey").Msg("error: inserting subject key")
		return nil, fmt.Errorf("unexpected DB error: %w", err)
	}

	// Re-read rather than trusting our insert: if another writer won
	// the conflict, its key is the canonical one.
	key, err = r.find(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return key, nil
}

func (r *keyRepository) find(ctx context.Context, subjectID int64) ([]byte, error) {
	row := r.db.QueryRowContext(ctx, findSubjectKey, subjectID)

	var id int64
	var key []byte
	var createdAt sql.NullTime
	if err := row.Scan(&id, &key, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("unexpected DB error: %w", err)
	}

	if len(key) != crypto.KeySize {
		return nil, fmt.Errorf("stored key for subject %d has %d bytes, want %d", subjectID, len(key), crypto.KeySize)
	}
	return key, nil
}

// DestroyKeys implements [KeyRepository]. The overwrite-then-delete
// order matters: even if the DELETE fails or the database file is later
// recovered, the key bytes on the page are already random noise.
func (r *keyRepository) DestroyKeys(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)

	var count int
	if err := r.db.QueryRowContext(ctx, countSubjectKeys).Scan(&count); err != nil {
		return 0, fmt.Errorf("unexpected DB error: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	noise := make([]byte, crypto.KeySize)
	if _, err := io.ReadFull(rand.Reader, noise); err != nil {
		return 0, fmt.Errorf("generate overwrite noise: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, overwriteSubjectKeys, noise); err != nil {
		log.Err(err).Str("func", "*keyRepository.DestroyKeys").Msg("error: overwriting subject keys")
		return 0, fmt.Errorf("unexpected DB error: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, deleteSubjectKeys); err != nil {
		log.Err(err).Str("func", "*keyRepository.DestroyKeys").Msg("error: deleting subject keys")
		return 0, fmt.Errorf("unexpected DB error: %w", err)
	}

	return count, nil
}
