// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package store

import (
	"context"

	"github.com/wardvault/wardvault/models"
)

// KeyRepository manages the one-key-per-subject store. Keys are
// generated lazily on first need and destroyed only by the emergency
// shredder.
type KeyRepository interface {
	// GetOrCreateKey returns the subject's 256-bit key, generating and
	// persisting one atomically when none exists. Concurrent calls for
	// the same subject observe the same key.
	GetOrCreateKey(ctx context.Context, subjectID int64) ([]byte, error)

	// DestroyKeys renders every stored key unrecoverable: each row is
	// overwritten with random bytes before deletion. Returns the number
	// of keys destroyed.
	DestroyKeys(ctx context.Context) (int, error)
}

// DocumentRepository persists document metadata through the pipeline's
// lifecycle: a row is created when processing starts and marked
// persisted only after the ciphertext reached its final location.
type DocumentRepository interface {
	CreateDocument(ctx context.Context, doc models.Document) error
	MarkPersisted(ctx context.Context, doc models.Document) error
	DeleteDocument(ctx context.Context, documentID string) error
	FindDocument(ctx context.Context, documentID string) (models.Document, error)
	ListPersisted(ctx context.Context) ([]models.Document, error)
}
