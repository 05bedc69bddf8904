// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wardvault/wardvault/internal/logger"
	"github.com/wardvault/wardvault/models"
)

// documentRepository is the SQLite-backed implementation of
// [DocumentRepository].
type documentRepository struct {
	db     *DB
	logger *logger.Logger
}

// NewDocumentRepository constructs a [DocumentRepository] backed by the
// provided database connection and logger.
func NewDocumentRepository(db *DB, logger *logger.Logger) DocumentRepository {
	logger.Debug().Msg("creating document repository")
	return &documentRepository{
		db:     db,
		logger: logger,
	}
}

// CreateDocument implements [DocumentRepository]. Only identity fields
// are written; location and size arrive later via MarkPersisted, after
// the ciphertext actually landed.
func (r *documentRepository) CreateDocument(ctx context.Context, doc models.Document) error {
	log := logger.FromContext(ctx)

	if _, err := r.db.ExecContext(ctx, insertDocument,
		doc.DocumentID, doc.PatientID, doc.KeyOwner, doc.OriginalFilename); err != nil {
		log.Err(err).Str("func", "*documentRepository.CreateDocument").Msg("error: inserting document")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	return nil
}

// MarkPersisted implements [DocumentRepository]. It records the final
// ciphertext locations, size, base nonce, and extraction confidence.
func (r *documentRepository) MarkPersisted(ctx context.Context, doc models.Document) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, markDocumentPersisted,
		doc.FilePath, doc.TextPath, doc.FileSize, doc.BaseNonce, doc.Confidence, doc.DocumentID)
	if err != nil {
		log.Err(err).Str("func", "*documentRepository.MarkPersisted").Msg("error: updating document")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unexpected DB error: %w", err)
	}
	if affected == 0 {
		return ErrDocumentNotFound
	}

	return nil
}

// DeleteDocument implements [DocumentRepository]. Used to roll back a
// metadata row whose pipeline run did not reach a durable state.
func (r *documentRepository) DeleteDocument(ctx context.Context, documentID string) error {
	log := logger.FromContext(ctx)

	if _, err := r.db.ExecContext(ctx, deleteDocument, documentID); err != nil {
		log.Err(err).Str("func", "*documentRepository.DeleteDocument").Msg("error: deleting document")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	return nil
}

// FindDocument implements [DocumentRepository].
func (r *documentRepository) FindDocument(ctx context.Context, documentID string) (models.Document, error) {
	row := r.db.QueryRowContext(ctx, findDocument, documentID)

	doc, err := scanDocument(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Document{}, ErrDocumentNotFound
		}
		return models.Document{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return doc, nil
}

// ListPersisted implements [DocumentRepository]. It returns every
// document that reached durable storage, for the integrity scan and
// backup paths.
func (r *documentRepository) ListPersisted(ctx context.Context) ([]models.Document, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, listPersistedDocuments)
	if err != nil {
		log.Err(err).Str("func", "*documentRepository.ListPersisted").Msg("error: querying documents")
		return nil, fmt.Errorf("unexpected DB error: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("unexpected DB error: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unexpected DB error: %w", err)
	}

	return docs, nil
}

func scanDocument(scan func(dest ...any) error) (models.Document, error) {
	var doc models.Document
	err := scan(
		&doc.DocumentID, &doc.PatientID, &doc.KeyOwner, &doc.OriginalFilename,
		&doc.FilePath, &doc.TextPath, &doc.FileSize, &doc.BaseNonce,
		&doc.Confidence, &doc.CreatedAt,
	)
	return doc, err
}
