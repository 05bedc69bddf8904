// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package storage

import (
	"context"
	"os"

	"github.com/wardvault/wardvault/internal/logger"
	"github.com/wardvault/wardvault/models"
)

// ProblemKind classifies one finding of the storage integrity scan.
type ProblemKind string

const (
	// KindMissingBlob reports a metadata row whose encrypted document
	// file is gone.
	KindMissingBlob ProblemKind = "missing_blob"

	// KindMissingText reports a metadata row whose encrypted text file
	// is gone.
	KindMissingText ProblemKind = "missing_text"

	// KindSizeMismatch reports a document blob whose on-disk size
	// differs from the size recorded at persist time.
	KindSizeMismatch ProblemKind = "size_mismatch"
)

// Problem is one integrity finding. Findings are data, not errors;
// the scan reports everything it sees and never stops early.
type Problem struct {
	Kind       ProblemKind
	DocumentID string
	Path       string
	WantSize   int64
	GotSize    int64
}

// VerifyStorage checks every persisted document's files against its
// metadata: both blobs present, document blob size as recorded. The
// scan is read-only.
func (m *Manager) VerifyStorage(ctx context.Context, docs []models.Document) []Problem {
	log := logger.FromContext(ctx)

	var problems []Problem
	for _, doc := range docs {
		info, err := os.Stat(doc.FilePath)
		switch {
		case err != nil:
			problems = append(problems, Problem{
				Kind:       KindMissingBlob,
				DocumentID: doc.DocumentID,
				Path:       doc.FilePath,
			})
		case info.Size() != doc.FileSize:
			problems = append(problems, Problem{
				Kind:       KindSizeMismatch,
				DocumentID: doc.DocumentID,
				Path:       doc.FilePath,
				WantSize:   doc.FileSize,
				GotSize:    info.Size(),
			})
		}

		if _, err := os.Stat(doc.TextPath); err != nil {
			problems = append(problems, Problem{
				Kind:       KindMissingText,
				DocumentID: doc.DocumentID,
				Path:       doc.TextPath,
			})
		}
	}

	log.Info().Str("func", "*Manager.VerifyStorage").
		Int("documents", len(docs)).
		Int("problems", len(problems)).
		Msg("storage integrity scan finished")
	return problems
}
