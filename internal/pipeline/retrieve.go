// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wardvault/wardvault/internal/crypto"
	"github.com/wardvault/wardvault/internal/ledger"
	"github.com/wardvault/wardvault/internal/logger"
)

// RetrieveResult names the decrypted files written by Retrieve.
type RetrieveResult struct {
	DocumentPath string
	TextPath     string
}

// Retrieve decrypts a stored document and its extracted text into
// dstDir and records the access in the ledger. Like the intake path,
// an access that cannot be audited is rolled back: the plaintext files
// are removed and the call fails.
func (o *Orchestrator) Retrieve(ctx context.Context, documentID string, actor ledger.Actor, dstDir string) (RetrieveResult, error) {
	log := logger.FromContext(ctx)

	doc, err := o.docs.FindDocument(ctx, documentID)
	if err != nil {
		return RetrieveResult{}, err
	}

	key, err := o.keys.GetOrCreateKey(ctx, doc.KeyOwner)
	if err != nil {
		return RetrieveResult{}, err
	}
	cipher, err := crypto.NewChunkedCipher(key, o.budget.ChunkSize)
	if err != nil {
		return RetrieveResult{}, err
	}

	if err := os.MkdirAll(dstDir, 0o700); err != nil {
		return RetrieveResult{}, fmt.Errorf("create retrieval dir: %w", err)
	}
	res := RetrieveResult{
		DocumentPath: filepath.Join(dstDir, documentID),
		TextPath:     filepath.Join(dstDir, documentID+".txt"),
	}

	if err := decryptFile(cipher, doc.FilePath, res.DocumentPath, crypto.SpaceDocument); err != nil {
		os.Remove(res.DocumentPath)
		return RetrieveResult{}, fmt.Errorf("decrypt document: %w", err)
	}
	if err := decryptFile(cipher, doc.TextPath, res.TextPath, crypto.SpaceText); err != nil {
		os.Remove(res.DocumentPath)
		os.Remove(res.TextPath)
		return RetrieveResult{}, fmt.Errorf("decrypt text: %w", err)
	}

	if _, err := o.audit.AppendDocumentEvent(ledger.EventDocumentDecrypted, actor, map[string]any{
		"document_id": documentID,
		"patient_id":  doc.PatientID,
	}); err != nil {
		log.Err(err).Str("func", "*Orchestrator.Retrieve").Msg("error: audit append failed, withdrawing plaintext")
		os.Remove(res.DocumentPath)
		os.Remove(res.TextPath)
		return RetrieveResult{}, &Error{Reason: ReasonAuditFailure, Err: err}
	}

	return res, nil
}

func decryptFile(cipher *crypto.ChunkedCipher, srcPath, dstPath string, space crypto.StreamSpace) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open ciphertext: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create plaintext: %w", err)
	}
	_, err = cipher.DecryptStream(dst, src, space)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	return err
}
