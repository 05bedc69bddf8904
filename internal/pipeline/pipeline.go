// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/wardvault/wardvault/internal/config"
	"github.com/wardvault/wardvault/internal/crypto"
	"github.com/wardvault/wardvault/internal/ledger"
	"github.com/wardvault/wardvault/internal/logger"
	"github.com/wardvault/wardvault/internal/storage"
	"github.com/wardvault/wardvault/internal/store"
	"github.com/wardvault/wardvault/models"
)

// AuditLog is the slice of the ledger the pipeline writes to.
type AuditLog interface {
	AppendDocumentEvent(event string, actor ledger.Actor, data map[string]any) (string, error)
}

// Upload is one document handed to the pipeline.
type Upload struct {
	// Path is the uploaded file in the inbox or temp area.
	Path string

	// Filename is the name the file arrived under. Informational only.
	Filename string

	// PatientID is the patient the document belongs to.
	PatientID int64

	// KeyOwner is the subject whose key seals the document. Usually the
	// patient, but guardianship cases differ.
	KeyOwner int64

	// Actor is recorded in the run's ledger entry.
	Actor ledger.Actor
}

// Result is the outcome of a successful run.
type Result struct {
	DocumentID string
	Confidence float64

	// Searchable reports whether extraction produced usable text.
	Searchable bool
}

// Orchestrator drives one upload through the full state machine. Runs
// are sequential on single-core hardware; the type itself is safe for
// concurrent use because every run keeps its state on the stack.
type Orchestrator struct {
	detector   TypeDetector
	normalizer Normalizer
	extractor  Extractor
	keys       KeyProvider
	docs       store.DocumentRepository
	files      *storage.Manager
	audit      AuditLog
	budget     config.Budget
	logger     *logger.Logger
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Detector   TypeDetector
	Normalizer Normalizer
	Extractor  Extractor
	Keys       KeyProvider
	Documents  store.DocumentRepository
	Files      *storage.Manager
	Audit      AuditLog
	Budget     config.Budget
	Logger     *logger.Logger
}

// NewOrchestrator wires the pipeline.
func NewOrchestrator(d Deps) *Orchestrator {
	d.Logger.Debug().Msg("creating pipeline orchestrator")
	return &Orchestrator{
		detector:   d.Detector,
		normalizer: d.Normalizer,
		extractor:  d.Extractor,
		keys:       d.Keys,
		docs:       d.Documents,
		files:      d.Files,
		audit:      d.Audit,
		budget:     d.Budget,
		logger:     d.Logger,
	}
}

// Process runs one upload to a terminal state. On success the document
// and its extracted text are encrypted on disk, metadata is persisted,
// and one DOCUMENT_UPLOADED ledger entry exists. On failure nothing of
// the document remains and one DOCUMENT_PROCESSING_FAILED entry exists.
// Either way the temp area is left clean.
func (o *Orchestrator) Process(ctx context.Context, up Upload) (Result, error) {
	log := &logger.Logger{Logger: o.logger.With().Str("filename", up.Filename).Int64("patient_id", up.PatientID).Logger()}
	ctx = log.WithContext(ctx)

	documentID := uuid.NewString()
	state := StateReceived

	workDir, err := os.MkdirTemp(o.files.TempDir(), "run-")
	if err != nil {
		return Result{}, o.fail(ctx, up, documentID, false, ReasonStorageFailure, err)
	}
	defer os.RemoveAll(workDir)

	// Validated: the content sniff is the only gate.
	format, err := o.detector.Detect(up.Path)
	if err != nil {
		reason := ReasonStorageFailure
		if errors.Is(err, ErrUnsupportedType) {
			reason = ReasonUnsupportedFormat
		}
		return Result{}, o.fail(ctx, up, documentID, false, reason, err)
	}
	state = StateValidated

	if err := o.docs.CreateDocument(ctx, models.Document{
		DocumentID:       documentID,
		PatientID:        up.PatientID,
		KeyOwner:         up.KeyOwner,
		OriginalFilename: up.Filename,
	}); err != nil {
		return Result{}, o.fail(ctx, up, documentID, false, ReasonStorageFailure, err)
	}

	// Converted.
	page, err := o.normalizer.Normalize(ctx, up.Path, format, workDir)
	if err != nil {
		return Result{}, o.fail(ctx, up, documentID, true, ReasonConversionFailure, err)
	}
	state = StateConverted

	// Extracted: bounded, degrading. A timeout or engine failure never
	// fails the document; it persists unsearchable with confidence 0.
	extracted, degraded := o.extract(ctx, page)
	state = StateExtracted

	// Encrypted: both streams under one fresh base nonce, distinct
	// index spaces, bounded by the budget's encryption ceiling.
	key, err := o.keys.GetOrCreateKey(ctx, up.KeyOwner)
	if err != nil {
		return Result{}, o.fail(ctx, up, documentID, true, ReasonEncryptionFailure, err)
	}
	cipher, err := crypto.NewChunkedCipher(key, o.budget.ChunkSize)
	if err != nil {
		return Result{}, o.fail(ctx, up, documentID, true, ReasonEncryptionFailure, err)
	}
	base, err := crypto.NewBaseNonce()
	if err != nil {
		return Result{}, o.fail(ctx, up, documentID, true, ReasonEncryptionFailure, err)
	}

	ectx, cancelEnc := context.WithTimeout(ctx, o.budget.EncryptionTimeout.Std())
	defer cancelEnc()

	// The converted artifact is what the vault stores: it is the form
	// extraction saw, and on this hardware the raw multi-page upload
	// has no retention claim past this run.
	tmpBlob := filepath.Join(workDir, documentID+".enc")
	if err := encryptFile(ectx, cipher, page, tmpBlob, base, crypto.SpaceDocument); err != nil {
		return Result{}, o.fail(ctx, up, documentID, true, ReasonEncryptionFailure, err)
	}
	tmpText := filepath.Join(workDir, documentID+".txt.enc")
	if err := encryptBytes(ectx, cipher, []byte(extracted.Text), tmpText, base, crypto.SpaceText); err != nil {
		return Result{}, o.fail(ctx, up, documentID, true, ReasonEncryptionFailure, err)
	}
	state = StateEncrypted

	// Persisted: rename into the patient folder, then complete the row.
	blobPath, textPath, err := o.files.PersistDocument(ctx, up.PatientID, documentID, tmpBlob, tmpText)
	if err != nil {
		return Result{}, o.fail(ctx, up, documentID, true, ReasonStorageFailure, err)
	}
	info, err := os.Stat(blobPath)
	if err != nil {
		o.files.RemovePersisted(blobPath, textPath)
		return Result{}, o.fail(ctx, up, documentID, true, ReasonStorageFailure, err)
	}
	if err := o.docs.MarkPersisted(ctx, models.Document{
		DocumentID: documentID,
		FilePath:   blobPath,
		TextPath:   textPath,
		FileSize:   info.Size(),
		BaseNonce:  base[:],
		Confidence: extracted.Confidence,
	}); err != nil {
		o.files.RemovePersisted(blobPath, textPath)
		return Result{}, o.fail(ctx, up, documentID, true, ReasonStorageFailure, err)
	}
	state = StatePersisted

	searchable := extracted.Text != "" && extracted.Confidence > 0

	data := map[string]any{
		"document_id": documentID,
		"patient_id":  up.PatientID,
		"filename":    up.Filename,
		"confidence":  extracted.Confidence,
		"searchable":  searchable,
	}
	if degraded != "" {
		data["degraded"] = degraded
	}
	if _, err := o.audit.AppendDocumentEvent(ledger.EventDocumentUploaded, up.Actor, data); err != nil {
		// An unaudited change did not happen: undo the persist. No
		// failure entry is attempted either; the audit log is down.
		log.Err(err).Str("func", "*Orchestrator.Process").Msg("error: audit append failed, rolling back")
		if rerr := o.files.RemovePersisted(blobPath, textPath); rerr != nil {
			log.Err(rerr).Str("func", "*Orchestrator.Process").Msg("error: rolling back persisted files")
		}
		if derr := o.docs.DeleteDocument(ctx, documentID); derr != nil {
			log.Err(derr).Str("func", "*Orchestrator.Process").Msg("error: rolling back document row")
		}
		return Result{}, &Error{Reason: ReasonAuditFailure, Err: err}
	}

	log.Info().Str("document_id", documentID).Str("state", string(state)).
		Float64("confidence", extracted.Confidence).Msg("document processed")
	return Result{
		DocumentID: documentID,
		Confidence: extracted.Confidence,
		Searchable: searchable,
	}, nil
}

// extract runs the engine under the budget's wall-clock ceiling and
// maps any failure to a degraded empty result.
func (o *Orchestrator) extract(ctx context.Context, path string) (ExtractResult, string) {
	log := logger.FromContext(ctx)

	ectx, cancel := context.WithTimeout(ctx, o.budget.OCRTimeout.Std())
	defer cancel()

	res, err := o.extractor.Extract(ectx, path)
	if err != nil {
		reason := DegradedExtractionFailure
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ectx.Err(), context.DeadlineExceeded) {
			reason = DegradedExtractionTimeout
		}
		log.Warn().Err(err).Str("func", "*Orchestrator.extract").Str("reason", reason).
			Msg("extraction degraded")
		return ExtractResult{}, reason
	}
	return res, ""
}

// fail is the single failure exit: best-effort metadata rollback, one
// ledger entry, a typed error back to the caller.
func (o *Orchestrator) fail(ctx context.Context, up Upload, documentID string, rowExists bool, reason FailureReason, cause error) error {
	log := logger.FromContext(ctx)

	if rowExists {
		if err := o.docs.DeleteDocument(ctx, documentID); err != nil {
			log.Err(err).Str("func", "*Orchestrator.fail").Msg("error: removing document row")
		}
	}

	data := map[string]any{
		"document_id": documentID,
		"patient_id":  up.PatientID,
		"filename":    up.Filename,
		"reason":      string(reason),
	}
	if cause != nil {
		data["error"] = cause.Error()
	}
	if _, err := o.audit.AppendDocumentEvent(ledger.EventDocumentFailed, up.Actor, data); err != nil {
		log.Err(err).Str("func", "*Orchestrator.fail").Msg("error: recording failure event")
	}

	return &Error{Reason: reason, Err: cause}
}

func encryptFile(ctx context.Context, cipher *crypto.ChunkedCipher, srcPath, dstPath string, base [crypto.NonceSize]byte, space crypto.StreamSpace) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open plaintext: %w", err)
	}
	defer src.Close()
	return encryptReader(ctx, cipher, src, dstPath, base, space)
}

func encryptBytes(ctx context.Context, cipher *crypto.ChunkedCipher, plaintext []byte, dstPath string, base [crypto.NonceSize]byte, space crypto.StreamSpace) error {
	return encryptReader(ctx, cipher, bytes.NewReader(plaintext), dstPath, base, space)
}

func encryptReader(ctx context.Context, cipher *crypto.ChunkedCipher, src io.Reader, dstPath string, base [crypto.NonceSize]byte, space crypto.StreamSpace) error {
	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create ciphertext: %w", err)
	}
	_, _, err = cipher.EncryptStream(dst, ctxReader{ctx: ctx, r: src}, base, space)
	if err == nil {
		err = dst.Sync()
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	return err
}

// ctxReader makes a blocking or long stream honor the context deadline
// between chunk reads.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
