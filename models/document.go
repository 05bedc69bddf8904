// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package models

import "time"

// Document is the metadata record for one stored, encrypted document.
// The ciphertext itself lives on the filesystem; only locations, sizes,
// and processing results are kept here. Plaintext content never enters
// this struct.
type Document struct {
	// DocumentID is the external identifier (UUID string).
	DocumentID string `json:"document_id"`

	// PatientID identifies the patient the document belongs to.
	PatientID int64 `json:"patient_id"`

	// KeyOwner is the subject whose encryption key sealed this
	// document.
	KeyOwner int64 `json:"-"`

	// OriginalFilename is the name the document was uploaded under.
	// Informational only; storage paths never derive from it.
	OriginalFilename string `json:"original_filename"`

	// FilePath is the final location of the encrypted document blob.
	FilePath string `json:"-"`

	// TextPath is the final location of the encrypted extracted-text
	// blob.
	TextPath string `json:"-"`

	// FileSize is the encrypted document blob size in bytes, recorded
	// at persist time and checked by the storage integrity scan.
	FileSize int64 `json:"file_size"`

	// BaseNonce is the 12-byte base nonce both of the document's
	// cipher streams were derived from.
	BaseNonce []byte `json:"-"`

	// Confidence is the extraction confidence in [0,100]; zero when
	// extraction degraded or produced nothing.
	Confidence float64 `json:"confidence"`

	// CreatedAt is when the document reached durable storage.
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table associated with the Document
// model.
func (d Document) TableName() string {
	return "documents"
}
