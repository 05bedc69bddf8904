// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package store

const (
	findSubjectKey = `SELECT subject_id, file_key, created_at
		FROM subject_keys
		WHERE subject_id = ?;`

	insertSubjectKey = `INSERT INTO subject_keys (subject_id, file_key)
		VALUES (?, ?)
		ON CONFLICT (subject_id) DO NOTHING;`

	countSubjectKeys = `SELECT COUNT(*) FROM subject_keys;`

	overwriteSubjectKeys = `UPDATE subject_keys SET file_key = ?;`

	deleteSubjectKeys = `DELETE FROM subject_keys;`

	insertDocument = `INSERT INTO documents (document_id, patient_id, key_owner, original_filename)
		VALUES (?, ?, ?, ?);`

	markDocumentPersisted = `UPDATE documents
		SET file_path = ?, text_path = ?, file_size = ?, base_nonce = ?, confidence = ?
		WHERE document_id = ?;`

	deleteDocument = `DELETE FROM documents
		WHERE document_id = ?;`

	findDocument = `SELECT document_id, patient_id, key_owner, original_filename,
			file_path, text_path, file_size, base_nonce, confidence, created_at
		FROM documents
		WHERE document_id = ?;`

	listPersistedDocuments = `SELECT document_id, patient_id, key_owner, original_filename,
			file_path, text_path, file_size, base_nonce, confidence, created_at
		FROM documents
		WHERE file_path <> ''
		ORDER BY created_at;`
)
