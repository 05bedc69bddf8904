// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package models

import "time"

// SubjectKey is one subject's 256-bit document encryption key. Exactly
// one exists per subject; it is generated on first need and destroyed
// only by the emergency shredder. The key is stored in the metadata
// database, never beside the ciphertext it protects.
type SubjectKey struct {
	// SubjectID identifies the owning subject (a user, or a synthetic
	// subject for backup operations).
	SubjectID int64 `json:"-"`

	// Key is the raw 32-byte AES-256 key. Never serialized.
	Key []byte `json:"-"`

	// CreatedAt is when the key was generated.
	CreatedAt time.Time `json:"-"`
}

// TableName returns the database table associated with the SubjectKey
// model.
func (k SubjectKey) TableName() string {
	return "subject_keys"
}
