// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package store

import "errors"

// Sentinel errors returned by repository methods. Callers match them
// with [errors.Is].
var (
	// ErrDocumentNotFound is returned when a query targets a document
	// record that does not exist.
	ErrDocumentNotFound = errors.New("document was not found")

	// ErrKeyNotFound is returned when a subject has no stored key and
	// the caller did not ask for one to be created.
	ErrKeyNotFound = errors.New("subject key was not found")
)
