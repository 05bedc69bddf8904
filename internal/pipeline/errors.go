// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package pipeline

import "fmt"

// FailureReason is the closed set of reasons a pipeline run can fail.
// The reason is recorded verbatim in the run's ledger entry.
type FailureReason string

const (
	// ReasonUnsupportedFormat: the content sniff did not match the
	// allow-list. Declared extensions and MIME types are ignored.
	ReasonUnsupportedFormat FailureReason = "unsupported_format"

	// ReasonConversionFailure: normalization of the input failed.
	ReasonConversionFailure FailureReason = "conversion_failure"

	// ReasonEncryptionFailure: sealing either output stream failed.
	ReasonEncryptionFailure FailureReason = "encryption_failure"

	// ReasonStorageFailure: metadata write or the final rename failed.
	ReasonStorageFailure FailureReason = "storage_failure"

	// ReasonAuditFailure: the success-path ledger append failed, so the
	// whole operation was rolled back. An unaudited change did not
	// happen.
	ReasonAuditFailure FailureReason = "audit_failure"
)

// Degraded-extraction reasons. These do not fail the run; the document
// persists with confidence zero and the reason in its ledger entry.
const (
	DegradedExtractionTimeout = "extraction_timeout"
	DegradedExtractionFailure = "extraction_failure"
)

// Error is the failure result of a pipeline run.
type Error struct {
	Reason FailureReason
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
