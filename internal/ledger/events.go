// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package ledger

// Event names recorded by wardvault. Document and security events carry
// their own prefixes so log consumers can filter by family.
const (
	EventLogInitialized = "LOG_INITIALIZED"

	EventDocumentUploaded  = "DOCUMENT_UPLOADED"
	EventDocumentFailed    = "DOCUMENT_PROCESSING_FAILED"
	EventDocumentDecrypted = "DOCUMENT_DECRYPTED"

	EventSecurityBackup         = "SECURITY_BACKUP_CREATED"
	EventSecurityIntegrityCheck = "SECURITY_INTEGRITY_CHECK"
	EventSecurityShredRequested = "SECURITY_SHRED_REQUESTED"
)

// AppendDocumentEvent records one document-family event.
func (l *Ledger) AppendDocumentEvent(event string, actor Actor, data map[string]any) (string, error) {
	return l.Append(event, actor, data)
}

// AppendSecurityEvent records one security-family event with no acting
// user.
func (l *Ledger) AppendSecurityEvent(event string, data map[string]any) (string, error) {
	return l.Append(event, System, data)
}
