// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

// Package pipeline runs uploaded documents through the fixed processing
// sequence: validate, normalize, extract text, encrypt, persist, audit.
// Every run ends in exactly one terminal state and leaves exactly one
// ledger entry behind.
package pipeline

// State names one stage of a pipeline run. States only ever advance;
// a run that cannot advance exits through Failed.
type State string

const (
	StateReceived  State = "received"
	StateValidated State = "validated"
	StateConverted State = "converted"
	StateExtracted State = "extracted"
	StateEncrypted State = "encrypted"
	StatePersisted State = "persisted"
	StateFailed    State = "failed"
)
