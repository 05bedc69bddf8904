// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package logger

import (
	"context"
	"testing"
)

func TestNewLogger_NotNil(t *testing.T) {
	l := NewLogger("test")
	if l == nil {
		t.Fatal("NewLogger returned nil")
	}
}

func TestNop_DiscardsOutput(t *testing.T) {
	l := Nop()
	// Must not panic and must accept any level.
	l.Debug().Msg("dropped")
	l.Error().Msg("dropped")
}

func TestContextRoundTrip(t *testing.T) {
	l := Nop()
	ctx := l.WithContext(context.Background())

	got := FromContext(ctx)
	if got == nil {
		t.Fatal("FromContext returned nil")
	}
}

func TestFromContext_NoLoggerAttached(t *testing.T) {
	got := FromContext(context.Background())
	if got == nil {
		t.Fatal("FromContext must fall back to the global logger")
	}
	got.Debug().Msg("must not panic")
}
