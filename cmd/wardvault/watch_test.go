// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wardvault/wardvault/internal/logger"
	"github.com/wardvault/wardvault/internal/pipeline"
)

type fakeProcessor struct {
	processed []string
	failWith  error
}

func (f *fakeProcessor) Process(_ context.Context, up pipeline.Upload) (pipeline.Result, error) {
	f.processed = append(f.processed, up.Path)
	if f.failWith != nil {
		return pipeline.Result{}, f.failWith
	}
	return pipeline.Result{DocumentID: "doc-1"}, nil
}

func seedInbox(t *testing.T, patient, name string) (inbox, file string) {
	t.Helper()
	inbox = t.TempDir()
	dir := filepath.Join(inbox, patient)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatalf("create inbox folder: %v", err)
	}
	file = filepath.Join(dir, name)
	if err := os.WriteFile(file, []byte("scan bytes"), 0o600); err != nil {
		t.Fatalf("write inbox file: %v", err)
	}
	return inbox, file
}

func TestSweepInbox_ProcessedUploadRemoved(t *testing.T) {
	inbox, file := seedInbox(t, "12", "scan.jpg")
	proc := &fakeProcessor{}

	if err := sweepInbox(context.Background(), proc, logger.Nop(), inbox); err != nil {
		t.Fatalf("sweepInbox error: %v", err)
	}
	if len(proc.processed) != 1 || proc.processed[0] != file {
		t.Fatalf("processed %v, want exactly %s", proc.processed, file)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Fatal("processed upload left in the inbox")
	}
}

func TestSweepInbox_FailedUploadLeavesNoPlaintext(t *testing.T) {
	inbox, file := seedInbox(t, "12", "scan.jpg")
	proc := &fakeProcessor{failWith: &pipeline.Error{Reason: pipeline.ReasonUnsupportedFormat}}

	if err := sweepInbox(context.Background(), proc, logger.Nop(), inbox); err != nil {
		t.Fatalf("sweepInbox error: %v", err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Fatal("failed upload retained in the inbox")
	}
	entries, err := os.ReadDir(inbox)
	if err != nil {
		t.Fatalf("read inbox: %v", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			t.Fatalf("unexpected file in inbox after sweep: %s", e.Name())
		}
	}
}

func TestSweepInbox_NonNumericFolderSkipped(t *testing.T) {
	inbox, _ := seedInbox(t, "notes", "readme.txt")
	proc := &fakeProcessor{}

	if err := sweepInbox(context.Background(), proc, logger.Nop(), inbox); err != nil {
		t.Fatalf("sweepInbox error: %v", err)
	}
	if len(proc.processed) != 0 {
		t.Fatalf("files under a non-patient folder were processed: %v", proc.processed)
	}
	if _, err := os.Stat(filepath.Join(inbox, "notes", "readme.txt")); err != nil {
		t.Fatal("skipped folder contents must be left untouched")
	}
}

func TestSweepInbox_CancelledContextStops(t *testing.T) {
	inbox, file := seedInbox(t, "12", "scan.jpg")
	proc := &fakeProcessor{failWith: context.Canceled}

	err := sweepInbox(context.Background(), proc, logger.Nop(), inbox)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation to surface, got %v", err)
	}
	if _, serr := os.Stat(file); serr != nil {
		t.Fatal("an interrupted run must not discard the pending upload")
	}
}
