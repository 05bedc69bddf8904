// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func sniffFile(t *testing.T, content []byte) (Format, error) {
	t.Helper()
	// Deliberately misleading extension: only content may decide.
	path := filepath.Join(t.TempDir(), "upload.exe")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write sniff input: %v", err)
	}
	return NewContentSniffer().Detect(path)
}

func TestDetect_AllowedFormats(t *testing.T) {
	cases := []struct {
		name    string
		content []byte
		want    Format
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}, FormatJPEG},
		{"png", []byte("\x89PNG\r\n\x1a\n rest"), FormatPNG},
		{"bmp", []byte("BM\x00\x00\x00\x00 rest"), FormatBMP},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), FormatWebP},
		{"pdf", []byte("%PDF-1.4 rest"), FormatPDF},
		{"tiff little endian", []byte("II*\x00 rest"), FormatTIFF},
		{"tiff big endian", []byte("MM\x00* rest"), FormatTIFF},
		{"heic", []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00"), FormatHEIF},
		{"heif mif1", []byte("\x00\x00\x00\x18ftypmif1\x00\x00\x00\x00"), FormatHEIF},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sniffFile(t, tc.content)
			if err != nil {
				t.Fatalf("Detect error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Detect = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDetect_RejectsOffList(t *testing.T) {
	cases := []struct {
		name    string
		content []byte
	}{
		{"plain text", []byte("just some notes about a patient")},
		{"zip", []byte("PK\x03\x04 archive bytes")},
		{"html", []byte("<!DOCTYPE html><html></html>")},
		{"empty", nil},
		{"mp4 ftyp", []byte("\x00\x00\x00\x18ftypisom\x00\x00\x00\x00")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sniffFile(t, tc.content)
			if !errors.Is(err, ErrUnsupportedType) {
				t.Fatalf("expected ErrUnsupportedType, got %v", err)
			}
		})
	}
}
