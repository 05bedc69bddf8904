// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package pipeline

import "context"

// Format is a sniffed document format from the allow-list.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatTIFF Format = "tiff"
	FormatBMP  Format = "bmp"
	FormatWebP Format = "webp"
	FormatHEIF Format = "heif"
	FormatPDF  Format = "pdf"
)

// TypeDetector decides whether a file's content is an allowed format.
// Detection must look at bytes, never at names or declared types.
type TypeDetector interface {
	Detect(path string) (Format, error)
}

// Normalizer converts a validated input into the form the extraction
// engine consumes, writing any produced file under workDir. It may
// return the source path unchanged when no conversion is needed.
type Normalizer interface {
	Normalize(ctx context.Context, srcPath string, format Format, workDir string) (string, error)
}

// ExtractResult is what the extraction engine recovered from one page.
type ExtractResult struct {
	// Text is the recognized text, empty when nothing was found.
	Text string

	// Confidence is the engine's mean word confidence in [0,100].
	Confidence float64
}

// Extractor runs bounded text extraction on a normalized page. The
// orchestrator imposes the wall-clock deadline through ctx; the
// implementation imposes the memory ceiling.
type Extractor interface {
	Extract(ctx context.Context, path string) (ExtractResult, error)
}

// KeyProvider resolves the encryption key for a subject, creating one
// on first use.
type KeyProvider interface {
	GetOrCreateKey(ctx context.Context, subjectID int64) ([]byte, error)
}
