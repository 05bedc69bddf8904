// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/wardvault/wardvault/internal/logger"
)

// DocumentNormalizer is the production [Normalizer]. Images pass
// through untouched. PDFs are validated and trimmed to their first
// page; when that page carries an embedded scan image, the image is
// lifted out for the extraction engine, otherwise the trimmed PDF
// itself is handed on and extraction degrades.
type DocumentNormalizer struct {
	conf *model.Configuration
}

// NewDocumentNormalizer returns the standard normalizer. PDF parsing
// runs in relaxed validation mode; scanner output is rarely pristine.
func NewDocumentNormalizer() *DocumentNormalizer {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &DocumentNormalizer{conf: conf}
}

// Normalize implements [Normalizer].
func (n *DocumentNormalizer) Normalize(ctx context.Context, srcPath string, format Format, workDir string) (string, error) {
	if format != FormatPDF {
		return srcPath, nil
	}
	return n.normalizePDF(ctx, srcPath, workDir)
}

func (n *DocumentNormalizer) normalizePDF(ctx context.Context, srcPath, workDir string) (string, error) {
	log := logger.FromContext(ctx)

	firstPage := filepath.Join(workDir, "page1.pdf")
	if err := api.TrimFile(srcPath, firstPage, []string{"1"}, n.conf); err != nil {
		return "", fmt.Errorf("trim pdf to first page: %w", err)
	}

	imgDir := filepath.Join(workDir, "pdfimg")
	if err := os.MkdirAll(imgDir, 0o700); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	if err := api.ExtractImagesFile(firstPage, imgDir, []string{"1"}, n.conf); err != nil {
		log.Debug().Err(err).Str("func", "*DocumentNormalizer.Normalize").Msg("no extractable page image")
		return firstPage, nil
	}

	entries, err := os.ReadDir(imgDir)
	if err != nil {
		return "", fmt.Errorf("list extracted images: %w", err)
	}
	if len(entries) == 0 {
		return firstPage, nil
	}
	return filepath.Join(imgDir, entries[0].Name()), nil
}
