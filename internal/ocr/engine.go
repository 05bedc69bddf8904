// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

// Package ocr runs text extraction through an external tesseract
// process, bounded in both time (caller's context) and address space
// (prlimit on the worker when available). Keeping the engine out of
// process means an OCR crash or runaway page costs one worker, never
// the vault.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wardvault/wardvault/internal/logger"
	"github.com/wardvault/wardvault/internal/pipeline"
)

// ErrUnavailable reports that no tesseract binary is installed. The
// pipeline degrades extraction instead of failing the document.
var ErrUnavailable = errors.New("extraction engine unavailable")

// Engine is the production [pipeline.Extractor].
type Engine struct {
	binary      string
	prlimit     string
	languages   string
	memoryMB    int
	logger      *logger.Logger
	unavailable bool
}

// NewEngine probes for tesseract (and prlimit, for the memory ceiling)
// and returns the engine. A missing binary is not an error at
// construction time; every Extract call then returns ErrUnavailable.
func NewEngine(languages string, memoryMB int, log *logger.Logger) *Engine {
	e := &Engine{
		languages: languages,
		memoryMB:  memoryMB,
		logger:    log,
	}

	bin, err := exec.LookPath("tesseract")
	if err != nil {
		log.Warn().Str("func", "NewEngine").Msg("tesseract not found; extraction will degrade")
		e.unavailable = true
		return e
	}
	e.binary = bin

	if pr, err := exec.LookPath("prlimit"); err == nil {
		e.prlimit = pr
	} else {
		log.Warn().Str("func", "NewEngine").Msg("prlimit not found; extraction memory ceiling not enforced")
	}

	return e
}

// Extract implements [pipeline.Extractor]. It runs tesseract in TSV
// mode and reduces the word table to the page text and the mean word
// confidence.
func (e *Engine) Extract(ctx context.Context, path string) (pipeline.ExtractResult, error) {
	if e.unavailable {
		return pipeline.ExtractResult{}, ErrUnavailable
	}
	log := logger.FromContext(ctx)

	outDir, err := os.MkdirTemp(filepath.Dir(path), "ocr-")
	if err != nil {
		return pipeline.ExtractResult{}, fmt.Errorf("create ocr output dir: %w", err)
	}
	defer os.RemoveAll(outDir)
	outBase := filepath.Join(outDir, "out")

	cmd := e.command(ctx, path, outBase)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return pipeline.ExtractResult{}, ctx.Err()
		}
		log.Err(err).Str("func", "*Engine.Extract").Str("stderr", stderr.String()).
			Msg("error: tesseract run failed")
		return pipeline.ExtractResult{}, fmt.Errorf("tesseract: %w", err)
	}

	tsv, err := os.ReadFile(outBase + ".tsv")
	if err != nil {
		return pipeline.ExtractResult{}, fmt.Errorf("read ocr output: %w", err)
	}
	text, confidence := reduceTSV(string(tsv))
	return pipeline.ExtractResult{Text: text, Confidence: confidence}, nil
}

// command builds the worker invocation, wrapped in prlimit when the
// tool exists so the address-space ceiling is enforced by the kernel,
// not trusted to the engine.
func (e *Engine) command(ctx context.Context, inPath, outBase string) *exec.Cmd {
	args := []string{inPath, outBase, "-l", e.languages, "tsv"}
	if e.prlimit != "" && e.memoryMB > 0 {
		wrapped := append([]string{
			"--as=" + strconv.FormatInt(int64(e.memoryMB)<<20, 10),
			e.binary,
		}, args...)
		return exec.CommandContext(ctx, e.prlimit, wrapped...)
	}
	return exec.CommandContext(ctx, e.binary, args...)
}

// reduceTSV folds tesseract's word table into page text plus the mean
// confidence over recognized words. Rows with confidence -1 are layout
// structure, not words.
func reduceTSV(tsv string) (string, float64) {
	var words []string
	var confSum float64
	var confCount int

	for i, line := range strings.Split(tsv, "\n") {
		if i == 0 || line == "" {
			continue // header
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 12 {
			continue
		}
		conf, err := strconv.ParseFloat(fields[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		word := strings.TrimSpace(fields[11])
		if word == "" {
			continue
		}
		words = append(words, word)
		confSum += conf
		confCount++
	}

	if confCount == 0 {
		return "", 0
	}
	return strings.Join(words, " "), confSum / float64(confCount)
}
