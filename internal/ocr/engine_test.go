// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package ocr

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/wardvault/wardvault/internal/logger"
)

func TestReduceTSV(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
		"5\t1\t1\t1\t1\t1\t5\t5\t20\t10\t96.5\tpatient\n" +
		"5\t1\t1\t1\t1\t2\t30\t5\t20\t10\t88.1\trecord\n" +
		"5\t1\t1\t1\t1\t3\t55\t5\t20\t10\t91.4\t \n"

	text, conf := reduceTSV(tsv)
	if text != "patient record" {
		t.Fatalf("text = %q, want %q", text, "patient record")
	}
	want := (96.5 + 88.1) / 2
	if math.Abs(conf-want) > 1e-9 {
		t.Fatalf("confidence = %v, want %v", conf, want)
	}
}

func TestReduceTSV_NoWords(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n"

	text, conf := reduceTSV(tsv)
	if text != "" || conf != 0 {
		t.Fatalf("got (%q, %v), want empty result", text, conf)
	}
}

func TestExtract_UnavailableEngine(t *testing.T) {
	e := &Engine{unavailable: true, logger: logger.Nop()}

	_, err := e.Extract(context.Background(), "whatever.png")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
