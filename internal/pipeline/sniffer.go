// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
)

// ErrUnsupportedType reports content that matched nothing on the
// format allow-list.
var ErrUnsupportedType = errors.New("unsupported document type")

// ContentSniffer is the production [TypeDetector]. It trusts the first
// 512 bytes of the file and nothing else: extensions, upload names and
// declared MIME types carry no weight.
type ContentSniffer struct{}

// NewContentSniffer returns the standard detector.
func NewContentSniffer() *ContentSniffer {
	return &ContentSniffer{}
}

var sniffedFormats = map[string]Format{
	"image/jpeg":      FormatJPEG,
	"image/png":       FormatPNG,
	"image/bmp":       FormatBMP,
	"image/webp":      FormatWebP,
	"application/pdf": FormatPDF,
}

// heifBrands are the ftyp major brands accepted as HEIF/HEIC content.
var heifBrands = [][]byte{
	[]byte("heic"), []byte("heix"), []byte("hevc"), []byte("mif1"), []byte("msf1"),
}

// Detect implements [TypeDetector].
func (s *ContentSniffer) Detect(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := f.Read(head)
	if n == 0 && err != nil {
		return "", fmt.Errorf("%w: unreadable or empty", ErrUnsupportedType)
	}
	head = head[:n]

	if format, ok := sniffedFormats[http.DetectContentType(head)]; ok {
		return format, nil
	}

	// Formats the stdlib sniffing table does not cover.
	if len(head) >= 4 {
		if bytes.Equal(head[:4], []byte("II*\x00")) || bytes.Equal(head[:4], []byte("MM\x00*")) {
			return FormatTIFF, nil
		}
	}
	if len(head) >= 12 && bytes.Equal(head[4:8], []byte("ftyp")) {
		for _, brand := range heifBrands {
			if bytes.Equal(head[8:12], brand) {
				return FormatHEIF, nil
			}
		}
	}

	return "", ErrUnsupportedType
}
