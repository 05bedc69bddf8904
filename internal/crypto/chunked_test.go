// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package crypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"io"
	"testing"
)

const testChunkSize = 32

func newTestCipher(t *testing.T) (*ChunkedCipher, []byte) {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey error: %v", err)
	}
	c, err := NewChunkedCipher(key, testChunkSize)
	if err != nil {
		t.Fatalf("NewChunkedCipher error: %v", err)
	}
	return c, key
}

func encrypt(t *testing.T, c *ChunkedCipher, plaintext []byte, space StreamSpace) []byte {
	t.Helper()
	base, err := NewBaseNonce()
	if err != nil {
		t.Fatalf("NewBaseNonce error: %v", err)
	}
	var out bytes.Buffer
	if _, _, err := c.EncryptStream(&out, bytes.NewReader(plaintext), base, space); err != nil {
		t.Fatalf("EncryptStream error: %v", err)
	}
	return out.Bytes()
}

func TestNewChunkedCipher_RejectsBadInputs(t *testing.T) {
	if _, err := NewChunkedCipher(make([]byte, 16), testChunkSize); !errors.Is(err, ErrInvalidKeySize) {
		t.Fatalf("expected ErrInvalidKeySize for 16-byte key, got %v", err)
	}
	if _, err := NewChunkedCipher(make([]byte, KeySize), 0); err == nil {
		t.Fatal("expected error for zero chunk size")
	}
}

func TestRoundTrip_Sizes(t *testing.T) {
	c, _ := newTestCipher(t)

	sizes := []int{
		0,
		1,
		testChunkSize,         // exactly one chunk
		3*testChunkSize + 17,  // several chunks plus a partial final chunk
		2 * testChunkSize,     // exact multiple
	}

	for _, size := range sizes {
		plaintext := make([]byte, size)
		if _, err := io.ReadFull(rand.Reader, plaintext); err != nil {
			t.Fatalf("generate plaintext: %v", err)
		}

		blob := encrypt(t, c, plaintext, SpaceDocument)

		var out bytes.Buffer
		n, err := c.DecryptStream(&out, bytes.NewReader(blob), SpaceDocument)
		if err != nil {
			t.Fatalf("size %d: DecryptStream error: %v", size, err)
		}
		if n != int64(size) {
			t.Fatalf("size %d: recovered %d bytes", size, n)
		}
		if !bytes.Equal(out.Bytes(), plaintext) {
			t.Fatalf("size %d: plaintext mismatch after round trip", size)
		}
	}
}

func TestEncryptStream_BlobLayout(t *testing.T) {
	c, _ := newTestCipher(t)
	plaintext := make([]byte, testChunkSize+5)

	base, err := NewBaseNonce()
	if err != nil {
		t.Fatalf("NewBaseNonce error: %v", err)
	}
	var out bytes.Buffer
	chunks, n, err := c.EncryptStream(&out, bytes.NewReader(plaintext), base, SpaceDocument)
	if err != nil {
		t.Fatalf("EncryptStream error: %v", err)
	}

	if chunks != 2 {
		t.Fatalf("chunks = %d, want 2", chunks)
	}
	if n != int64(len(plaintext)) {
		t.Fatalf("plaintext bytes = %d, want %d", n, len(plaintext))
	}
	// nonce + (chunk + tag) + (partial chunk + tag)
	wantLen := NonceSize + testChunkSize + TagSize + 5 + TagSize
	if out.Len() != wantLen {
		t.Fatalf("blob length = %d, want %d", out.Len(), wantLen)
	}
	if !bytes.Equal(out.Bytes()[:NonceSize], base[:]) {
		t.Fatal("blob must start with the base nonce")
	}
}

// recordingWriter captures everything the decryptor hands to the output.
type recordingWriter struct {
	bytes.Buffer
}

func TestDecryptStream_FailsClosedOnCorruption(t *testing.T) {
	c, _ := newTestCipher(t)

	plaintext := make([]byte, 3*testChunkSize)
	if _, err := io.ReadFull(rand.Reader, plaintext); err != nil {
		t.Fatalf("generate plaintext: %v", err)
	}
	blob := encrypt(t, c, plaintext, SpaceDocument)

	// Flip one byte inside the second chunk's ciphertext.
	corruptAt := NonceSize + (testChunkSize + TagSize) + 3
	blob[corruptAt] ^= 0x01

	var out recordingWriter
	n, err := c.DecryptStream(&out, bytes.NewReader(blob), SpaceDocument)
	if !errors.Is(err, ErrChunkAuthentication) {
		t.Fatalf("expected ErrChunkAuthentication, got %v", err)
	}
	// Only the fully verified first chunk may have been written.
	if n != testChunkSize || out.Len() != testChunkSize {
		t.Fatalf("wrote %d bytes after corruption in chunk 1, want %d", out.Len(), testChunkSize)
	}
	if !bytes.Equal(out.Bytes(), plaintext[:testChunkSize]) {
		t.Fatal("verified prefix must match the original plaintext")
	}
}

func TestDecryptStream_TagCorruptionDetected(t *testing.T) {
	c, _ := newTestCipher(t)
	plaintext := make([]byte, testChunkSize)
	blob := encrypt(t, c, plaintext, SpaceDocument)

	// Flip the last byte: inside the first chunk's tag.
	blob[len(blob)-1] ^= 0x80

	var out bytes.Buffer
	if _, err := c.DecryptStream(&out, bytes.NewReader(blob), SpaceDocument); !errors.Is(err, ErrChunkAuthentication) {
		t.Fatalf("expected ErrChunkAuthentication, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("no bytes may be written for a corrupted single chunk, got %d", out.Len())
	}
}

func TestDecryptStream_Truncated(t *testing.T) {
	c, _ := newTestCipher(t)

	// Shorter than the base nonce.
	var out bytes.Buffer
	if _, err := c.DecryptStream(&out, bytes.NewReader([]byte{1, 2, 3}), SpaceDocument); !errors.Is(err, ErrCiphertextTruncated) {
		t.Fatalf("expected ErrCiphertextTruncated, got %v", err)
	}

	// Nonce plus a fragment smaller than one tag.
	blob := encrypt(t, c, make([]byte, testChunkSize), SpaceDocument)
	if _, err := c.DecryptStream(&out, bytes.NewReader(blob[:NonceSize+TagSize-1]), SpaceDocument); !errors.Is(err, ErrCiphertextTruncated) {
		t.Fatalf("expected ErrCiphertextTruncated, got %v", err)
	}
}

func TestDecryptStream_WrongKeyOrSpaceFails(t *testing.T) {
	c, _ := newTestCipher(t)
	plaintext := []byte("chunked cipher stream space separation")
	blob := encrypt(t, c, plaintext, SpaceDocument)

	// Wrong stream space derives different chunk nonces.
	var out bytes.Buffer
	if _, err := c.DecryptStream(&out, bytes.NewReader(blob), SpaceText); !errors.Is(err, ErrChunkAuthentication) {
		t.Fatalf("expected ErrChunkAuthentication for wrong space, got %v", err)
	}

	// Wrong key.
	other, _ := newTestCipher(t)
	if _, err := other.DecryptStream(&out, bytes.NewReader(blob), SpaceDocument); !errors.Is(err, ErrChunkAuthentication) {
		t.Fatalf("expected ErrChunkAuthentication for wrong key, got %v", err)
	}
}

func TestChunkNonces_UniqueAcrossSpacesAndIndexes(t *testing.T) {
	base, err := NewBaseNonce()
	if err != nil {
		t.Fatalf("NewBaseNonce error: %v", err)
	}

	seen := make(map[string]struct{})
	for _, space := range []StreamSpace{SpaceDocument, SpaceText} {
		for index := uint32(0); index < 1000; index++ {
			nonce := string(chunkNonce(base, space, index))
			if _, dup := seen[nonce]; dup {
				t.Fatalf("duplicate nonce for space %d index %d", space, index)
			}
			seen[nonce] = struct{}{}
		}
	}
}

func TestBaseNonces_UniqueAcrossRuns(t *testing.T) {
	seen := make(map[[NonceSize]byte]struct{})
	for i := 0; i < 500; i++ {
		base, err := NewBaseNonce()
		if err != nil {
			t.Fatalf("NewBaseNonce error: %v", err)
		}
		if _, dup := seen[base]; dup {
			t.Fatal("base nonce repeated across encryption runs")
		}
		seen[base] = struct{}{}
	}
}

func TestGenerateKey_LengthAndRandomness(t *testing.T) {
	k1, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey error: %v", err)
	}
	k2, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey error: %v", err)
	}

	if len(k1) != KeySize || len(k2) != KeySize {
		t.Fatalf("key lengths = %d, %d, want %d", len(k1), len(k2), KeySize)
	}
	if bytes.Equal(k1, k2) {
		t.Fatal("expected keys to differ")
	}
}
