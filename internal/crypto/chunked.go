// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

// Package crypto implements the streaming authenticated-encryption codec
// used for every document wardvault stores.
//
// Files are sealed with AES-256-GCM in fixed-size chunks so peak memory
// stays at one chunk regardless of file size. Each chunk gets its own
// nonce, derived from a random per-stream base nonce, a stream-space tag,
// and the chunk ordinal. On disk:
//
//	base nonce (12 bytes) || repeated [ chunk ciphertext || tag (16 bytes) ]
//
// Chunk boundaries are inferred from the fixed chunk size, which is a
// system-wide invariant taken from the resource budget.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32

	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12

	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
)

// StreamSpace tags one chunk-index space under a shared base nonce. The
// document blob and its extracted-text sibling are encrypted under the
// same key and base nonce but in different spaces, so no nonce is ever
// produced twice.
type StreamSpace uint8

const (
	// SpaceDocument is the index space for document content.
	SpaceDocument StreamSpace = 0x00

	// SpaceText is the index space for extracted text.
	SpaceText StreamSpace = 0x01
)

var (
	// ErrInvalidKeySize reports a key that is not 256 bits.
	ErrInvalidKeySize = errors.New("encryption key must be 32 bytes")

	// ErrChunkAuthentication reports a chunk whose authentication tag
	// did not verify. Nothing from that chunk or any later chunk has
	// been written to the output.
	ErrChunkAuthentication = errors.New("chunk authentication failed")

	// ErrCiphertextTruncated reports a ciphertext too short to contain
	// the structures it claims (missing nonce or a chunk shorter than
	// its tag).
	ErrCiphertextTruncated = errors.New("ciphertext truncated")

	// ErrChunkLimit reports a stream that would exceed the 2^32-1 chunk
	// counter. At the default chunk size this is a multi-terabyte file,
	// far past anything the target hardware stores.
	ErrChunkLimit = errors.New("chunk counter exhausted")
)

// ChunkedCipher seals and opens streams in bounded chunks. It is
// stateless across calls and safe for concurrent use.
type ChunkedCipher struct {
	aead      cipher.AEAD
	chunkSize int
}

// NewChunkedCipher builds a cipher over a 256-bit key with the given
// plaintext chunk size. The chunk size must match between encryption and
// decryption; wardvault fixes it once in the resource budget.
func NewChunkedCipher(key []byte, chunkSize int) (*ChunkedCipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return &ChunkedCipher{aead: aead, chunkSize: chunkSize}, nil
}

// GenerateKey returns a fresh random 256-bit key from the OS CSPRNG.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// NewBaseNonce returns a fresh random 96-bit base nonce. One base nonce
// covers at most one encryption operation's chunk sequences (one per
// stream space); it must never be reused for another operation under the
// same key.
func NewBaseNonce() ([NonceSize]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nonce, fmt.Errorf("generate base nonce: %w", err)
	}
	return nonce, nil
}

// chunkNonce derives the nonce for one chunk: the base nonce with its
// last eight bytes XORed against big-endian (space<<32 | index). Distinct
// (space, index) pairs therefore always produce distinct nonces under one
// base, by construction rather than convention.
func chunkNonce(base [NonceSize]byte, space StreamSpace, index uint32) []byte {
	nonce := make([]byte, NonceSize)
	copy(nonce, base[:])

	counter := uint64(space)<<32 | uint64(index)
	var suffix [8]byte
	binary.BigEndian.PutUint64(suffix[:], counter)
	for i := 0; i < 8; i++ {
		nonce[NonceSize-8+i] ^= suffix[i]
	}
	return nonce
}

// EncryptStream reads plaintext from src, seals it chunk by chunk, and
// writes base nonce followed by the chunk sequence to dst. It returns the
// number of chunks written and the plaintext byte count. Memory use is
// one chunk regardless of stream length.
//
// An empty plaintext produces a header-only blob (base nonce, zero
// chunks), mirroring how DecryptStream treats a chunkless blob as an
// empty stream.
func (c *ChunkedCipher) EncryptStream(dst io.Writer, src io.Reader, base [NonceSize]byte, space StreamSpace) (uint32, int64, error) {
	if _, err := dst.Write(base[:]); err != nil {
		return 0, 0, fmt.Errorf("write base nonce: %w", err)
	}

	buf := make([]byte, c.chunkSize)
	sealed := make([]byte, 0, c.chunkSize+TagSize)

	var chunks uint32
	var total int64
	for {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			if chunks == ^uint32(0) {
				return chunks, total, ErrChunkLimit
			}
			sealed = c.aead.Seal(sealed[:0], chunkNonce(base, space, chunks), buf[:n], nil)
			if _, werr := dst.Write(sealed); werr != nil {
				return chunks, total, fmt.Errorf("write chunk %d: %w", chunks, werr)
			}
			chunks++
			total += int64(n)
		}

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return chunks, total, nil
		}
		if err != nil {
			return chunks, total, fmt.Errorf("read plaintext: %w", err)
		}
	}
}

// DecryptStream reads a blob produced by EncryptStream from src and
// writes the recovered plaintext to dst. Every chunk is authenticated
// before any of its bytes reach dst; the first failure stops the stream
// with ErrChunkAuthentication and nothing from the failed or subsequent
// chunks is written. Returns the number of plaintext bytes recovered.
func (c *ChunkedCipher) DecryptStream(dst io.Writer, src io.Reader, space StreamSpace) (int64, error) {
	var base [NonceSize]byte
	if _, err := io.ReadFull(src, base[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, ErrCiphertextTruncated
		}
		return 0, fmt.Errorf("read base nonce: %w", err)
	}

	buf := make([]byte, c.chunkSize+TagSize)
	opened := make([]byte, 0, c.chunkSize)

	var index uint32
	var total int64
	for {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			if n < TagSize {
				return total, ErrCiphertextTruncated
			}
			plain, oerr := c.aead.Open(opened[:0], chunkNonce(base, space, index), buf[:n], nil)
			if oerr != nil {
				return total, fmt.Errorf("chunk %d: %w", index, ErrChunkAuthentication)
			}
			if _, werr := dst.Write(plain); werr != nil {
				return total, fmt.Errorf("write plaintext chunk %d: %w", index, werr)
			}
			index++
			total += int64(len(plain))
		}

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("read ciphertext: %w", err)
		}
	}
}
