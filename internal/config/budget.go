// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package config

import (
	"fmt"
	"time"
)

// Budget is the static resource description of the target hardware. It is
// consulted, never computed: the cipher takes its chunk size from here,
// the pipeline takes its extraction ceilings from here, and validation
// checks that the allocation table fits in physical RAM.
//
// Defaults describe a Raspberry Pi Zero W: one 1 GHz core, 512 MB RAM of
// which ~496 MB is usable with a minimal GPU split.
type Budget struct {
	// CPUCores is the number of usable cores. The pipeline runs strictly
	// sequentially when this is 1.
	// Env: BUDGET_CPU_CORES
	CPUCores int `env:"CPU_CORES" json:"cpu_cores"`

	// AvailableRAMMB is the RAM usable by the whole system, in MiB.
	// Env: BUDGET_AVAILABLE_RAM_MB
	AvailableRAMMB int `env:"AVAILABLE_RAM_MB" json:"available_ram_mb"`

	// ServerMemoryMB is the allocation for the resident application
	// process.
	// Env: BUDGET_SERVER_MEMORY_MB
	ServerMemoryMB int `env:"SERVER_MEMORY_MB" json:"server_memory_mb"`

	// OCRMemoryMB is the hard address-space ceiling for one extraction
	// worker. The extraction engine enforces it on the worker process,
	// not merely as advice.
	// Env: BUDGET_OCR_MEMORY_MB
	OCRMemoryMB int `env:"OCR_MEMORY_MB" json:"ocr_memory_mb"`

	// EncryptionBufferMB caps the cipher working set. ChunkSize must fit
	// inside it.
	// Env: BUDGET_ENCRYPTION_BUFFER_MB
	EncryptionBufferMB int `env:"ENCRYPTION_BUFFER_MB" json:"encryption_buffer_mb"`

	// DBCacheMB is the allocation for the metadata database cache.
	// Env: BUDGET_DB_CACHE_MB
	DBCacheMB int `env:"DB_CACHE_MB" json:"db_cache_mb"`

	// OSOverheadMB is the reservation for the operating system.
	// Env: BUDGET_OS_OVERHEAD_MB
	OSOverheadMB int `env:"OS_OVERHEAD_MB" json:"os_overhead_mb"`

	// ChunkSize is the cipher chunk size in bytes. It is a system-wide
	// invariant: ciphertext written with one chunk size cannot be read
	// with another.
	// Env: BUDGET_CHUNK_SIZE
	ChunkSize int `env:"CHUNK_SIZE" json:"chunk_size"`

	// OCRTimeout is the wall-clock ceiling for one extraction run.
	// Exceeding it degrades the result; it never fails the document.
	// Env: BUDGET_OCR_TIMEOUT
	OCRTimeout Duration `env:"OCR_TIMEOUT" json:"ocr_timeout"`

	// EncryptionTimeout bounds a single stream encryption operation.
	// Env: BUDGET_ENCRYPTION_TIMEOUT
	EncryptionTimeout Duration `env:"ENCRYPTION_TIMEOUT" json:"encryption_timeout"`
}

// DefaultBudget returns the Raspberry Pi Zero W allocation table.
func DefaultBudget() Budget {
	return Budget{
		CPUCores:           1,
		AvailableRAMMB:     496,
		ServerMemoryMB:     100,
		OCRMemoryMB:        200,
		EncryptionBufferMB: 50,
		DBCacheMB:          50,
		OSOverheadMB:       96,
		ChunkSize:          64 << 10, // 64 KiB
		OCRTimeout:         Duration(30 * time.Second),
		EncryptionTimeout:  Duration(10 * time.Second),
	}
}

// Validate checks that the allocation table fits in available RAM and
// that the cipher chunk size is positive and inside the encryption
// buffer.
func (b Budget) Validate() error {
	total := b.ServerMemoryMB + b.OCRMemoryMB + b.EncryptionBufferMB + b.DBCacheMB + b.OSOverheadMB
	if total > b.AvailableRAMMB {
		return fmt.Errorf("budget: allocations total %d MB exceed available %d MB", total, b.AvailableRAMMB)
	}
	if b.ChunkSize <= 0 {
		return fmt.Errorf("budget: chunk size must be positive, got %d", b.ChunkSize)
	}
	if b.ChunkSize > b.EncryptionBufferMB<<20 {
		return fmt.Errorf("budget: chunk size %d exceeds encryption buffer %d MB", b.ChunkSize, b.EncryptionBufferMB)
	}
	if b.OCRTimeout <= 0 {
		return fmt.Errorf("budget: OCR timeout must be positive, got %s", b.OCRTimeout)
	}
	return nil
}
