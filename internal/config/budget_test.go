// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBudget_Valid(t *testing.T) {
	b := DefaultBudget()
	require.NoError(t, b.Validate())
}

func TestBudget_Validate_OverAllocation(t *testing.T) {
	b := DefaultBudget()
	b.ServerMemoryMB = 400 // pushes the table past 496 MB

	err := b.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceed available")
}

func TestBudget_Validate_ChunkSize(t *testing.T) {
	b := DefaultBudget()
	b.ChunkSize = 0
	require.Error(t, b.Validate())

	b = DefaultBudget()
	b.ChunkSize = -1
	require.Error(t, b.Validate())

	b = DefaultBudget()
	b.ChunkSize = (b.EncryptionBufferMB << 20) + 1
	err := b.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encryption buffer")
}

func TestBudget_Validate_OCRTimeout(t *testing.T) {
	b := DefaultBudget()
	b.OCRTimeout = 0
	require.Error(t, b.Validate())
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	var d Duration

	require.NoError(t, d.UnmarshalJSON([]byte(`"30s"`)))
	assert.Equal(t, 30*time.Second, d.Std())

	require.NoError(t, d.UnmarshalJSON([]byte(`1000000000`)))
	assert.Equal(t, time.Second, d.Std())

	require.Error(t, d.UnmarshalJSON([]byte(`"not-a-duration"`)))
	require.Error(t, d.UnmarshalJSON([]byte(`true`)))
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration

	require.NoError(t, d.UnmarshalText([]byte("1m")))
	assert.Equal(t, time.Minute, d.Std())

	require.Error(t, d.UnmarshalText([]byte("bogus")))
}
