// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStructuredConfig_DefaultsApply(t *testing.T) {
	cfg, err := GetStructuredConfig()
	require.NoError(t, err)

	assert.Equal(t, "/var/log/wardvault/audit.log", cfg.Ledger.Path)
	assert.Equal(t, 1, cfg.Budget.CPUCores)
	assert.Equal(t, 64<<10, cfg.Budget.ChunkSize)
}

func TestGetStructuredConfig_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("LEDGER_PATH", "/tmp/test-audit.log")
	t.Setenv("BUDGET_OCR_TIMEOUT", "5s")

	cfg, err := GetStructuredConfig()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test-audit.log", cfg.Ledger.Path)
	assert.Equal(t, 5*time.Second, cfg.Budget.OCRTimeout.Std())
	// Untouched fields still come from the defaults.
	assert.Equal(t, "/var/lib/wardvault/meta.db", cfg.Storage.DB.DSN)
}

func TestGetStructuredConfig_VolumeFromEnv(t *testing.T) {
	t.Setenv("STORAGE_VOLUME_MOUNT_POINT", "/var/lib/wardvault")
	t.Setenv("STORAGE_VOLUME_DEVICE", "/dev/mmcblk0p3")

	cfg, err := GetStructuredConfig()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/wardvault", cfg.Storage.Volume.MountPoint)
	assert.Equal(t, "/dev/mmcblk0p3", cfg.Storage.Volume.Device)
}

func TestGetStructuredConfig_VolumeDefaultsEmpty(t *testing.T) {
	cfg, err := GetStructuredConfig()
	require.NoError(t, err)

	assert.Empty(t, cfg.Storage.Volume.MountPoint)
	assert.Empty(t, cfg.Storage.Volume.Device)
}

func TestGetStructuredConfig_JSONFileMerged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	payload := `{
		"ledger": {"path": "/srv/audit.log"},
		"budget": {"ocr_timeout": "12s", "chunk_size": 32768}
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	t.Setenv("CONFIG", path)

	cfg, err := GetStructuredConfig()
	require.NoError(t, err)

	assert.Equal(t, "/srv/audit.log", cfg.Ledger.Path)
	assert.Equal(t, 12*time.Second, cfg.Budget.OCRTimeout.Std())
	assert.Equal(t, 32768, cfg.Budget.ChunkSize)
}

func TestGetStructuredConfig_EnvWinsOverJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ledger": {"path": "/srv/audit.log"}}`), 0o600))

	t.Setenv("CONFIG", path)
	t.Setenv("LEDGER_PATH", "/env/audit.log")

	cfg, err := GetStructuredConfig()
	require.NoError(t, err)

	assert.Equal(t, "/env/audit.log", cfg.Ledger.Path)
}

func TestGetStructuredConfig_MissingJSONFile(t *testing.T) {
	t.Setenv("CONFIG", "/does/not/exist.json")

	_, err := GetStructuredConfig()
	require.Error(t, err)
}
