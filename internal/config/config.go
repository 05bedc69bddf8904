// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package config

import (
	"errors"
	"time"
)

// StructuredConfig is the top-level configuration container for wardvault.
// It aggregates all sub-configurations and is populated by merging values
// from environment variables and an optional JSON file, with hardware
// defaults filled in last.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds application-level settings such as the version string.
	App App `envPrefix:"APP_" json:"app"`

	// Storage holds configuration for the metadata database and the
	// encrypted document tree.
	Storage Storage `envPrefix:"STORAGE_" json:"storage"`

	// Ledger holds the audit ledger file location.
	Ledger Ledger `envPrefix:"LEDGER_" json:"ledger"`

	// Pipeline holds document pipeline tuning (extraction engine,
	// languages).
	Pipeline Pipeline `envPrefix:"PIPELINE_" json:"pipeline"`

	// Budget is the static resource description of the target hardware.
	// All bounded operations consult it; none compute their own limits.
	Budget Budget `envPrefix:"BUDGET_" json:"budget"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from the environment.
	// Env: CONFIG
	JSONFilePath string `env:"CONFIG" json:"-"`
}

// App holds application-level configuration values.
type App struct {
	// Version is the semantic version string of the running application.
	// Env: APP_VERSION
	Version string `env:"VERSION" json:"version"`
}

// Storage groups persistence locations.
type Storage struct {
	// DB holds the metadata database settings.
	DB DB `envPrefix:"DB_" json:"db"`

	// Documents holds the on-disk layout of the encrypted document tree.
	Documents Documents `envPrefix:"DOCUMENTS_" json:"documents"`

	// Volume describes the encrypted block volume backing the data
	// directory, when one exists. Both fields empty means the data
	// lives on the plain root filesystem and the volume shred steps
	// are skipped.
	Volume Volume `envPrefix:"VOLUME_" json:"volume"`
}

// Volume holds the LUKS data-volume layout consulted by the emergency
// shredder.
type Volume struct {
	// MountPoint is where the volume is mounted (e.g. "/var/lib/wardvault").
	// Env: STORAGE_VOLUME_MOUNT_POINT
	MountPoint string `env:"MOUNT_POINT" json:"mount_point"`

	// Device is the underlying LUKS device (e.g. "/dev/mmcblk0p3").
	// Env: STORAGE_VOLUME_DEVICE
	Device string `env:"DEVICE" json:"device"`
}

// DB holds connection settings for the SQLite metadata database. The
// database stores per-subject encryption keys and document metadata only;
// document content never enters it.
type DB struct {
	// DSN is the SQLite file path (e.g. "/var/lib/wardvault/meta.db").
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI" json:"database_uri"`
}

// Documents holds the filesystem layout for encrypted document storage.
type Documents struct {
	// DataDir is the root of the per-patient encrypted document tree.
	// Env: STORAGE_DOCUMENTS_DATA_DIR
	DataDir string `env:"DATA_DIR" json:"data_dir"`

	// TempDir is the scratch directory for in-flight pipeline artifacts.
	// Everything written here is deleted on every pipeline exit path.
	// Env: STORAGE_DOCUMENTS_TEMP_DIR
	TempDir string `env:"TEMP_DIR" json:"temp_dir"`

	// BackupDir receives encrypted backup archives and their detached
	// key files.
	// Env: STORAGE_DOCUMENTS_BACKUP_DIR
	BackupDir string `env:"BACKUP_DIR" json:"backup_dir"`
}

// Ledger holds the audit ledger location.
type Ledger struct {
	// Path is the append-only JSONL ledger file.
	// Env: LEDGER_PATH
	Path string `env:"PATH" json:"path"`
}

// Pipeline holds document-pipeline tuning that is not a hardware limit.
type Pipeline struct {
	// TesseractLanguages is the language list passed to the extraction
	// engine (e.g. "eng" or "eng+deu").
	// Env: PIPELINE_TESSERACT_LANGUAGES
	TesseractLanguages string `env:"TESSERACT_LANGUAGES" json:"tesseract_languages"`
}

// GetStructuredConfig assembles the full configuration: environment
// variables first, an optional JSON file merged on top, hardware defaults
// filling the remaining gaps. The result is validated before being
// returned.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withJSON().
		withDefaults().
		build()
}

// validate checks the assembled configuration for internally inconsistent
// or missing values.
func (c *StructuredConfig) validate() error {
	var errs []error

	if c.Storage.DB.DSN == "" {
		errs = append(errs, errors.New("storage: database path is required"))
	}
	if c.Storage.Documents.DataDir == "" {
		errs = append(errs, errors.New("storage: documents data dir is required"))
	}
	if c.Ledger.Path == "" {
		errs = append(errs, errors.New("ledger: path is required"))
	}
	if err := c.Budget.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// defaultConfig returns the fallback configuration for a Raspberry Pi
// Zero class deployment. Merged last, so explicit values always win.
func defaultConfig() *StructuredConfig {
	return &StructuredConfig{
		App: App{Version: "0.1.0"},
		Storage: Storage{
			DB: DB{DSN: "/var/lib/wardvault/meta.db"},
			Documents: Documents{
				DataDir:   "/var/lib/wardvault/patient_data",
				TempDir:   "/var/lib/wardvault/tmp",
				BackupDir: "/var/lib/wardvault/backups",
			},
		},
		Ledger:   Ledger{Path: "/var/log/wardvault/audit.log"},
		Pipeline: Pipeline{TesseractLanguages: "eng"},
		Budget:   DefaultBudget(),
	}
}

// Timeout helpers shared by callers that need context deadlines.
const (
	// DefaultShutdownGrace is how long background units get to stop
	// after cancellation before being abandoned.
	DefaultShutdownGrace = 5 * time.Second
)
