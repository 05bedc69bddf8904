// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package main

import (
	"context"
	"fmt"

	"github.com/wardvault/wardvault/internal/config"
	"github.com/wardvault/wardvault/internal/ledger"
	"github.com/wardvault/wardvault/internal/logger"
	"github.com/wardvault/wardvault/internal/ocr"
	"github.com/wardvault/wardvault/internal/pipeline"
	"github.com/wardvault/wardvault/internal/shredder"
	"github.com/wardvault/wardvault/internal/storage"
	"github.com/wardvault/wardvault/internal/store"
)

// app is the assembled vault: configuration, audit ledger, metadata
// store, storage tree, and pipeline, wired once per command invocation.
type app struct {
	cfg   *config.StructuredConfig
	log   *logger.Logger
	db    *store.DB
	audit *ledger.Ledger
	keys  store.KeyRepository
	docs  store.DocumentRepository
	files *storage.Manager
	orch  *pipeline.Orchestrator
}

func newApp(ctx context.Context, role string) (*app, error) {
	cfg, err := config.GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	log := logger.NewLogger(role)

	db, err := store.NewConnectSQLite(ctx, cfg.Storage.DB, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate metadata schema: %w", err)
	}

	audit, err := ledger.Open(cfg.Ledger.Path, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	files := storage.NewManager(cfg.Storage.Documents, cfg.Budget.ChunkSize, log)
	if err := files.EnsureDirs(); err != nil {
		audit.Close()
		db.Close()
		return nil, err
	}

	keys := store.NewKeyRepository(db, log)
	docs := store.NewDocumentRepository(db, log)

	orch := pipeline.NewOrchestrator(pipeline.Deps{
		Detector:   pipeline.NewContentSniffer(),
		Normalizer: pipeline.NewDocumentNormalizer(),
		Extractor:  ocr.NewEngine(cfg.Pipeline.TesseractLanguages, cfg.Budget.OCRMemoryMB, log),
		Keys:       keys,
		Documents:  docs,
		Files:      files,
		Audit:      audit,
		Budget:     cfg.Budget,
		Logger:     log,
	})

	return &app{
		cfg:   cfg,
		log:   log,
		db:    db,
		audit: audit,
		keys:  keys,
		docs:  docs,
		files: files,
		orch:  orch,
	}, nil
}

// newShredder builds the destruction path over the app's key store,
// the configured data volume, and the plaintext locations. The audit
// ledger records the request; its own file is not on the purge list,
// damaged chains are evidence too.
func (a *app) newShredder() *shredder.Shredder {
	vol := a.cfg.Storage.Volume
	return shredder.NewShredder(
		a.keys,
		shredder.VolumeFor(vol.MountPoint, vol.Device, a.log),
		a.audit,
		[]string{a.cfg.Storage.Documents.TempDir},
		a.log,
	)
}

func (a *app) Close() {
	if err := a.audit.Close(); err != nil {
		a.log.Err(err).Str("func", "*app.Close").Msg("error: closing ledger")
	}
	if err := a.db.Close(); err != nil {
		a.log.Err(err).Str("func", "*app.Close").Msg("error: closing database")
	}
}
