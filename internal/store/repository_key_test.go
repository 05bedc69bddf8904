// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/wardvault/wardvault/internal/config"
	"github.com/wardvault/wardvault/internal/crypto"
	"github.com/wardvault/wardvault/internal/logger"
)

func newTestKeyRepo(t *testing.T) (*keyRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.Nop()
	repo := &keyRepository{
		db:     &DB{DB: db, logger: l},
		logger: l,
	}
	return repo, mock, db
}

func TestGetOrCreateKey_ExistingKeyReturned(t *testing.T) {
	repo, mock, db := newTestKeyRepo(t)
	defer db.Close()

	key := bytes.Repeat([]byte{0x42}, crypto.KeySize)
	rows := sqlmock.NewRows([]string{"subject_id", "file_key", "created_at"}).
		AddRow(7, key, nil)
	mock.ExpectQuery("SELECT subject_id, file_key").WithArgs(int64(7)).WillReturnRows(rows)

	got, err := repo.GetOrCreateKey(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Fatal("expected the stored key to be returned unchanged")
	}
}

func TestGetOrCreateKey_GeneratesWhenMissing(t *testing.T) {
	repo, mock, db := newTestKeyRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT subject_id, file_key").WithArgs(int64(3)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO subject_keys").WithArgs(int64(3), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	generated := bytes.Repeat([]byte{0x11}, crypto.KeySize)
	rows := sqlmock.NewRows([]string{"subject_id", "file_key", "created_at"}).
		AddRow(3, generated, nil)
	mock.ExpectQuery("SELECT subject_id, file_key").WithArgs(int64(3)).WillReturnRows(rows)

	got, err := repo.GetOrCreateKey(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != crypto.KeySize {
		t.Fatalf("key length = %d, want %d", len(got), crypto.KeySize)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetOrCreateKey_CorruptStoredKeyRejected(t *testing.T) {
	repo, mock, db := newTestKeyRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"subject_id", "file_key", "created_at"}).
		AddRow(5, []byte{1, 2, 3}, nil)
	mock.ExpectQuery("SELECT subject_id, file_key").WithArgs(int64(5)).WillReturnRows(rows)

	_, err := repo.GetOrCreateKey(context.Background(), 5)
	if err == nil || !strings.Contains(err.Error(), "bytes") {
		t.Fatalf("expected a key-size error, got %v", err)
	}
}

func TestDestroyKeys_OverwritesBeforeDelete(t *testing.T) {
	repo, mock, db := newTestKeyRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectExec("UPDATE subject_keys SET file_key").WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("DELETE FROM subject_keys").
		WillReturnResult(sqlmock.NewResult(0, 4))

	destroyed, err := repo.DestroyKeys(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if destroyed != 4 {
		t.Fatalf("destroyed = %d, want 4", destroyed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDestroyKeys_EmptyStore(t *testing.T) {
	repo, mock, db := newTestKeyRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	destroyed, err := repo.DestroyKeys(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if destroyed != 0 {
		t.Fatalf("destroyed = %d, want 0", destroyed)
	}
}

func TestDestroyKeys_OverwriteFailureStopsDelete(t *testing.T) {
	repo, mock, db := newTestKeyRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("UPDATE subject_keys SET file_key").WithArgs(sqlmock.AnyArg()).
		WillReturnError(errors.New("disk I/O error"))

	if _, err := repo.DestroyKeys(context.Background()); err == nil {
		t.Fatal("expected overwrite failure to surface")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("the DELETE must not run after a failed overwrite: %v", err)
	}
}

// TestGetOrCreateKey_ConcurrentFirstUse exercises the real SQLite path:
// concurrent first requests for one subject must observe a single key.
func TestGetOrCreateKey_ConcurrentFirstUse(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "meta.db")
	db, err := NewConnectSQLite(context.Background(), config.DB{DSN: dsn}, logger.Nop())
	if err != nil {
		t.Fatalf("NewConnectSQLite error: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}

	repo := NewKeyRepository(db, logger.Nop())

	const workers = 16
	keys := make([][]byte, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key, err := repo.GetOrCreateKey(context.Background(), 99)
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			keys[i] = key
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if !bytes.Equal(keys[0], keys[i]) {
			t.Fatalf("worker %d observed a different key than worker 0", i)
		}
	}

	// A different subject gets a different key.
	other, err := repo.GetOrCreateKey(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bytes.Equal(other, keys[0]) {
		t.Fatal("distinct subjects must not share a key")
	}
}
