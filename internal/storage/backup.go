// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package storage

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/wardvault/wardvault/internal/crypto"
	"github.com/wardvault/wardvault/internal/logger"
)

// BackupResult describes one finished backup run.
type BackupResult struct {
	// ArchivePath is the encrypted tar archive in the backup directory.
	ArchivePath string

	// KeyPath is the detached key file beside the archive. The key is
	// generated fresh per backup and is the only way to open the
	// archive; it must be moved off the device by the operator.
	KeyPath string

	// Files is the number of files archived.
	Files int

	// PlaintextBytes is the archive size before encryption.
	PlaintextBytes int64
}

// Backup archives the whole data directory into an encrypted tar blob
// under the backup directory. The archive is sealed with a fresh
// single-use key written to a detached key file next to it; leaving
// that file on the same disk defeats the encryption, so moving it
// offline is an operator duty, not something this code can do.
func (m *Manager) Backup(ctx context.Context) (BackupResult, error) {
	log := logger.FromContext(ctx)

	if err := m.EnsureDirs(); err != nil {
		return BackupResult{}, err
	}

	stamp := time.Now().UTC().Format("20060102T150405Z")
	archivePath := filepath.Join(m.cfg.BackupDir, "wardvault-"+stamp+".tar.enc")
	keyPath := archivePath + ".key"

	key, err := crypto.GenerateKey()
	if err != nil {
		return BackupResult{}, err
	}
	cipher, err := crypto.NewChunkedCipher(key, m.chunkSize)
	if err != nil {
		return BackupResult{}, err
	}
	base, err := crypto.NewBaseNonce()
	if err != nil {
		return BackupResult{}, err
	}

	out, err := os.OpenFile(archivePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return BackupResult{}, fmt.Errorf("create backup archive: %w", err)
	}

	pr, pw := io.Pipe()
	files := make(chan int, 1)
	go func() {
		n, terr := tarTree(ctx, pw, m.cfg.DataDir)
		files <- n
		pw.CloseWithError(terr)
	}()

	_, plainBytes, err := cipher.EncryptStream(out, pr, base, crypto.SpaceDocument)
	archived := <-files
	if err == nil {
		err = out.Sync()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Err(err).Str("func", "*Manager.Backup").Msg("error: writing backup archive")
		os.Remove(archivePath)
		return BackupResult{}, fmt.Errorf("write backup archive: %w", err)
	}

	if err := os.WriteFile(keyPath, key, 0o600); err != nil {
		log.Err(err).Str("func", "*Manager.Backup").Msg("error: writing backup key file")
		os.Remove(archivePath)
		return BackupResult{}, fmt.Errorf("write backup key file: %w", err)
	}

	log.Info().Str("func", "*Manager.Backup").
		Str("archive", archivePath).
		Int("files", archived).
		Msg("backup created; move the key file offline")

	return BackupResult{
		ArchivePath:    archivePath,
		KeyPath:        keyPath,
		Files:          archived,
		PlaintextBytes: plainBytes,
	}, nil
}

// RestoreBackup opens an encrypted archive with its detached key and
// unpacks it into dstDir. Paths inside the archive are relative; any
// entry that would escape dstDir is rejected.
func (m *Manager) RestoreBackup(ctx context.Context, archivePath, keyPath, dstDir string) (int, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return 0, fmt.Errorf("read backup key file: %w", err)
	}
	cipher, err := crypto.NewChunkedCipher(key, m.chunkSize)
	if err != nil {
		return 0, err
	}

	in, err := os.Open(archivePath)
	if err != nil {
		return 0, fmt.Errorf("open backup archive: %w", err)
	}
	defer in.Close()

	pr, pw := io.Pipe()
	go func() {
		_, derr := cipher.DecryptStream(pw, in, crypto.SpaceDocument)
		pw.CloseWithError(derr)
	}()

	return untarTree(ctx, pr, dstDir)
}

func tarTree(ctx context.Context, w io.Writer, root string) (int, error) {
	tw := tar.NewWriter(w)
	files := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, f)
		f.Close()
		if err != nil {
			return err
		}

		files++
		return nil
	})
	if err != nil {
		return files, err
	}
	return files, tw.Close()
}

func untarTree(ctx context.Context, r io.Reader, dstDir string) (int, error) {
	tr := tar.NewReader(r)
	files := 0

	for {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return files, nil
		}
		if err != nil {
			return files, fmt.Errorf("read backup archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		dst := filepath.Join(dstDir, filepath.FromSlash(hdr.Name))
		rel, err := filepath.Rel(dstDir, dst)
		if err != nil || rel == ".." || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator) {
			return files, fmt.Errorf("archive entry escapes destination: %s", hdr.Name)
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
			return files, err
		}

		f, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
		if err != nil {
			return files, err
		}
		_, err = io.Copy(f, tr)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return files, err
		}
		files++
	}
}
