// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package shredder

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/wardvault/wardvault/internal/logger"
)

// ErrUnavailable reports a shred capability the host cannot provide
// (missing tool or no encrypted volume configured). Steps that hit it
// are reported as skipped, not failed.
var ErrUnavailable = errors.New("capability unavailable on this host")

// VolumeManager is the encrypted-volume capability consulted during a
// shred: unmount the data volume, then erase its key header so the
// ciphertext on the card is permanently unreadable.
type VolumeManager interface {
	Detach(ctx context.Context) error
	EraseHeader(ctx context.Context) error
}

// CryptVolume drives a LUKS data volume through umount and cryptsetup.
type CryptVolume struct {
	mountPoint string
	device     string
	umount     string
	cryptsetup string
	logger     *logger.Logger
}

// NewCryptVolume probes for the required tools. Missing tools are not a
// construction error; the affected operations return ErrUnavailable.
func NewCryptVolume(mountPoint, device string, log *logger.Logger) *CryptVolume {
	v := &CryptVolume{mountPoint: mountPoint, device: device, logger: log}
	if p, err := exec.LookPath("umount"); err == nil {
		v.umount = p
	}
	if p, err := exec.LookPath("cryptsetup"); err == nil {
		v.cryptsetup = p
	}
	return v
}

// Detach implements [VolumeManager].
func (v *CryptVolume) Detach(ctx context.Context) error {
	if v.umount == "" || v.mountPoint == "" {
		return ErrUnavailable
	}
	if out, err := exec.CommandContext(ctx, v.umount, "-l", v.mountPoint).CombinedOutput(); err != nil {
		return fmt.Errorf("umount %s: %w: %s", v.mountPoint, err, out)
	}
	return nil
}

// EraseHeader implements [VolumeManager]. Erasing the LUKS header
// destroys every keyslot; without an external header backup the volume
// is gone for good.
func (v *CryptVolume) EraseHeader(ctx context.Context) error {
	if v.cryptsetup == "" || v.device == "" {
		return ErrUnavailable
	}
	if out, err := exec.CommandContext(ctx, v.cryptsetup, "-q", "luksErase", v.device).CombinedOutput(); err != nil {
		return fmt.Errorf("cryptsetup luksErase %s: %w: %s", v.device, err, out)
	}
	return nil
}

// VolumeFor selects the volume capability for the configured layout:
// a CryptVolume when a mount point or device is configured, NoVolume
// for hosts keeping data on the plain root filesystem.
func VolumeFor(mountPoint, device string, log *logger.Logger) VolumeManager {
	if mountPoint == "" && device == "" {
		return NoVolume{}
	}
	return NewCryptVolume(mountPoint, device, log)
}

// NoVolume is the VolumeManager for hosts storing data on the plain
// filesystem. Both operations report ErrUnavailable.
type NoVolume struct{}

func (NoVolume) Detach(context.Context) error      { return ErrUnavailable }
func (NoVolume) EraseHeader(context.Context) error { return ErrUnavailable }
