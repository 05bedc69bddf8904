// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wardvault/wardvault/internal/ledger"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create an encrypted backup of the document tree",
	Long: `backup archives the whole encrypted document tree into a single
sealed file under the backup directory. The one-time key lands in a
detached .key file beside the archive; move it off the device.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "backup")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.files.Backup(ctx)
		if err != nil {
			return err
		}

		if _, err := a.audit.AppendSecurityEvent(ledger.EventSecurityBackup, map[string]any{
			"archive": res.ArchivePath,
			"files":   res.Files,
			"bytes":   res.PlaintextBytes,
		}); err != nil {
			return err
		}

		fmt.Printf("backup: %s (%d files)\nkey:    %s  <- move this off the device\n",
			res.ArchivePath, res.Files, res.KeyPath)
		return nil
	},
}
