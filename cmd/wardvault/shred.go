// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wardvault/wardvault/internal/shredder"
)

var (
	shredConfirm bool
	shredReason  string
)

var shredCmd = &cobra.Command{
	Use:   "shred --confirm",
	Short: "Destroy all keys and plaintext residue (irreversible)",
	Long: `shred runs the emergency destruction sequence: every encryption
key is overwritten and deleted, the encrypted volume is detached and its
header erased where configured, and plaintext scratch areas are purged.

There is no undo. The request is refused without --confirm.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "shred")
		if err != nil {
			return err
		}
		defer a.Close()

		s := a.newShredder()

		// The shredder itself enforces the confirmation gate; the CLI is
		// just one more message source.
		requests := make(chan shredder.Request, 1)
		requests <- shredder.Request{
			Source:    shredder.SourceOperator,
			Confirmed: shredConfirm,
			Reason:    shredReason,
		}
		close(requests)
		s.Listen(ctx, requests)

		if !shredConfirm {
			return fmt.Errorf("refused: re-run with --confirm to destroy all data")
		}
		fmt.Println("shred complete; see log for the per-step report")
		return nil
	},
}

func init() {
	shredCmd.Flags().BoolVar(&shredConfirm, "confirm", false, "actually destroy the data")
	shredCmd.Flags().StringVar(&shredReason, "reason", "", "reason recorded in the audit ledger")
}
