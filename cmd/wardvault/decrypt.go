// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wardvault/wardvault/internal/ledger"
)

var decryptOut string

var decryptCmd = &cobra.Command{
	Use:   "decrypt <document-id>",
	Short: "Decrypt a stored document and its text for viewing",
	Long: `decrypt writes a document's plaintext and extracted text into the
output directory and records the access in the audit ledger. The files
are the operator's responsibility from that point on.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "decrypt")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.orch.Retrieve(cmd.Context(), args[0], ledger.System, decryptOut)
		if err != nil {
			return err
		}

		fmt.Printf("document: %s\ntext:     %s\n", res.DocumentPath, res.TextPath)
		return nil
	},
}

func init() {
	decryptCmd.Flags().StringVar(&decryptOut, "out", ".", "output directory")
}
