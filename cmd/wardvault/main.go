// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

// wardvault is the command-line surface of the vault: document intake,
// integrity verification, encrypted backup, and emergency destruction.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wardvault",
	Short: "Encrypted document vault for constrained hardware",
	Long: `wardvault stores scanned documents encrypted at rest with a
tamper-evident audit ledger, sized for Raspberry-Pi-class hardware.

Run 'wardvault help <command>' for details on a specific command.`,
}

func init() {
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(shredCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
