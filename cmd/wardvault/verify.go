// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wardvault/wardvault/internal/ledger"
)

var (
	verifyFrom uint64
	verifyTo   uint64
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check ledger integrity and scan stored documents",
	Long: `verify replays the audit ledger's hash chain and compares every
persisted document against its metadata. Findings are printed and the
check itself is recorded in the ledger.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "verify")
		if err != nil {
			return err
		}
		defer a.Close()

		findings, err := a.audit.Verify(verifyFrom, verifyTo)
		if err != nil {
			return err
		}
		for _, f := range findings {
			fmt.Printf("ledger: entry %d line %d: %s\n", f.EntryID, f.Line, f.Kind)
		}
		if len(a.audit.Recovered()) > 0 {
			for _, f := range a.audit.Recovered() {
				fmt.Printf("ledger: recovered at open: line %d: %s\n", f.Line, f.Kind)
			}
		}

		docs, err := a.docs.ListPersisted(ctx)
		if err != nil {
			return err
		}
		problems := a.files.VerifyStorage(ctx, docs)
		for _, p := range problems {
			fmt.Printf("storage: %s: %s (%s)\n", p.DocumentID, p.Kind, p.Path)
		}

		if _, err := a.audit.AppendSecurityEvent(ledger.EventSecurityIntegrityCheck, map[string]any{
			"ledger_findings":  len(findings),
			"storage_problems": len(problems),
			"documents":        len(docs),
		}); err != nil {
			return err
		}

		if len(findings)+len(problems) > 0 {
			return fmt.Errorf("integrity check found %d ledger finding(s), %d storage problem(s)",
				len(findings), len(problems))
		}
		fmt.Printf("ok: %d ledger entries chained, %d documents intact\n", a.audit.NextID()-1, len(docs))
		return nil
	},
}

func init() {
	verifyCmd.Flags().Uint64Var(&verifyFrom, "from", 0, "first entry id to verify")
	verifyCmd.Flags().Uint64Var(&verifyTo, "to", 0, "last entry id to verify (0 = end)")
}
