// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wardvault/wardvault/internal/ledger"
	"github.com/wardvault/wardvault/internal/pipeline"
)

var (
	processPatient int64
	processOwner   int64
)

var processCmd = &cobra.Command{
	Use:   "process --patient N [--owner M] <file>",
	Short: "Run one document through the intake pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if processPatient <= 0 {
			return fmt.Errorf("--patient is required and must be positive")
		}
		owner := processOwner
		if owner <= 0 {
			owner = processPatient
		}

		a, err := newApp(cmd.Context(), "process")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.orch.Process(cmd.Context(), pipelineUpload(args[0], processPatient, owner))
		if err != nil {
			return err
		}

		fmt.Printf("stored %s (confidence %.1f, searchable %t)\n",
			res.DocumentID, res.Confidence, res.Searchable)
		return nil
	},
}

func init() {
	processCmd.Flags().Int64Var(&processPatient, "patient", 0, "patient the document belongs to")
	processCmd.Flags().Int64Var(&processOwner, "owner", 0, "key owner (defaults to the patient)")
}

func pipelineUpload(path string, patientID, ownerID int64) pipeline.Upload {
	return pipeline.Upload{
		Path:      path,
		Filename:  filepath.Base(path),
		PatientID: patientID,
		KeyOwner:  ownerID,
		Actor:     ledger.System,
	}
}
