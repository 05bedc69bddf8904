// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wardvault/wardvault/internal/logger"
	"github.com/wardvault/wardvault/internal/pipeline"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <inbox>",
	Short: "Poll an inbox directory and process arriving documents",
	Long: `watch polls the inbox for files laid out as <inbox>/<patient-id>/<file>
and feeds each one through the pipeline. Every upload is removed from
the inbox once its run reaches a terminal state; for failures the
ledger entry is the inspection record, the plaintext is not kept.
Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, "watch")
		if err != nil {
			return err
		}
		defer a.Close()

		inbox := args[0]
		a.log.Info().Str("inbox", inbox).Dur("interval", watchInterval).Msg("watching inbox")

		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()
		for {
			if err := sweepInbox(ctx, a.orch, a.log, inbox); err != nil {
				a.log.Err(err).Str("func", "watch").Msg("error: inbox sweep failed")
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	},
}

// documentProcessor is the slice of the pipeline the sweep needs.
type documentProcessor interface {
	Process(ctx context.Context, up pipeline.Upload) (pipeline.Result, error)
}

// sweepInbox processes every readable file under <inbox>/<patient-id>/
// and removes it from the inbox regardless of outcome: a failed run is
// already on the ledger, and keeping the plaintext around would be
// retention the failure never earned. Documents are handled one at a
// time; single-core hardware gains nothing from concurrency here and
// the memory budget forbids it.
func sweepInbox(ctx context.Context, proc documentProcessor, log *logger.Logger, inbox string) error {
	patients, err := os.ReadDir(inbox)
	if err != nil {
		return err
	}

	for _, p := range patients {
		if !p.IsDir() {
			continue
		}
		patientID, err := strconv.ParseInt(p.Name(), 10, 64)
		if err != nil {
			log.Warn().Str("dir", p.Name()).Msg("inbox folder is not a patient id; skipping")
			continue
		}

		files, err := os.ReadDir(filepath.Join(inbox, p.Name()))
		if err != nil {
			return err
		}
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			if f.IsDir() {
				continue
			}
			src := filepath.Join(inbox, p.Name(), f.Name())

			res, perr := proc.Process(ctx, pipelineUpload(src, patientID, patientID))
			if perr != nil {
				if errors.Is(perr, context.Canceled) {
					return perr
				}
				log.Err(perr).Str("file", src).Msg("upload failed; see ledger entry")
			}

			if rerr := os.Remove(src); rerr != nil {
				log.Err(rerr).Str("file", src).Msg("error: removing upload from inbox")
				continue
			}
			if perr == nil {
				fmt.Printf("processed %s -> %s\n", src, res.DocumentID)
			}
		}
	}
	return nil
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 10*time.Second, "poll interval")
}
