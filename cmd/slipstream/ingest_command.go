package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"slipstream/internal/contentstore"
	"slipstream/internal/daemon"
	"slipstream/internal/logging"
	"slipstream/internal/notifications"
	"slipstream/internal/pipeline"
	"slipstream/internal/receipts"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file> [file...]",
		Short: "Process receipt files immediately, bypassing the inbox",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := logging.NewNop()
			catalog, err := receipts.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer catalog.Close()

			blobs, err := contentstore.New(cfg.Paths.AttachmentsDir)
			if err != nil {
				return fmt.Errorf("open content store: %w", err)
			}
			backend, err := daemon.BuildBackend(cfg)
			if err != nil {
				return err
			}

			orch, err := pipeline.New(cfg, blobs, catalog, backend, notifications.NewService(cfg), logger)
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}
			if err := orch.Start(cmd.Context()); err != nil {
				return fmt.Errorf("start pipeline: %w", err)
			}
			defer orch.Stop()

			out := cmd.OutOrStdout()
			var failures int
			for _, arg := range args {
				path, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", arg, err)
				}
				outcome, err := orch.SubmitWait(cmd.Context(), &pipeline.IntakeItem{
					Path:   path,
					Origin: pipeline.OriginDirect,
				})
				if err != nil {
					return fmt.Errorf("submit %s: %w", arg, err)
				}
				printOutcome(out, arg, outcome, cfg.Pipeline.ReviewThreshold)
				if outcome.Kind == pipeline.OutcomeFailed {
					failures++
				}
			}
			if failures > 0 {
				return fmt.Errorf("%d of %d files failed", failures, len(args))
			}
			return nil
		},
	}
}

func printOutcome(out io.Writer, source string, outcome pipeline.Outcome, threshold float64) {
	switch outcome.Kind {
	case pipeline.OutcomeCompleted:
		r := outcome.Receipt
		if r == nil {
			fmt.Fprintf(out, "%s: completed\n", source)
			return
		}
		fmt.Fprintf(out, "%s: receipt #%d %s %s (confidence %s)\n",
			source, r.ID, displayVendorOrDash(r.Vendor), formatCentsPtr(r.TotalCents), formatConfidence(r.Confidence))
		if r.NeedsReview(threshold) {
			fmt.Fprintf(out, "%s: flagged for review\n", source)
		}
	case pipeline.OutcomeDuplicate:
		fmt.Fprintf(out, "%s: duplicate of %s\n", source, outcome.Hash)
	case pipeline.OutcomeFailed:
		err := outcome.Err
		if err == nil {
			err = errors.New("unknown failure")
		}
		fmt.Fprintf(out, "%s: failed at %s: %v\n", source, outcome.Stage, err)
	}
}
