package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"slipstream/internal/config"
	"slipstream/internal/receipts"
)

func newReceiptsCommand(ctx *commandContext) *cobra.Command {
	receiptsCmd := &cobra.Command{
		Use:   "receipts",
		Short: "Inspect and manage the receipt catalog",
	}

	receiptsCmd.AddCommand(newReceiptsListCommand(ctx))
	receiptsCmd.AddCommand(newReceiptsShowCommand(ctx))
	receiptsCmd.AddCommand(newReceiptsReviewCommand(ctx))
	receiptsCmd.AddCommand(newReceiptsApproveCommand(ctx))
	receiptsCmd.AddCommand(newReceiptsRejectCommand(ctx))
	receiptsCmd.AddCommand(newReceiptsLinkCommand(ctx))
	receiptsCmd.AddCommand(newReceiptsHealthCommand(ctx))

	return receiptsCmd
}

func (c *commandContext) withCatalog(fn func(cfg *config.Config, store *receipts.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := receipts.Open(cfg)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
}

func newReceiptsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog receipts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(cfg *config.Config, store *receipts.Store) error {
				var status receipts.Status
				if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
					parsed, ok := receipts.ParseStatus(trimmed)
					if !ok {
						return fmt.Errorf("unknown status %q", trimmed)
					}
					status = parsed
				}

				rows, err := store.List(cmd.Context(), status, limit)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty")
					return nil
				}
				printReceiptTable(cmd, rows)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (pending_review, approved, rejected)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of receipts to show (0 for all)")
	return cmd
}

func newReceiptsShowCommand(ctx *commandContext) *cobra.Command {
	var showText bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one receipt in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReceiptID(args[0])
			if err != nil {
				return err
			}
			return ctx.withCatalog(func(cfg *config.Config, store *receipts.Store) error {
				r, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				printReceiptDetail(cmd, r, showText)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showText, "text", false, "Include the recognized raw text")
	return cmd
}

func newReceiptsReviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "List pending receipts below the review threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(cfg *config.Config, store *receipts.Store) error {
				rows, err := store.PendingReview(cmd.Context(), cfg.Pipeline.ReviewThreshold)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Review queue is empty")
					return nil
				}
				printReceiptTable(cmd, rows)
				return nil
			})
		},
	}
}

func newReceiptsApproveCommand(ctx *commandContext) *cobra.Command {
	return newStatusTransitionCommand(ctx, "approve", receipts.StatusApproved)
}

func newReceiptsRejectCommand(ctx *commandContext) *cobra.Command {
	return newStatusTransitionCommand(ctx, "reject", receipts.StatusRejected)
}

func newStatusTransitionCommand(ctx *commandContext, verb string, status receipts.Status) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReceiptID(args[0])
			if err != nil {
				return err
			}
			return ctx.withCatalog(func(cfg *config.Config, store *receipts.Store) error {
				if err := store.UpdateStatus(cmd.Context(), id, status); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Receipt %d marked %s\n", id, status)
				return nil
			})
		},
	}
}

func newReceiptsLinkCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "link <id> <transaction-id>",
		Short: "Link a receipt to an external transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReceiptID(args[0])
			if err != nil {
				return err
			}
			transactionID := strings.TrimSpace(args[1])
			if transactionID == "" {
				return fmt.Errorf("transaction id is required")
			}
			return ctx.withCatalog(func(cfg *config.Config, store *receipts.Store) error {
				if err := store.LinkTransaction(cmd.Context(), id, transactionID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Receipt %d linked to %s\n", id, transactionID)
				return nil
			})
		},
	}
}

func newReceiptsHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show catalog counts per lifecycle state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(cfg *config.Config, store *receipts.Store) error {
				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Total", strconv.Itoa(summary.Total)},
					{"Pending review", strconv.Itoa(summary.Pending)},
					{"Approved", strconv.Itoa(summary.Approved)},
					{"Rejected", strconv.Itoa(summary.Rejected)},
					{"Duplicates seen", strconv.FormatInt(summary.Duplicates, 10)},
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out, []string{"Metric", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func parseReceiptID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid receipt id %q", raw)
	}
	return id, nil
}

func printReceiptTable(cmd *cobra.Command, rows []*receipts.Receipt) {
	display := make([][]string, 0, len(rows))
	for _, r := range rows {
		display = append(display, []string{
			strconv.FormatInt(r.ID, 10),
			displayVendorOrDash(r.Vendor),
			formatDatePtr(r.ReceiptDate),
			formatCentsPtr(r.TotalCents),
			formatConfidence(r.Confidence),
			string(r.Status),
			strconv.FormatInt(r.DuplicateCount, 10),
		})
	}
	out := cmd.OutOrStdout()
	table := renderTable(out,
		[]string{"ID", "Vendor", "Date", "Total", "Confidence", "Status", "Dups"},
		display,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight},
	)
	fmt.Fprintln(out, table)
}

type lineItemView struct {
	Description string  `json:"description"`
	AmountCents int64   `json:"amount_cents"`
	Confidence  float64 `json:"confidence"`
}

func printReceiptDetail(cmd *cobra.Command, r *receipts.Receipt, showText bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Receipt #%d\n", r.ID)
	fmt.Fprintf(out, "  Status:       %s\n", r.Status)
	fmt.Fprintf(out, "  Vendor:       %s\n", displayVendorOrDash(r.Vendor))
	fmt.Fprintf(out, "  Date:         %s\n", formatDatePtr(r.ReceiptDate))
	fmt.Fprintf(out, "  Subtotal:     %s\n", formatCentsPtr(r.SubtotalCents))
	fmt.Fprintf(out, "  Tax:          %s\n", formatCentsPtr(r.TaxCents))
	fmt.Fprintf(out, "  Total:        %s\n", formatCentsPtr(r.TotalCents))
	if r.PaymentMethod != "" {
		fmt.Fprintf(out, "  Payment:      %s\n", r.PaymentMethod)
	}
	fmt.Fprintf(out, "  Confidence:   %s\n", formatConfidence(r.Confidence))
	fmt.Fprintf(out, "  Engine:       %s\n", r.EngineID)
	fmt.Fprintf(out, "  Hash:         %s\n", r.FileHash)
	fmt.Fprintf(out, "  Attachment:   %s\n", r.AttachmentPath)
	fmt.Fprintf(out, "  Size:         %d bytes\n", r.ByteSize)
	if r.TransactionID != "" {
		fmt.Fprintf(out, "  Transaction:  %s\n", r.TransactionID)
	}
	if r.DuplicateCount > 0 {
		fmt.Fprintf(out, "  Duplicates:   %d\n", r.DuplicateCount)
	}
	fmt.Fprintf(out, "  Ingested:     %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))

	var items []lineItemView
	if err := json.Unmarshal([]byte(r.LineItemsJSON), &items); err == nil && len(items) > 0 {
		fmt.Fprintln(out, "  Line items:")
		for _, item := range items {
			fmt.Fprintf(out, "    %-40s %10s  (%s)\n", item.Description, formatCents(item.AmountCents), formatConfidence(item.Confidence))
		}
	}

	if showText && r.OCRText != "" {
		fmt.Fprintln(out, "  Text:")
		for _, line := range strings.Split(r.OCRText, "\n") {
			fmt.Fprintf(out, "    %s\n", line)
		}
	}
}
