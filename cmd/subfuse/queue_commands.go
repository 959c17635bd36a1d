package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"subfuse/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the processing queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var statuses []queue.Status
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				for _, value := range strings.Split(trimmed, ",") {
					status, ok := queue.ParseStatus(value)
					if !ok {
						return fmt.Errorf("unknown status %q (known: %v)", value, queue.AllStatuses())
					}
					statuses = append(statuses, status)
				}
			}

			items, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, item := range items {
				progress := fmt.Sprintf("%.0f%%", item.ProgressPercent)
				detail := item.ProgressMessage
				if item.Status == queue.StatusFailed {
					detail = item.ErrorMessage
				}
				rows = append(rows, []string{
					strconv.FormatInt(item.ID, 10),
					item.Title,
					string(item.Status),
					progress,
					detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Status", "Progress", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Comma-separated status filter")
	return cmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show aggregate queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(stats))
			total := 0
			for _, status := range queue.AllStatuses() {
				count, ok := stats[status]
				if !ok {
					continue
				}
				total += count
				rows = append(rows, []string{string(status), strconv.Itoa(count)})
			}
			rows = append(rows, []string{"total", strconv.Itoa(total)})
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Status", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Requeue all failed items",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			requeued, err := store.RetryFailed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d failed items\n", requeued)
			return nil
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var completedOnly bool
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var removed int64
			switch {
			case completedOnly && failedOnly:
				return fmt.Errorf("--completed and --failed are mutually exclusive")
			case completedOnly:
				removed, err = store.ClearCompleted(cmd.Context())
			case failedOnly:
				removed, err = store.ClearFailed(cmd.Context())
			default:
				removed, err = store.Clear(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d items\n", removed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&completedOnly, "completed", false, "Remove only completed items")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Remove only failed items")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove one queue item by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Remove(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no queue item with id %d", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed item %d\n", id)
			return nil
		},
	}
}
