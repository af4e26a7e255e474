package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bizrank/review-service/internal/types"
)

var (
	syncPriority int
	syncDrain    bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Queue and run review syncs",
}

var syncEnqueueCmd = &cobra.Command{
	Use:   "enqueue <business-id>",
	Short: "Queue a review sync for one business",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := svc.Store.GetBusiness(ctx, args[0])
		if err != nil {
			return err
		}
		if b.PlaceID == "" {
			return fmt.Errorf("business %s has no place id: %w", b.ID, types.ErrInvalidState)
		}
		priority := syncPriority
		if priority < 0 {
			priority = b.PlanTier.SyncPriority()
		}
		id, err := svc.Syncs.Enqueue(ctx, b.ID, b.PlaceID, priority)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"itemId": id, "businessId": b.ID, "priority": priority})
	},
}

var syncBulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Queue a review sync for every active business",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		businesses, err := svc.Store.ListActiveBusinesses(ctx)
		if err != nil {
			return err
		}
		res, err := svc.Syncs.BulkEnqueue(ctx, businesses)
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

var syncRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one pass of the sync pool",
	Long:  "Claims as many pending syncs as the pool has slots and runs them. With --drain, repeats until nothing is pending.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var total []any
		for {
			summary, err := svc.Pool.RunOnce(ctx)
			if err != nil {
				return err
			}
			total = append(total, summary)
			if !syncDrain || summary.Claimed == 0 {
				break
			}
		}
		return printJSON(cmd, total)
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status [item-id]",
	Short: "Show sync counts or one sync item",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if len(args) == 1 {
			item, err := svc.Syncs.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, item)
		}
		counts, err := svc.Syncs.Counts(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, counts)
	},
}

func init() {
	syncEnqueueCmd.Flags().IntVar(&syncPriority, "priority", -1, "queue priority 0-10 (default from plan tier)")
	syncRunCmd.Flags().BoolVar(&syncDrain, "drain", false, "repeat until no sync is pending")

	syncCmd.AddCommand(syncEnqueueCmd, syncBulkCmd, syncRunCmd, syncStatusCmd)
}
