package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"libkiosk/internal/domain/outbox"
	syncdomain "libkiosk/internal/domain/sync"
)

var (
	syncAll    string
	syncStatus bool
	syncProbe  bool
	syncPull   bool
	syncClear  int64
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Drain the outbox to the remote catalog",
	Long: `Without flags sync runs one drain of the pending outbox entries.

  --all     sweep every unsynced row of a table (users or borrowings)
  --status  print per-table sync progress
  --probe   check that the remote catalog answers
  --pull    fetch new books from the remote catalog
  --clear   mark one failed outbox entry as handled`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		engine := app.Engine()
		ctx := cmd.Context()

		switch {
		case syncStatus:
			return showStatus(ctx, engine)
		case syncProbe:
			msg, err := engine.TestConnection(ctx)
			if err != nil {
				return err
			}
			return printResult(msg, map[string]string{"message": msg})
		case syncPull:
			res, err := engine.PullBooks(ctx)
			if err != nil {
				return err
			}
			return printResult(fmt.Sprintf("received %d books: %d created, %d updated, %d failed",
				res.Received, res.Created, res.Updated, res.Failed), res)
		case syncClear > 0:
			if err := engine.Clear(ctx, syncClear); err != nil {
				return err
			}
			return printResult(fmt.Sprintf("entry %d cleared", syncClear), map[string]int64{"cleared": syncClear})
		case syncAll != "":
			table := outbox.Table(syncAll)
			if !table.Valid() {
				return fmt.Errorf("--all takes users or borrowings, got %q", syncAll)
			}
			res, err := engine.SyncAllPending(ctx, table)
			if err != nil {
				return fmt.Errorf("sync %s: %w", table, err)
			}
			return printSyncResult(syncAll, res)
		}

		res, err := engine.Drain(ctx)
		if err != nil {
			return err
		}
		return printSyncResult("outbox", res)
	},
}

func showStatus(ctx context.Context, engine *syncdomain.Engine) error {
	st, err := engine.Status(ctx)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("users: %d/%d synced\nborrowings: %d/%d synced\npending entries: %d\noverall: %.1f%%",
		st.Users.Synced, st.Users.Total,
		st.Borrowings.Synced, st.Borrowings.Total,
		st.PendingEntries, st.OverallPercentage)
	return printResult(text, st)
}

func printSyncResult(scope string, res *syncdomain.Result) error {
	failed := color.GreenString("%d failed", res.Failed)
	if res.Failed > 0 {
		failed = color.RedString("%d failed", res.Failed)
	}
	text := fmt.Sprintf("%s: %d processed, %d synced, %d duplicates, %s in %v",
		scope, res.Processed, res.Synced, res.Duplicates, failed, res.Duration.Round(time.Millisecond))
	for _, e := range res.Errors {
		text += color.YellowString("\n  entry %d (%s %d, %d attempts): %s", e.EntryID, e.Table, e.EntityID, e.Attempts, e.Error)
	}
	return printResult(text, res)
}

func init() {
	syncCmd.Flags().StringVar(&syncAll, "all", "", "sweep every unsynced row of users or borrowings")
	syncCmd.Flags().BoolVar(&syncStatus, "status", false, "show sync progress")
	syncCmd.Flags().BoolVar(&syncProbe, "probe", false, "test the remote connection")
	syncCmd.Flags().BoolVar(&syncPull, "pull", false, "pull new books from the catalog")
	syncCmd.Flags().Int64Var(&syncClear, "clear", 0, "clear the outbox entry with this id")
	syncCmd.MarkFlagsMutuallyExclusive("all", "status", "probe", "pull", "clear")
}
