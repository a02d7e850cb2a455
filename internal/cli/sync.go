package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/spellsync/internal/remote"
	"github.com/example/spellsync/internal/wordlist"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync engine, scheduled jobs and word list watcher",
		Long: `Runs in the foreground until interrupted. The sync engine probes the
remote store and flushes queued writes whenever it is reachable, the
scheduler reconciles periodically and sends streak reminders, and, when
wordlists.watch is enabled, edits to the word list directory are picked up
without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts.app)
		},
	}
}

func runServe(ctx context.Context, app *App) error {
	sched, err := app.Scheduler()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Engine.Run(ctx)
	})
	if app.Config.WordLists.Watch {
		w := wordlist.NewWatcher(app.Catalog, app.Logger)
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	app.Logger.Info("Serving", zap.String("user_id", app.Config.UserID))
	return g.Wait()
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Flush queued writes and reconcile with the remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, opts.app)
		},
	}
}

func runSync(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	report, err := app.Engine.SyncNow(ctx)
	if remote.IsUnavailable(err) {
		n, lenErr := app.Queue.Len(ctx)
		if lenErr != nil {
			return lenErr
		}
		fmt.Fprintf(out, "Remote store unreachable, %d operation(s) stay queued\n", n)
		return nil
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	f := report.Flush
	fmt.Fprintf(out, "Flushed: %d applied, %d failed, %d dropped, %d remaining\n",
		f.Applied, f.Failed, f.Dropped, f.Remaining)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLLECTION\tPUSHED\tPULLED\tUNCHANGED")
	r := report.Reconcile
	for _, row := range []struct {
		name                      string
		pushed, pulled, unchanged int
	}{
		{"settings", r.Settings.Pushed, r.Settings.Pulled, r.Settings.Unchanged},
		{"progress", r.Progress.Pushed, r.Progress.Pulled, r.Progress.Unchanged},
		{"statistics", r.Statistics.Pushed, r.Statistics.Pulled, r.Statistics.Unchanged},
		{"results", r.Results.Pushed, r.Results.Pulled, r.Results.Unchanged},
	} {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", row.name, row.pushed, row.pulled, row.unchanged)
	}
	return tw.Flush()
}

func newQueueCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show writes waiting for the remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueue(cmd, opts.app)
		},
	}
}

func runQueue(cmd *cobra.Command, app *App) error {
	ops, err := app.Queue.Pending(cmd.Context(), app.Config.UserID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(ops) == 0 {
		fmt.Fprintln(out, "Queue is empty")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tDOCUMENT\tUPDATED\tRETRIES\tLAST ERROR")
	for _, op := range ops {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			op.ID, op.Kind, op.DocID, op.UpdatedAt.Local().Format("2006-01-02 15:04:05"), op.RetryCount, op.LastError)
	}
	return tw.Flush()
}
