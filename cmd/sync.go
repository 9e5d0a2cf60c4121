package cmd

import (
	"context"
	"fmt"

	"github.com/bnema/locus-sync/internal/application"
	"github.com/spf13/cobra"
)

func newSyncCmd(app *app) *cobra.Command {
	var pruneAll bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the registry with the server's active sessions once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := runSyncWithProgress(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context) (application.SyncResult, error) {
				return app.service.Sync(ctx, application.SyncOptions{PruneNonServerSessions: pruneAll})
			})
			if err != nil {
				return fmt.Errorf("sync sessions: %w", err)
			}
			if result.Skipped {
				_, err := fmt.Fprintln(cmd.ErrOrStderr(), "sync skipped: guest clients have no server-side sessions")
				return err
			}

			if err := app.persistSnapshot(cmd.Context()); err != nil {
				return err
			}
			if !asJSON {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "routed %d, deferred %d, pruned %d\n", result.Routed, result.Deferred, result.Pruned)
			}
			return writeSnapshotOutput(cmd, app, app.service.Snapshot(), defaultStaleAfter, asJSON)
		},
	}

	cmd.Flags().BoolVar(&pruneAll, "prune-all", false, "Also remove sessions that were never attached to a server record")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the resulting snapshot as JSON")

	return cmd
}
