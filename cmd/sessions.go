package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sessionsrender "github.com/bnema/locus-sync/internal/adapters/render/sessions"
	"github.com/bnema/locus-sync/internal/domain"
	"github.com/spf13/cobra"
)

const defaultStaleAfter = time.Hour

func newSessionsCmd(app *app) *cobra.Command {
	var asJSON bool
	var staleAfter time.Duration

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Show the last persisted session snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshot, err := app.snapshots.Load(cmd.Context())
			if err != nil && !errors.Is(err, domain.ErrSnapshotNotFound) {
				return fmt.Errorf("load session snapshot: %w", err)
			}
			return writeSnapshotOutput(cmd, app, snapshot, staleAfter, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the snapshot as JSON")
	cmd.Flags().DurationVar(&staleAfter, "stale-after", defaultStaleAfter, "Flag snapshots older than this")

	return cmd
}

func writeSnapshotOutput(cmd *cobra.Command, app *app, snapshot domain.Snapshot, staleAfter time.Duration, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	}

	rendered, err := app.renderSessions(snapshot, sessionsrender.RenderOptions{
		Now:        app.now(),
		StaleAfter: staleAfter,
	})
	if err != nil {
		return fmt.Errorf("render sessions: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
