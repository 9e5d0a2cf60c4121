package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/locus-sync/internal/application"
	"github.com/bnema/locus-sync/internal/domain"
	"github.com/bnema/locus-sync/internal/log"
	"github.com/spf13/cobra"
)

const unregisterTimeout = 10 * time.Second

func newWatchCmd(app *app) *cobra.Command {
	var skipSync bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Register this device and stream session lifecycle events until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), app, !skipSync)
		},
	}

	cmd.Flags().BoolVar(&skipSync, "no-sync", false, "Skip the initial reconciliation after registering")

	return cmd
}

func runWatch(ctx context.Context, out io.Writer, app *app, initialSync bool) error {
	sub := app.service.Subscribe()
	defer sub.Close()

	if err := app.service.Register(ctx); err != nil {
		return fmt.Errorf("register device: %w", err)
	}
	defer func() {
		unregisterCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unregisterTimeout)
		defer cancel()
		if err := app.service.Unregister(unregisterCtx); err != nil {
			log.Warn().Err(err).Msg("unregister device")
		}
	}()

	if initialSync {
		result, err := app.service.Sync(ctx, application.SyncOptions{})
		if err != nil {
			log.Warn().Err(err).Msg("initial sync")
		} else {
			log.Info().Int("routed", result.Routed).Int("pruned", result.Pruned).Msg("initial sync done")
		}
		if err := app.persistSnapshot(ctx); err != nil {
			log.Warn().Err(err).Msg("persist snapshot")
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := app.persistSnapshot(ctx); err != nil {
				log.Warn().Err(err).Msg("persist snapshot")
			}
			if _, err := fmt.Fprintln(out, formatEvent(event, app.now())); err != nil {
				return err
			}
		}
	}
}

func formatEvent(event domain.Event, at time.Time) string {
	stamp := at.Format(time.TimeOnly)
	switch event.Type {
	case domain.EventSessionAdded:
		if event.Session == nil {
			return fmt.Sprintf("%s %s %s", stamp, event.Type, event.Kind)
		}
		summary := event.Session.Summary()
		return fmt.Sprintf("%s %s %s id=%s locus=%s", stamp, event.Type, event.Kind, summary.ID, summary.LocusURL)
	case domain.EventSessionRemoved:
		return fmt.Sprintf("%s %s id=%s reason=%s", stamp, event.Type, event.SessionID, event.Reason)
	default:
		return fmt.Sprintf("%s %s", stamp, event.Type)
	}
}
