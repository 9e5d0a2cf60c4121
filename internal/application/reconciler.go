package application

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/bnema/locus-sync/internal/domain"
	"github.com/bnema/locus-sync/internal/log"
	"github.com/bnema/locus-sync/internal/ports"
)

// SyncReconciler brings the registry in line with the server's list of
// active sessions.
type SyncReconciler struct {
	registry  *SessionRegistry
	router    *EventRouter
	lifecycle *LifecycleManager
	deferred  *DeferredChildren
	source    ports.ActiveSessionSource
	loop      *eventLoop
	guest     func() bool
}

func NewSyncReconciler(
	registry *SessionRegistry,
	router *EventRouter,
	lifecycle *LifecycleManager,
	deferred *DeferredChildren,
	source ports.ActiveSessionSource,
	loop *eventLoop,
	guest func() bool,
) *SyncReconciler {
	if guest == nil {
		guest = func() bool { return false }
	}
	return &SyncReconciler{
		registry:  registry,
		router:    router,
		lifecycle: lifecycle,
		deferred:  deferred,
		source:    source,
		loop:      loop,
		guest:     guest,
	}
}

// Sync runs one reconciliation pass. It takes the event loop itself and
// releases it while the server list is fetched.
func (s *SyncReconciler) Sync(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	if s.guest() {
		log.Debug().Msg("unverified guest, skipping sync")
		return SyncResult{Skipped: true}, nil
	}

	records, err := s.fetchAll(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	// Sessions created by routed events during this pass are never pruned.
	known := make(map[string]struct{})
	for _, session := range s.registry.GetAll() {
		known[session.ID] = struct{}{}
	}

	var result SyncResult
	s.loop.run(func() {
		result = s.apply(ctx, records, known, opts)
	})

	log.Info().
		Int("records", len(records)).
		Int("routed", result.Routed).
		Int("deferred", result.Deferred).
		Int("pruned", result.Pruned).
		Msg("sessions synced")
	return result, nil
}

// fetchAll lists active sessions and follows remote cluster links. Remote
// lists are fetched concurrently and appended in cluster order.
func (s *SyncReconciler) fetchAll(ctx context.Context) ([]*domain.Record, error) {
	active, err := s.source.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w: %w", domain.ErrSyncTransport, err)
	}
	if len(active.RemoteClusterURLs) == 0 {
		return active.Loci, nil
	}

	remote := make([][]*domain.Record, len(active.RemoteClusterURLs))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, clusterURL := range active.RemoteClusterURLs {
		group.Go(func() error {
			list, err := s.source.ListRemote(groupCtx, clusterURL)
			if err != nil {
				return fmt.Errorf("list remote sessions %s: %w: %w", clusterURL, domain.ErrSyncTransport, err)
			}
			remote[i] = list.Loci
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	records := append([]*domain.Record(nil), active.Loci...)
	for _, list := range remote {
		records = append(records, list...)
	}
	return records, nil
}

func (s *SyncReconciler) apply(ctx context.Context, records []*domain.Record, known map[string]struct{}, opts SyncOptions) SyncResult {
	var (
		result   SyncResult
		mains    []*domain.Record
		children []*domain.Record
		batch    = make(map[string]struct{}, len(records))
	)

	mainGroups := map[string]struct{}{}
	for _, record := range records {
		if record == nil {
			continue
		}
		batch[domain.NormalizeURL(record.URL)] = struct{}{}
		if !record.IsBreakout() {
			mains = append(mains, record)
			if group := record.BreakoutGroupURL(); group != "" {
				mainGroups[group] = struct{}{}
			}
			continue
		}
		if !record.ValidBreakout() {
			log.Debug().Str("locus_url", record.URL).Msg("skipping breakout record that is not joined")
			continue
		}
		children = append(children, record)
	}

	// Deferred children count as active so a flush later in this pass is not
	// undone by the prune.
	active := make(map[string]struct{}, len(mains)+len(children))
	for _, record := range append(append([]*domain.Record(nil), mains...), children...) {
		active[domain.NormalizeURL(record.URL)] = struct{}{}
	}

	toRoute := mains
	for _, child := range children {
		_, mainInBatch := mainGroups[child.BreakoutGroupURL()]
		if mainInBatch && s.router.Match(child) == nil && s.registry.GetByGroupURL(child.BreakoutGroupURL()) == nil {
			s.deferred.Add(child)
			result.Deferred++
			continue
		}
		toRoute = append(toRoute, child)
	}

	for _, record := range toRoute {
		outcome, err := s.router.Route(ctx, record, RouteOptions{})
		if err != nil {
			log.Warn().Err(err).Str("locus_url", record.URL).Msg("route synced record")
			continue
		}
		if outcome == RouteDeferred {
			result.Deferred++
			continue
		}
		result.Routed++
	}

	s.deferred.Retain(batch)

	for _, session := range s.registry.GetAll() {
		if _, ok := known[session.ID]; !ok {
			continue
		}
		url := session.LocusURL()
		if url == "" && !opts.PruneNonServerSessions {
			continue
		}
		if _, ok := active[url]; ok {
			continue
		}
		s.lifecycle.Destroy(ctx, session, domain.RemovedNoSessionsToSync)
		result.Pruned++
	}

	return result
}
