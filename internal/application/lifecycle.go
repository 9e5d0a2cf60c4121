package application

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bnema/locus-sync/internal/domain"
	"github.com/bnema/locus-sync/internal/log"
	"github.com/bnema/locus-sync/internal/ports"
)

// MaxRandomDelay caps the jitter applied to metadata fetches for sessions
// approaching their scheduled start.
const MaxRandomDelay = 3 * time.Minute

type LifecycleOptions struct {
	DeviceURL      string
	AutoUploadLogs bool
	MaxRandomDelay time.Duration
}

// LifecycleManager creates and destroys sessions. Every method expects the
// caller to hold the event loop.
type LifecycleManager struct {
	registry *SessionRegistry
	metadata ports.MetadataProvider
	notifier *Notifier
	loop     *eventLoop
	clock    ports.Clock
	uploader ports.LogUploader
	teardown []ports.SessionTeardown
	opts     LifecycleOptions

	randDuration func(max time.Duration) time.Duration
}

func NewLifecycleManager(
	registry *SessionRegistry,
	metadata ports.MetadataProvider,
	notifier *Notifier,
	loop *eventLoop,
	clock ports.Clock,
	uploader ports.LogUploader,
	teardown []ports.SessionTeardown,
	opts LifecycleOptions,
) *LifecycleManager {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if opts.MaxRandomDelay <= 0 {
		opts.MaxRandomDelay = MaxRandomDelay
	}

	return &LifecycleManager{
		registry:     registry,
		metadata:     metadata,
		notifier:     notifier,
		loop:         loop,
		clock:        clock,
		uploader:     uploader,
		teardown:     teardown,
		opts:         opts,
		randDuration: uniformDuration,
	}
}

func uniformDuration(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max + 1)
}

// Create returns the session for a destination, reusing a live one when the
// normalized target is already known.
func (m *LifecycleManager) Create(ctx context.Context, req CreateRequest) (*domain.Session, error) {
	resolved, err := m.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	if existing := m.findExisting(resolved); existing != nil {
		existing.AttachCallState(req.CallState)
		log.Debug().
			Str("session_id", existing.ID).
			Str("destination", resolved.Destination.String()).
			Msg("reusing existing session")
		return existing, nil
	}

	req.Destination = resolved.Destination
	req.Kind = resolved.Type
	return m.createNew(ctx, req)
}

func (m *LifecycleManager) resolve(ctx context.Context, req CreateRequest) (domain.ResolvedDestination, error) {
	if req.Destination.Record != nil || req.Kind.ServerOriginated() {
		return domain.ResolvedDestination{Destination: req.Destination, Type: req.Kind}, nil
	}

	var (
		resolved domain.ResolvedDestination
		err      error
	)
	m.loop.suspend(func() {
		resolved, err = m.metadata.ResolveDestination(ctx, req.Destination, req.Kind)
	})
	if err != nil {
		return domain.ResolvedDestination{}, fmt.Errorf("resolve destination %q: %w", req.Destination, err)
	}
	if resolved.Destination.Address == "" && resolved.Destination.Record == nil {
		resolved.Destination = req.Destination
	}
	if resolved.Type == "" {
		resolved.Type = req.Kind
	}
	return resolved, nil
}

func (m *LifecycleManager) findExisting(resolved domain.ResolvedDestination) *domain.Session {
	dest := resolved.Destination
	if dest.Record != nil {
		return m.registry.GetByKey(domain.KeyLocusURL, domain.NormalizeURL(dest.Record.URL))
	}

	if resolved.Type == domain.DestinationConversationURL {
		// Calendar sessions share the conversation with instant ones.
		if found := m.registry.GetByKey(domain.KeyConversationURL, dest.Address); found != nil && !found.Scheduled() {
			return found
		}
	}
	return m.registry.GetByKey(domain.KeySipURI, dest.Address)
}

func (m *LifecycleManager) createNew(ctx context.Context, req CreateRequest) (*domain.Session, error) {
	session := domain.NewSession(req.Destination, req.Kind, m.clock.Now())
	if record := req.Destination.Record; record != nil {
		// Resume the join this device already holds in the record.
		if correlationID := record.CorrelationIDFor(m.opts.DeviceURL); correlationID != "" {
			session.SetCorrelationID(correlationID)
		}
		session.MergeRecord(record, m.opts.DeviceURL)
	} else if req.Kind == domain.DestinationConversationURL {
		session.SetConversationURL(req.Destination.Address)
	} else {
		session.SetSipURI(req.Destination.Address)
	}
	session.AttachCallState(req.CallState)

	// Registered before any I/O so concurrent events for the same record find it.
	m.registry.Set(session)

	waiting := m.waitingTime(req.Destination)
	active := req.Destination.Record.IsActive()

	var fetchErr error
	switch {
	case req.Prefetched != nil:
		session.SetMetadata(*req.Prefetched)
	case req.Kind.SkipsMetadata():
		log.Debug().Str("session_id", session.ID).Msg("direct call, skipping metadata fetch")
	case req.UseRandomDelay && waiting > 0 && !active:
		m.scheduleFetch(session, waiting)
		session.SetMetadata(domain.MetadataFromRecord(req.Destination.Record))
	default:
		fetchErr = m.fetchMetadata(ctx, session)
	}

	if fetchErr != nil {
		switch {
		case domain.IsMetadataAuthError(fetchErr):
			log.Info().Err(fetchErr).Str("session_id", session.ID).Msg("metadata needs credentials")
		case req.FailOnMissingMetadata:
			m.Destroy(ctx, session, domain.RemovedMissingMetadata)
			return nil, fmt.Errorf("create session: %w: %w", domain.ErrMissingMetadata, fetchErr)
		default:
			log.Info().
				Err(fetchErr).
				Str("session_id", session.ID).
				Msg("no metadata, assuming direct call or wireless share")
		}
	}

	if !req.Kind.ServerOriginated() {
		if session.SipURI() == "" && req.Destination.Address != "" {
			session.SetSipURI(req.Destination.Address)
		}
		if m.registry.Get(session.ID) != nil {
			m.notifier.SessionAdded(session, domain.AddedKindFor(req.Kind))
		}
	}

	return session, nil
}

func (m *LifecycleManager) waitingTime(dest domain.Destination) time.Duration {
	start, ok := dest.StartTime()
	if !ok {
		return 0
	}
	limit := min(start.Sub(m.clock.Now()), m.opts.MaxRandomDelay)
	if limit <= 0 {
		return 0
	}
	return m.randDuration(limit)
}

func (m *LifecycleManager) fetchMetadata(ctx context.Context, session *domain.Session) error {
	var (
		metadata domain.Metadata
		err      error
	)
	m.loop.suspend(func() {
		metadata, err = m.metadata.FetchMetadata(ctx, session.Destination, session.Type)
	})
	if err != nil {
		return fmt.Errorf("fetch metadata: %w", err)
	}
	if m.registry.Get(session.ID) == nil {
		log.Debug().Str("session_id", session.ID).Msg("session destroyed during metadata fetch")
		return nil
	}

	if metadata.FetchedAt.IsZero() {
		metadata.FetchedAt = m.clock.Now()
	}
	session.SetMetadata(metadata)
	return nil
}

// delayedFetch is a metadata fetch scheduled on the clock. Once cancelled it
// never runs; once it has started it ignores Cancel.
type delayedFetch struct {
	mu        sync.Mutex
	timer     ports.Timer
	cancelled bool
	started   bool
}

func (t *delayedFetch) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancelled || t.started {
		return
	}
	t.cancelled = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *delayedFetch) claim() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancelled || t.started {
		return false
	}
	t.started = true
	return true
}

func (m *LifecycleManager) scheduleFetch(session *domain.Session, wait time.Duration) {
	task := &delayedFetch{}
	task.mu.Lock()
	task.timer = m.clock.AfterFunc(wait, func() { m.runDelayedFetch(session, task) })
	task.mu.Unlock()

	session.SetPendingFetch(task)
	log.Debug().
		Str("session_id", session.ID).
		Dur("wait", wait).
		Msg("scheduled delayed metadata fetch")
}

func (m *LifecycleManager) runDelayedFetch(session *domain.Session, task *delayedFetch) {
	if !task.claim() {
		return
	}

	m.loop.run(func() {
		if m.registry.Get(session.ID) == nil {
			return
		}
		session.SetPendingFetch(nil)

		if err := m.fetchMetadata(context.Background(), session); err != nil {
			log.Info().Err(err).Str("session_id", session.ID).Msg("delayed metadata fetch failed")
		}
	})
}

// Destroy detaches the session and emits session-removed. Destroying a session
// that is no longer registered is a no-op.
func (m *LifecycleManager) Destroy(ctx context.Context, session *domain.Session, reason domain.RemovalReason) {
	if session == nil || m.registry.Get(session.ID) == nil {
		return
	}

	session.CancelPendingFetch()

	var teardownErr error
	for _, hook := range m.teardown {
		if err := hook.Teardown(ctx, session); err != nil {
			teardownErr = errors.Join(teardownErr, err)
		}
	}
	if teardownErr != nil {
		log.Warn().Err(teardownErr).Str("session_id", session.ID).Msg("session teardown failed")
	}

	if m.opts.AutoUploadLogs && m.uploader != nil {
		req := logUploadRequest(session)
		uploadCtx := context.WithoutCancel(ctx)
		go func() {
			if err := m.uploader.UploadLogs(uploadCtx, req); err != nil {
				log.Warn().Err(err).Str("correlation_id", req.CorrelationID).Msg("log upload failed")
			}
		}()
	}

	m.registry.Delete(session.ID)
	m.notifier.SessionRemoved(session.ID, reason)
	log.Info().
		Str("session_id", session.ID).
		Str("reason", string(reason)).
		Msg("session removed")
}

// RequestLogUpload forwards a session's log upload request when automatic
// uploads are enabled.
func (m *LifecycleManager) RequestLogUpload(ctx context.Context, session *domain.Session) error {
	if !m.opts.AutoUploadLogs || m.uploader == nil || session == nil {
		return nil
	}
	if err := m.uploader.UploadLogs(ctx, logUploadRequest(session)); err != nil {
		return fmt.Errorf("upload logs: %w", err)
	}
	return nil
}

func logUploadRequest(session *domain.Session) ports.LogUploadRequest {
	req := ports.LogUploadRequest{
		CorrelationID: session.CorrelationID(),
		LocusURL:      session.LocusURL(),
		MeetingNumber: session.Key(domain.KeyMeetingNumber),
	}
	if record := session.Record(); record != nil && record.FullState != nil {
		req.CallStart = record.FullState.LastActive
	}
	return req
}
