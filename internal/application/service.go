package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/locus-sync/internal/domain"
	"github.com/bnema/locus-sync/internal/log"
	"github.com/bnema/locus-sync/internal/ports"
)

type Config struct {
	DeviceURL        string
	Guest            bool
	AutoUploadLogs   bool
	SubscriberBuffer int
	MaxRandomDelay   time.Duration

	// DisableRandomDelay fetches metadata for pushed sessions immediately.
	DisableRandomDelay bool
}

type Dependencies struct {
	Metadata    ports.MetadataProvider
	Sessions    ports.ActiveSessionSource
	Device      ports.DeviceRegistrar
	Events      ports.EventChannel
	LogUploader ports.LogUploader
	Teardown    []ports.SessionTeardown
	Clock       ports.Clock
	// Notifier lets callers subscribe before registry-ready is published.
	Notifier *Notifier
}

// Service owns the session registry and coordinates routing, creation and
// reconciliation. It implements ports.EventHandler for the event channel.
type Service struct {
	registry   *SessionRegistry
	resolver   *SessionKeyResolver
	lifecycle  *LifecycleManager
	router     *EventRouter
	reconciler *SyncReconciler
	deferred   *DeferredChildren
	notifier   *Notifier
	loop       *eventLoop
	clock      ports.Clock

	device      ports.DeviceRegistrar
	events      ports.EventChannel
	randomDelay bool

	regMu      sync.Mutex
	registered bool
}

var _ ports.EventHandler = (*Service)(nil)

func NewService(cfg Config, deps Dependencies) *Service {
	clock := deps.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NewNotifier(cfg.SubscriberBuffer)
	}

	loop := &eventLoop{}
	registry := NewSessionRegistry()
	deferred := NewDeferredChildren()
	resolver := NewSessionKeyResolver(registry, cfg.DeviceURL)
	lifecycle := NewLifecycleManager(registry, deps.Metadata, notifier, loop, clock, deps.LogUploader, deps.Teardown, LifecycleOptions{
		DeviceURL:      cfg.DeviceURL,
		AutoUploadLogs: cfg.AutoUploadLogs,
		MaxRandomDelay: cfg.MaxRandomDelay,
	})
	router := NewEventRouter(registry, resolver, lifecycle, deferred, notifier, cfg.DeviceURL)
	guest := cfg.Guest
	reconciler := NewSyncReconciler(registry, router, lifecycle, deferred, deps.Sessions, loop, func() bool { return guest })

	s := &Service{
		registry:    registry,
		resolver:    resolver,
		lifecycle:   lifecycle,
		router:      router,
		reconciler:  reconciler,
		deferred:    deferred,
		notifier:    notifier,
		loop:        loop,
		clock:       clock,
		device:      deps.Device,
		events:      deps.Events,
		randomDelay: !cfg.DisableRandomDelay,
	}
	notifier.Publish(domain.Event{Type: domain.EventRegistryReady})
	return s
}

func (s *Service) Subscribe() *Subscription {
	return s.notifier.Subscribe()
}

// Create returns the session for a destination. Concurrent calls for the same
// normalized destination return the same session.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Session, error) {
	var (
		session *domain.Session
		err     error
	)
	s.loop.run(func() {
		session, err = s.lifecycle.Create(ctx, req)
	})
	return session, err
}

func (s *Service) GetByType(key domain.SessionKey, value string) *domain.Session {
	return s.registry.GetByKey(key, value)
}

func (s *Service) GetAll() []*domain.Session {
	return s.registry.GetAll()
}

// GetScheduled returns the sessions created for calendar meetings.
func (s *Service) GetScheduled() []*domain.Session {
	var scheduled []*domain.Session
	for _, session := range s.registry.GetAll() {
		if session.Scheduled() {
			scheduled = append(scheduled, session)
		}
	}
	return scheduled
}

func (s *Service) Sync(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	return s.reconciler.Sync(ctx, opts)
}

// HandleEvent routes one pushed envelope. Routing failures are logged and
// never returned so one bad event cannot stop delivery.
func (s *Service) HandleEvent(ctx context.Context, envelope domain.Envelope) RouteOutcome {
	if !envelope.IsLocusEvent() {
		return RouteIgnored
	}

	outcome := RouteIgnored
	s.loop.run(func() {
		var err error
		outcome, err = s.router.Route(ctx, envelope.Locus, RouteOptions{
			UseRandomDelay: s.randomDelay,
			LocusURL:       envelope.LocusURL,
		})
		if err != nil {
			log.Error().
				Err(err).
				Str("event_type", envelope.EventType).
				Str("locus_url", envelope.LocusURL).
				Msg("route locus event")
		}
	})
	return outcome
}

// Destroy removes a session, for instance on a client leave request.
func (s *Service) Destroy(ctx context.Context, id string, reason domain.RemovalReason) error {
	var err error
	s.loop.run(func() {
		session := s.registry.Get(id)
		if session == nil {
			err = fmt.Errorf("destroy session %s: %w", id, domain.ErrSessionNotFound)
			return
		}
		s.lifecycle.Destroy(ctx, session, reason)
	})
	return err
}

func (s *Service) RequestLogUpload(ctx context.Context, id string) error {
	session := s.registry.Get(id)
	if session == nil {
		return fmt.Errorf("upload logs for %s: %w", id, domain.ErrSessionNotFound)
	}
	return s.lifecycle.RequestLogUpload(ctx, session)
}

func (s *Service) Snapshot() domain.Snapshot {
	sessions := s.registry.GetAll()
	snapshot := domain.Snapshot{TakenAt: s.clock.Now(), Sessions: make([]domain.SessionSummary, 0, len(sessions))}
	for _, session := range sessions {
		snapshot.Sessions = append(snapshot.Sessions, session.Summary())
	}
	return snapshot
}

// Register registers the device and opens the event channel. Calling it on a
// registered service does nothing.
func (s *Service) Register(ctx context.Context) error {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	if s.registered {
		return nil
	}
	if s.device != nil && !s.device.CanAuthorize() {
		return fmt.Errorf("register device: %w", domain.ErrCannotAuthorize)
	}

	if s.device != nil {
		if err := s.device.Register(ctx); err != nil {
			return fmt.Errorf("register device: %w", err)
		}
	}
	if s.events != nil {
		if err := s.events.Connect(ctx, s); err != nil {
			if s.device != nil {
				if rollbackErr := s.device.Unregister(ctx); rollbackErr != nil {
					return fmt.Errorf("connect event channel and rollback device: %w", errors.Join(err, rollbackErr))
				}
			}
			return fmt.Errorf("connect event channel: %w", err)
		}
	}

	s.registered = true
	s.notifier.Publish(domain.Event{Type: domain.EventRegistryRegistered})
	log.Info().Msg("device registered")
	return nil
}

// Unregister closes the event channel and unregisters the device. Calling it
// on an unregistered service does nothing.
func (s *Service) Unregister(ctx context.Context) error {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	if !s.registered {
		return nil
	}

	var err error
	if s.events != nil {
		if disconnectErr := s.events.Disconnect(ctx); disconnectErr != nil {
			err = errors.Join(err, fmt.Errorf("disconnect event channel: %w", disconnectErr))
		}
	}
	if s.device != nil {
		if unregisterErr := s.device.Unregister(ctx); unregisterErr != nil {
			err = errors.Join(err, fmt.Errorf("unregister device: %w", unregisterErr))
		}
	}

	s.registered = false
	s.notifier.Publish(domain.Event{Type: domain.EventRegistryUnregistered})
	log.Info().Msg("device unregistered")
	return err
}

func (s *Service) Registered() bool {
	s.regMu.Lock()
	defer s.regMu.Unlock()
	return s.registered
}

func (s *Service) HandleEnvelope(ctx context.Context, envelope domain.Envelope) {
	s.HandleEvent(ctx, envelope)
}

// HandleOnline resyncs after the event channel (re)connects, since events may
// have been missed while it was down.
func (s *Service) HandleOnline(ctx context.Context) {
	if _, err := s.Sync(ctx, SyncOptions{}); err != nil {
		log.Error().Err(err).Msg("sync after reconnect")
	}
}

func (s *Service) HandleOffline(context.Context) {
	s.notifier.Publish(domain.Event{Type: domain.EventSyncNetworkDisconnected})
}
