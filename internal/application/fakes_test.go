package application

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/locus-sync/internal/domain"
	"github.com/bnema/locus-sync/internal/ports"
)

const testDevice = "https://wdm.example.com/devices/dev-1"

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testNow}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) ports.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, timer)
	return timer
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and runs due callbacks on the calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []func()
	for _, timer := range c.timers {
		if timer.stopped || timer.fired || timer.at.After(c.now) {
			continue
		}
		timer.fired = true
		due = append(due, timer.f)
	}
	c.mu.Unlock()

	for _, f := range due {
		f()
	}
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := 0
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired {
			pending++
		}
	}
	return pending
}

type fakeMetadata struct {
	mu           sync.Mutex
	fetchCalls   int
	resolveCalls int
	resolveErr   error
	fetch        func(ctx context.Context, dest domain.Destination) (domain.Metadata, error)
}

func (f *fakeMetadata) ResolveDestination(_ context.Context, dest domain.Destination, kind domain.DestinationType) (domain.ResolvedDestination, error) {
	f.mu.Lock()
	f.resolveCalls++
	err := f.resolveErr
	f.mu.Unlock()
	if err != nil {
		return domain.ResolvedDestination{}, err
	}

	if kind == "" {
		kind = domain.DestinationSipURI
		if strings.Contains(dest.Address, "/conversations/") {
			kind = domain.DestinationConversationURL
		}
	}
	return domain.ResolvedDestination{Destination: domain.AddressDestination(strings.TrimSpace(dest.Address)), Type: kind}, nil
}

func (f *fakeMetadata) FetchMetadata(ctx context.Context, dest domain.Destination, _ domain.DestinationType) (domain.Metadata, error) {
	f.mu.Lock()
	f.fetchCalls++
	fetch := f.fetch
	f.mu.Unlock()
	if fetch == nil {
		return domain.Metadata{Title: "meeting"}, nil
	}
	return fetch(ctx, dest)
}

func (f *fakeMetadata) FetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

type fakeSource struct {
	mu     sync.Mutex
	active domain.ActiveSessions
	remote map[string]domain.ActiveSessions
	err    error
}

func (f *fakeSource) ListActive(context.Context) (domain.ActiveSessions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, f.err
}

func (f *fakeSource) ListRemote(_ context.Context, clusterURL string) (domain.ActiveSessions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remote[clusterURL], nil
}

func (f *fakeSource) set(records ...*domain.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = domain.ActiveSessions{Loci: records}
}

type fakeTeardown struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (f *fakeTeardown) Teardown(_ context.Context, session *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, session.ID)
	return f.err
}

type fakeUploader struct {
	requests chan ports.LogUploadRequest
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{requests: make(chan ports.LogUploadRequest, 8)}
}

func (f *fakeUploader) UploadLogs(_ context.Context, req ports.LogUploadRequest) error {
	f.requests <- req
	return nil
}

type testHarness struct {
	service  *Service
	clock    *fakeClock
	metadata *fakeMetadata
	source   *fakeSource
	teardown *fakeTeardown
	uploader *fakeUploader
	events   *Subscription
}

func newHarness(t *testing.T, cfg Config) *testHarness {
	t.Helper()

	if cfg.DeviceURL == "" {
		cfg.DeviceURL = testDevice
	}
	h := &testHarness{
		clock:    newFakeClock(),
		metadata: &fakeMetadata{},
		source:   &fakeSource{},
		teardown: &fakeTeardown{},
		uploader: newFakeUploader(),
	}
	notifier := NewNotifier(128)
	h.events = notifier.Subscribe()
	t.Cleanup(h.events.Close)

	h.service = NewService(cfg, Dependencies{
		Metadata:    h.metadata,
		Sessions:    h.source,
		LogUploader: h.uploader,
		Teardown:    []ports.SessionTeardown{h.teardown},
		Clock:       h.clock,
		Notifier:    notifier,
	})
	// Drop registry-ready so tests see only what they trigger.
	<-h.events.C
	return h
}

// drain returns every event published so far.
func (h *testHarness) drain() []domain.Event {
	var events []domain.Event
	for {
		select {
		case event := <-h.events.C:
			events = append(events, event)
		default:
			return events
		}
	}
}

func (h *testHarness) route(record *domain.Record) RouteOutcome {
	return h.service.HandleEvent(context.Background(), domain.Envelope{
		EventType: "locus.difference",
		LocusURL:  record.URL,
		Locus:     record,
	})
}

func eventTypes(events []domain.Event) []domain.EventType {
	types := make([]domain.EventType, 0, len(events))
	for _, event := range events {
		types = append(types, event.Type)
	}
	return types
}

type recordOption func(*domain.Record)

func newRecord(url string, opts ...recordOption) *domain.Record {
	record := &domain.Record{
		URL:       url,
		FullState: &domain.FullState{Active: true, State: domain.FullStateActive, Type: domain.RecordTypeMeeting},
		Self:      &domain.Self{State: domain.StateJoined},
	}
	for _, opt := range opts {
		opt(record)
	}
	return record
}

func withSelf(state, reason string, removed bool) recordOption {
	return func(r *domain.Record) {
		r.Self.State = state
		r.Self.Reason = reason
		r.Self.Removed = removed
	}
}

func withDevice(device domain.Device) recordOption {
	return func(r *domain.Record) {
		if device.URL == "" {
			device.URL = testDevice
		}
		r.Self.Devices = append(r.Self.Devices, device)
	}
}

func withBreakout(groupURL, sessionType string) recordOption {
	return func(r *domain.Record) {
		r.Controls = &domain.Controls{Breakout: &domain.BreakoutControl{URL: groupURL, SessionType: sessionType}}
	}
}

func withFullState(state string, active bool) recordOption {
	return func(r *domain.Record) {
		r.FullState.State = state
		r.FullState.Active = active
	}
}

func withReplaces(urls ...string) recordOption {
	return func(r *domain.Record) {
		for _, url := range urls {
			r.Replaces = append(r.Replaces, domain.Replacement{LocusURL: url})
		}
	}
}

func withInfo(info domain.RecordInfo) recordOption {
	return func(r *domain.Record) {
		r.Info = &info
	}
}

func withStart(start time.Time) recordOption {
	return func(r *domain.Record) {
		r.Meeting = &domain.Schedule{StartTime: start}
	}
}

func joinedDevice(correlationID string, replaceAt time.Time) domain.Device {
	device := domain.Device{URL: testDevice, State: domain.StateJoined, CorrelationID: correlationID}
	if !replaceAt.IsZero() {
		device.Replaces = []domain.Replacement{{ReplaceAt: replaceAt}}
	}
	return device
}
