package application

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/locus-sync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteCreatesSessionForUnknownRecord(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	assert.Equal(t, RouteCreated, h.route(newRecord("https://locus/1")))

	session := h.service.GetByType(domain.KeyLocusURL, "https://locus/1")
	require.NotNil(t, session)
	assert.Equal(t, domain.DestinationLocusID, session.Type)

	events := h.drain()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventSessionAdded, events[0].Type)
	assert.Equal(t, domain.AddedJoin, events[0].Kind)
	assert.Same(t, session, events[0].Session)
}

func TestRouteTagsIncomingCalls(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	call := newRecord("https://locus/call", withSelf(domain.StateIdle, "", false))
	call.FullState.Type = domain.RecordTypeCall

	require.Equal(t, RouteCreated, h.route(call))
	events := h.drain()
	require.Len(t, events, 1)
	assert.Equal(t, domain.AddedIncoming, events[0].Kind)
}

func TestRouteSelfRemovedDestroysSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.route(newRecord("u1"))
	session := h.service.GetByType(domain.KeyLocusURL, "u1")
	require.NotNil(t, session)
	h.drain()

	outcome := h.route(newRecord("u1", withSelf(domain.StateLeft, "", true)))

	assert.Equal(t, RouteRemoved, outcome)
	assert.Nil(t, h.service.GetByType(domain.KeyLocusURL, "u1"))
	events := h.drain()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventSessionRemoved, events[0].Type)
	assert.Equal(t, session.ID, events[0].SessionID)
	assert.Equal(t, domain.RemovedSelfRemoved, events[0].Reason)
}

func TestRouteDoesNotResurrectEndedSessions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		record *domain.Record
	}{
		{name: "inactive", record: newRecord("https://locus/ended", withFullState(domain.FullStateInactive, false))},
		{name: "left and removed", record: newRecord("https://locus/ended", withSelf(domain.StateLeft, "", true))},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, Config{})
			assert.Equal(t, RouteIgnored, h.route(tc.record))
			assert.Empty(t, h.service.GetAll())
			assert.Empty(t, h.drain())
		})
	}
}

func TestRouteFollowsReplacementChain(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.route(newRecord("https://locus/old"))
	session := h.service.GetByType(domain.KeyLocusURL, "https://locus/old")
	require.NotNil(t, session)
	h.drain()

	outcome := h.route(newRecord("https://locus/new", withReplaces("https://locus/older", "https://locus/old")))

	assert.Equal(t, RouteUpdated, outcome)
	assert.Len(t, h.service.GetAll(), 1)
	assert.Same(t, session, h.service.GetByType(domain.KeyLocusURL, "https://locus/new"))
	assert.Empty(t, h.drain())
}

func TestRouteMatcherOrder(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	bySip, err := h.service.Create(context.Background(), CreateRequest{Destination: domain.AddressDestination("bob@example.com")})
	require.NoError(t, err)
	byConversation, err := h.service.Create(context.Background(), CreateRequest{
		Destination: domain.AddressDestination("https://conv.example.com/conversations/c1"),
	})
	require.NoError(t, err)

	router := h.service.router

	withCallback := newRecord("https://locus/x")
	withCallback.Self.CallbackInfo = &domain.CallbackInfo{CallbackAddress: "bob@example.com"}
	withCallback.ConversationURL = "https://conv.example.com/conversations/c1"
	assert.Same(t, bySip, router.Match(withCallback))

	conversationOnly := newRecord("https://locus/y")
	conversationOnly.ConversationURL = "https://conv.example.com/conversations/c1"
	assert.Same(t, byConversation, router.Match(conversationOnly))

	unified := newRecord("https://locus/z", withInfo(domain.RecordInfo{IsUnifiedSpaceMeeting: true}))
	unified.ConversationURL = "https://conv.example.com/conversations/c1"
	assert.Nil(t, router.Match(unified))

	byCorrelation := newRecord("https://locus/w", withDevice(joinedDevice(bySip.CorrelationID(), time.Time{})))
	byCorrelation.ConversationURL = "https://conv.example.com/conversations/c1"
	assert.Same(t, bySip, router.Match(byCorrelation))
}

func TestRouteIgnoresStaleMainRecord(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	t1 := testNow
	t2 := testNow.Add(time.Minute)

	main := newRecord("https://locus/main",
		withBreakout(groupURL, domain.BreakoutSessionMain),
		withDevice(joinedDevice("corr-1", time.Time{})),
	)
	require.Equal(t, RouteCreated, h.route(main))
	child := newRecord("https://locus/child",
		withBreakout(groupURL, domain.BreakoutSessionBreakout),
		withDevice(joinedDevice("corr-child", t2)),
	)
	require.Equal(t, RouteCreated, h.route(child))
	childSession := h.service.GetByType(domain.KeyLocusURL, "https://locus/child")
	require.NotNil(t, childSession)
	// The breakout join carries the main session's correlation id.
	childSession.SetCorrelationID("corr-main-join")
	mainSession := h.service.GetByType(domain.KeyLocusURL, "https://locus/main")
	mainSession.SetCorrelationID("corr-main-join")
	childSession.MergeRecord(newRecord("https://locus/child",
		withBreakout(groupURL, domain.BreakoutSessionBreakout),
		withDevice(joinedDevice("corr-main-join", t2)),
	), testDevice)
	h.drain()

	stale := newRecord("https://locus/main",
		withBreakout(groupURL, domain.BreakoutSessionMain),
		withDevice(joinedDevice("corr-main-join", t1)),
	)

	assert.Equal(t, RouteIgnored, h.route(stale))
	assert.NotNil(t, h.service.GetByType(domain.KeyLocusURL, "https://locus/main"))
	assert.Equal(t, stale, mainSession.Record())
	assert.NotSame(t, stale, mainSession.Record())
	assert.Empty(t, h.drain())
}

func TestRouteDefersBreakoutWithoutKnownGroup(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	child := newRecord("u2", withBreakout("g1", ""))

	assert.Equal(t, RouteDeferred, h.route(child))
	assert.Empty(t, h.service.GetAll())
	assert.Equal(t, 1, h.service.deferred.Len())
	assert.Empty(t, h.drain())
}

func TestRouteFlushesDeferredBreakoutWhenParentIsCreated(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	child := newRecord("https://locus/child", withBreakout(groupURL, domain.BreakoutSessionBreakout))
	require.Equal(t, RouteDeferred, h.route(child))

	require.Equal(t, RouteCreated, h.route(newRecord("https://locus/main", withBreakout(groupURL, domain.BreakoutSessionMain))))

	childSession := h.service.GetByType(domain.KeyLocusURL, "https://locus/child")
	require.NotNil(t, childSession)
	assert.Equal(t, domain.BreakoutInfo{URL: groupURL, IsActiveBreakout: true}, childSession.Breakout())
	assert.Equal(t, 0, h.service.deferred.Len())
	assert.Len(t, h.service.GetAll(), 2)

	var added int
	for _, event := range h.drain() {
		if event.Type == domain.EventSessionAdded {
			added++
		}
	}
	assert.Equal(t, 2, added)
}

func TestRouteKeepsLocusURLUnique(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	h.metadata.fetch = func(context.Context, domain.Destination) (domain.Metadata, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return domain.Metadata{}, nil
	}

	done := make(chan RouteOutcome, 1)
	go func() { done <- h.route(newRecord("https://locus/1")) }()
	<-started

	// Same record arrives while the first creation is still fetching.
	second := h.route(newRecord("https://locus/1", withInfo(domain.RecordInfo{WebExMeetingID: "777"})))
	close(release)

	assert.Equal(t, RouteUpdated, second)
	assert.Equal(t, RouteCreated, <-done)
	require.Len(t, h.service.GetAll(), 1)
	assert.Equal(t, "777", h.service.GetAll()[0].Key(domain.KeyMeetingNumber))
}

func TestHandleEventIgnoresNonLocusEnvelopes(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	outcome := h.service.HandleEvent(context.Background(), domain.Envelope{
		EventType: domain.EventTypeRoapMessage,
		Locus:     newRecord("https://locus/1"),
	})
	assert.Equal(t, RouteIgnored, outcome)
	assert.Empty(t, h.service.GetAll())
}

func TestRouteMatchesEnvelopeLocusURLFirst(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	require.Equal(t, RouteCreated, h.route(newRecord("https://locus/1")))
	h.drain()

	removal := &domain.Record{Self: &domain.Self{State: domain.StateLeft, Removed: true}}

	outcome := h.service.HandleEvent(context.Background(), domain.Envelope{
		EventType: "locus.difference",
		Locus:     removal,
	})
	assert.Equal(t, RouteIgnored, outcome)
	require.Len(t, h.service.GetAll(), 1)

	outcome = h.service.HandleEvent(context.Background(), domain.Envelope{
		EventType: "locus.difference",
		LocusURL:  "https://locus/1",
		Locus:     removal,
	})
	assert.Equal(t, RouteRemoved, outcome)
	assert.Empty(t, h.service.GetAll())

	events := h.drain()
	require.Len(t, events, 1)
	assert.Equal(t, domain.RemovedSelfRemoved, events[0].Reason)
}
