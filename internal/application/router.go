package application

import (
	"context"
	"fmt"

	"github.com/bnema/locus-sync/internal/domain"
	"github.com/bnema/locus-sync/internal/log"
)

type RouteOutcome int

const (
	// RouteIgnored covers stale, duplicate and already-ended records.
	RouteIgnored RouteOutcome = iota
	RouteUpdated
	RouteRemoved
	RouteCreated
	RouteDeferred
)

func (o RouteOutcome) String() string {
	switch o {
	case RouteUpdated:
		return "updated"
	case RouteRemoved:
		return "removed"
	case RouteCreated:
		return "created"
	case RouteDeferred:
		return "deferred"
	default:
		return "ignored"
	}
}

// sessionMatcher finds the session a record belongs to by one identity key.
type sessionMatcher struct {
	key   domain.SessionKey
	value func(r *EventRouter, record *domain.Record) string
}

// Lookup order matters: the first key that finds a session wins.
var sessionMatchers = []sessionMatcher{
	{
		key:   domain.KeyLocusURL,
		value: func(_ *EventRouter, record *domain.Record) string { return domain.NormalizeURL(record.URL) },
	},
	{
		key:   domain.KeyCorrelationID,
		value: func(r *EventRouter, record *domain.Record) string { return record.CorrelationIDFor(r.deviceURL) },
	},
	{
		key:   domain.KeySipURI,
		value: func(_ *EventRouter, record *domain.Record) string { return record.CallbackAddress() },
	},
	{
		key: domain.KeyConversationURL,
		value: func(_ *EventRouter, record *domain.Record) string {
			// Unified space meetings share the conversation with every meeting in it.
			if record.IsUnifiedSpace() {
				return ""
			}
			return record.ConversationURL
		},
	},
	{
		key:   domain.KeyMeetingNumber,
		value: func(_ *EventRouter, record *domain.Record) string { return record.MeetingNumber() },
	},
}

// EventRouter attributes incoming records to sessions. Route expects the
// caller to hold the event loop.
type EventRouter struct {
	registry  *SessionRegistry
	resolver  *SessionKeyResolver
	lifecycle *LifecycleManager
	deferred  *DeferredChildren
	notifier  *Notifier
	deviceURL string
}

func NewEventRouter(
	registry *SessionRegistry,
	resolver *SessionKeyResolver,
	lifecycle *LifecycleManager,
	deferred *DeferredChildren,
	notifier *Notifier,
	deviceURL string,
) *EventRouter {
	return &EventRouter{
		registry:  registry,
		resolver:  resolver,
		lifecycle: lifecycle,
		deferred:  deferred,
		notifier:  notifier,
		deviceURL: deviceURL,
	}
}

// Match returns the session a record belongs to, following the replacement
// chain when the record's own URL is unknown.
func (r *EventRouter) Match(record *domain.Record) *domain.Session {
	if record == nil {
		return nil
	}
	for _, matcher := range sessionMatchers {
		if session := r.registry.GetByKey(matcher.key, matcher.value(r, record)); session != nil {
			return session
		}
	}
	return r.registry.GetByKey(domain.KeyLocusURL, domain.NormalizeURL(record.PredecessorURL()))
}

func (r *EventRouter) Route(ctx context.Context, record *domain.Record, opts RouteOptions) (RouteOutcome, error) {
	if record == nil {
		return RouteIgnored, nil
	}

	var session *domain.Session
	if hint := domain.NormalizeURL(opts.LocusURL); hint != "" {
		session = r.registry.GetByKey(domain.KeyLocusURL, hint)
	}
	if session == nil {
		session = r.Match(record)
	}
	if session != nil && !record.IsBreakout() {
		session.CacheRecord(record)
	}

	if !r.resolver.IsRecordActionable(session, record) {
		log.Debug().
			Str("locus_url", record.URL).
			Bool("matched", session != nil).
			Msg("record not actionable, ignoring")
		return RouteIgnored, nil
	}

	if session != nil {
		reason, ended := session.ApplyRecord(record, r.deviceURL)
		if ended {
			r.lifecycle.Destroy(ctx, session, reason)
			return RouteRemoved, nil
		}
		return RouteUpdated, nil
	}

	if record.IsInactive() || (record.SelfState() == domain.StateLeft && record.SelfRemoved()) {
		log.Debug().Str("locus_url", record.URL).Msg("record describes an ended session, not creating")
		return RouteIgnored, nil
	}

	if record.IsBreakout() && r.registry.GetByGroupURL(record.BreakoutGroupURL()) == nil {
		r.deferred.Add(record)
		log.Debug().
			Str("locus_url", record.URL).
			Str("group_url", record.BreakoutGroupURL()).
			Msg("breakout record arrived before its main session, deferring")
		return RouteDeferred, nil
	}

	return r.create(ctx, record, opts)
}

func (r *EventRouter) create(ctx context.Context, record *domain.Record, opts RouteOptions) (RouteOutcome, error) {
	session, err := r.lifecycle.Create(ctx, CreateRequest{
		Destination:    domain.RecordDestination(record),
		Kind:           domain.DestinationLocusID,
		UseRandomDelay: opts.UseRandomDelay,
	})
	if err != nil {
		return RouteIgnored, fmt.Errorf("create session from record %s: %w", record.URL, err)
	}

	if reason, ended := session.ApplyRecord(record, r.deviceURL); ended {
		r.lifecycle.Destroy(ctx, session, reason)
	}

	r.FlushDeferred(ctx, record, opts)

	if r.registry.Get(session.ID) == nil {
		log.Debug().Str("session_id", session.ID).Msg("session removed before it settled")
		return RouteRemoved, nil
	}
	r.notifier.SessionAdded(session, session.AddedKind())
	return RouteCreated, nil
}

// FlushDeferred routes the held breakout record of a main record's group.
func (r *EventRouter) FlushDeferred(ctx context.Context, main *domain.Record, opts RouteOptions) {
	if main == nil || main.IsBreakout() {
		return
	}
	child := r.deferred.Take(main.BreakoutGroupURL())
	if child == nil {
		return
	}
	// The hint names the main record, not the child.
	opts.LocusURL = ""

	outcome, err := r.Route(ctx, child, opts)
	if err != nil {
		log.Warn().Err(err).Str("locus_url", child.URL).Msg("route deferred breakout record")
		return
	}
	log.Debug().
		Str("locus_url", child.URL).
		Str("outcome", outcome.String()).
		Msg("flushed deferred breakout record")
}
