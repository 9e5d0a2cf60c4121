package application

import (
	"sync"

	"github.com/bnema/locus-sync/internal/domain"
	"github.com/bnema/locus-sync/internal/log"
)

const defaultSubscriberBuffer = 64

// Notifier fans lifecycle events out to subscribers. Each subscriber owns a
// bounded queue; publishing never blocks and events are delivered in publish
// order, at most once. A full queue drops the event for that subscriber only.
type Notifier struct {
	mu         sync.RWMutex
	subs       map[int]*Subscription
	nextID     int
	bufferSize int
}

type Subscription struct {
	C <-chan domain.Event

	id       int
	ch       chan domain.Event
	notifier *Notifier
	once     sync.Once
	dropped  int
}

func NewNotifier(bufferSize int) *Notifier {
	if bufferSize <= 0 {
		bufferSize = defaultSubscriberBuffer
	}
	return &Notifier{subs: map[int]*Subscription{}, bufferSize: bufferSize}
}

func (n *Notifier) Subscribe() *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan domain.Event, n.bufferSize)
	sub := &Subscription{C: ch, id: n.nextID, ch: ch, notifier: n}
	n.subs[sub.id] = sub
	n.nextID++
	return sub
}

// Close unsubscribes and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.notifier.mu.Lock()
		delete(s.notifier.subs, s.id)
		close(s.ch)
		s.notifier.mu.Unlock()
	})
}

// Dropped returns how many events were discarded because C was full.
func (s *Subscription) Dropped() int {
	s.notifier.mu.RLock()
	defer s.notifier.mu.RUnlock()
	return s.dropped
}

func (n *Notifier) Publish(event domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, sub := range n.subs {
		select {
		case sub.ch <- event:
		default:
			sub.dropped++
			log.Warn().
				Str("event", string(event.Type)).
				Int("subscriber", sub.id).
				Msg("subscriber queue full, dropping lifecycle event")
		}
	}
}

func (n *Notifier) SessionAdded(session *domain.Session, kind domain.AddedKind) {
	n.Publish(domain.Event{Type: domain.EventSessionAdded, Session: session, SessionID: session.ID, Kind: kind})
}

func (n *Notifier) SessionRemoved(id string, reason domain.RemovalReason) {
	n.Publish(domain.Event{Type: domain.EventSessionRemoved, SessionID: id, Reason: reason})
}
