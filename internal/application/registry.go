package application

import (
	"sort"
	"sync"

	"github.com/bnema/locus-sync/internal/domain"
)

// SessionRegistry is the in-memory store of live sessions. Lookups by
// identity key are linear scans; a client tracks tens of sessions at most.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: map[string]*domain.Session{}}
}

func (r *SessionRegistry) Get(id string) *domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

func (r *SessionRegistry) Set(session *domain.Session) {
	if session == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
}

func (r *SessionRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// GetAll returns a snapshot ordered by creation time.
func (r *SessionRegistry) GetAll() []*domain.Session {
	r.mu.RLock()
	all := make([]*domain.Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		all = append(all, session)
	}
	r.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return all
}

// GetByKey returns the first session whose key equals value. An empty value
// never matches.
func (r *SessionRegistry) GetByKey(key domain.SessionKey, value string) *domain.Session {
	if value == "" {
		return nil
	}
	if key == domain.KeyID {
		return r.Get(value)
	}
	for _, session := range r.GetAll() {
		if session.Key(key) == value {
			return session
		}
	}
	return nil
}

// GetActiveChildByGroupURL returns the active breakout session of a group.
func (r *SessionRegistry) GetActiveChildByGroupURL(groupURL string) *domain.Session {
	if groupURL == "" {
		return nil
	}
	for _, session := range r.GetAll() {
		breakout := session.Breakout()
		if breakout.URL == groupURL && breakout.IsActiveBreakout {
			return session
		}
	}
	return nil
}

// GetByGroupURL returns a session attached to a breakout group, either the
// main session whose record names the group or one of its breakouts. Main
// sessions win.
func (r *SessionRegistry) GetByGroupURL(groupURL string) *domain.Session {
	if groupURL == "" {
		return nil
	}
	var child *domain.Session
	for _, session := range r.GetAll() {
		record := session.Record()
		if record.BreakoutGroupURL() == groupURL && !record.IsBreakout() {
			return session
		}
		if child == nil && (session.Breakout().URL == groupURL || record.BreakoutGroupURL() == groupURL) {
			child = session
		}
	}
	return child
}

func (r *SessionRegistry) GetSessionWithActiveMediaConnection() *domain.Session {
	for _, session := range r.GetAll() {
		if session.MediaConnected() {
			return session
		}
	}
	return nil
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
