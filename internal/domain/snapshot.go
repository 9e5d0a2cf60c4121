package domain

import "time"

// SessionSummary is the persisted, read-only view of a Session.
type SessionSummary struct {
	ID              string
	Type            DestinationType
	LocusURL        string
	SipURI          string
	ConversationURL string
	MeetingNumber   string
	CorrelationID   string
	BreakoutURL     string
	ActiveBreakout  bool
	Scheduled       bool
	SelfState       string
	CreatedAt       time.Time
}

type Snapshot struct {
	TakenAt  time.Time
	Sessions []SessionSummary
}

func (s *Session) Summary() SessionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SessionSummary{
		ID:              s.ID,
		Type:            s.Type,
		LocusURL:        s.locusURL,
		SipURI:          s.sipURI,
		ConversationURL: s.conversationURL,
		MeetingNumber:   s.meetingNumber,
		CorrelationID:   s.correlationID,
		BreakoutURL:     s.breakout.URL,
		ActiveBreakout:  s.breakout.IsActiveBreakout,
		Scheduled:       s.scheduled,
		SelfState:       s.record.SelfState(),
		CreatedAt:       s.CreatedAt,
	}
}
