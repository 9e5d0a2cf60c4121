package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type SessionKey string

const (
	KeyID              SessionKey = "id"
	KeyLocusURL        SessionKey = "locusUrl"
	KeyCorrelationID   SessionKey = "correlationId"
	KeySipURI          SessionKey = "sipUri"
	KeyConversationURL SessionKey = "conversationUrl"
	KeyMeetingNumber   SessionKey = "meetingNumber"
)

type BreakoutInfo struct {
	URL              string
	IsActiveBreakout bool
}

// Canceler is a pending task that can be stopped before it runs.
type Canceler interface {
	Cancel()
}

// Session is one meeting or call known to this client. Identity fields are
// filled in at different points of its life and guarded by mu, since the
// reconciler and event routing read them concurrently.
type Session struct {
	ID          string
	Destination Destination
	Type        DestinationType
	CreatedAt   time.Time

	mu              sync.RWMutex
	locusURL        string
	sipURI          string
	conversationURL string
	meetingNumber   string
	correlationID   string
	breakout        BreakoutInfo
	scheduled       bool
	record          *Record
	joinedWith      *Device
	metadata        *Metadata
	mediaConnected  bool
	pendingFetch    Canceler
	callState       map[string]string
}

func NewSessionID() string {
	return uuid.NewString()
}

// NewSession builds a session with a fresh id and correlation id.
func NewSession(destination Destination, kind DestinationType, now time.Time) *Session {
	return &Session{
		ID:            NewSessionID(),
		Destination:   destination,
		Type:          kind,
		CreatedAt:     now,
		correlationID: uuid.NewString(),
	}
}

// Key returns the value of one identity key, or "" when unset.
func (s *Session) Key(key SessionKey) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch key {
	case KeyID:
		return s.ID
	case KeyLocusURL:
		return s.locusURL
	case KeyCorrelationID:
		return s.correlationID
	case KeySipURI:
		return s.sipURI
	case KeyConversationURL:
		return s.conversationURL
	case KeyMeetingNumber:
		return s.meetingNumber
	default:
		return ""
	}
}

func (s *Session) LocusURL() string      { return s.Key(KeyLocusURL) }
func (s *Session) CorrelationID() string { return s.Key(KeyCorrelationID) }
func (s *Session) SipURI() string        { return s.Key(KeySipURI) }

func (s *Session) SetSipURI(sipURI string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sipURI = sipURI
}

func (s *Session) SetCorrelationID(correlationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.correlationID = correlationID
}

func (s *Session) Breakout() BreakoutInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.breakout
}

func (s *Session) Scheduled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scheduled
}

// Record returns the cached session record.
func (s *Session) Record() *Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record
}

// JoinedWith returns this device's entry from the latest record.
func (s *Session) JoinedWith() *Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joinedWith
}

func (s *Session) Metadata() *Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata
}

// SetMetadata attaches a meeting-info payload. Its SIP URI replaces the dialed
// address; other identity keys are adopted only when unset.
func (s *Session) SetMetadata(metadata Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metadata = &metadata
	s.scheduled = metadata.Scheduled
	if s.meetingNumber == "" {
		s.meetingNumber = metadata.MeetingNumber
	}
	if metadata.SipURI != "" {
		s.sipURI = metadata.SipURI
	}
	if s.conversationURL == "" {
		s.conversationURL = metadata.ConversationURL
	}
}

func (s *Session) MediaConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mediaConnected
}

func (s *Session) SetMediaConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mediaConnected = connected
}

// AttachCallState merges caller-supplied call state (join trigger, client
// metrics context) into the session.
func (s *Session) AttachCallState(state map[string]string) {
	if len(state) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callState == nil {
		s.callState = make(map[string]string, len(state))
	}
	for k, v := range state {
		s.callState[k] = v
	}
}

func (s *Session) CallState(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.callState[key]
}

func (s *Session) SetConversationURL(conversationURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationURL = conversationURL
}

// SetPendingFetch stores the delayed metadata fetch, cancelling any earlier one.
func (s *Session) SetPendingFetch(task Canceler) {
	s.mu.Lock()
	previous := s.pendingFetch
	s.pendingFetch = task
	s.mu.Unlock()

	if previous != nil {
		previous.Cancel()
	}
}

// CancelPendingFetch stops the delayed metadata fetch if one is scheduled.
func (s *Session) CancelPendingFetch() {
	s.mu.Lock()
	task := s.pendingFetch
	s.pendingFetch = nil
	s.mu.Unlock()

	if task != nil {
		task.Cancel()
	}
}

func (s *Session) HasPendingFetch() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingFetch != nil
}

// AddedKind tags the session-added event for a server-originated session.
func (s *Session) AddedKind() AddedKind {
	if s.Type != DestinationLocusID {
		return AddedKindFor(s.Type)
	}
	if s.Record().RecordType() == RecordTypeMeeting {
		return AddedJoin
	}
	return AddedIncoming
}

// CacheRecord replaces the cached record without touching identity keys.
func (s *Session) CacheRecord(record *Record) {
	if record == nil {
		return
	}
	record = record.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = record
}

// MergeRecord caches the record and indexes its identity keys. It does not
// evaluate terminal states.
func (s *Session) MergeRecord(record *Record, deviceURL string) {
	if record == nil {
		return
	}

	record = record.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record = record
	if url := NormalizeURL(record.URL); url != "" {
		s.locusURL = url
	}
	if record.ConversationURL != "" {
		s.conversationURL = record.ConversationURL
	}
	if number := record.MeetingNumber(); number != "" {
		s.meetingNumber = number
	}
	if record.Info != nil && record.Info.SipURI != "" {
		s.sipURI = record.Info.SipURI
	}

	if device := record.ThisDevice(deviceURL); device != nil {
		joined := *device
		s.joinedWith = &joined
		if s.correlationID == "" && device.CorrelationID != "" {
			s.correlationID = device.CorrelationID
		}
	}

	if record.IsBreakout() {
		s.breakout = BreakoutInfo{
			URL:              record.BreakoutGroupURL(),
			IsActiveBreakout: record.SelfJoined() && !record.IsInactive(),
		}
	} else if record.Controls != nil && record.Controls.Breakout != nil {
		s.breakout = BreakoutInfo{}
	}
}

// ApplyRecord runs an incremental update. When the record describes a session
// that has ended for this client, it returns the removal reason and true.
func (s *Session) ApplyRecord(record *Record, deviceURL string) (RemovalReason, bool) {
	if record == nil {
		return "", false
	}
	// A move into a breakout is reported on the previous record; parsing it
	// would read as a plain leave.
	if record.SelfMovedAway() {
		return "", false
	}

	s.MergeRecord(record, deviceURL)
	return TerminalReason(record)
}

// TerminalReason classifies a record that ends the session for this client.
func TerminalReason(record *Record) (RemovalReason, bool) {
	switch record.RecordType() {
	case RecordTypeCall, RecordTypeSIPBridge:
		if record.IsInactive() {
			return RemovedCallInactive, true
		}
		if record.SelfState() == StateLeft {
			return RemovedSelfLeft, true
		}
		return "", false
	default:
		state := record.FullStateValue()
		if state == FullStateInactive || state == FullStateTerminating {
			return RemovedInactive, true
		}
		if record.FullState != nil && record.FullState.Removed {
			return RemovedFullStateRemoved, true
		}
		if record.SelfRemoved() {
			return RemovedSelfRemoved, true
		}
		return "", false
	}
}
