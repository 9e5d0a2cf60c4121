package domain

type EventType string

const (
	EventSessionAdded            EventType = "session-added"
	EventSessionRemoved          EventType = "session-removed"
	EventSyncNetworkDisconnected EventType = "sync-network-disconnected"
	EventRegistryReady           EventType = "registry-ready"
	EventRegistryRegistered      EventType = "registry-registered"
	EventRegistryUnregistered    EventType = "registry-unregistered"
)

type RemovalReason string

const (
	RemovedSelfRemoved        RemovalReason = "SELF_REMOVED"
	RemovedFullStateRemoved   RemovalReason = "FULLSTATE_REMOVED"
	RemovedInactive           RemovalReason = "MEETING_INACTIVE_TERMINATING"
	RemovedClientLeaveRequest RemovalReason = "CLIENT_LEAVE_REQUEST"
	RemovedNoSessionsToSync   RemovalReason = "NO_SESSIONS_TO_SYNC"
	RemovedMissingMetadata    RemovalReason = "MISSING_METADATA"
	RemovedCallInactive       RemovalReason = "CALL_INACTIVE"
	RemovedSelfLeft           RemovalReason = "SELF_LEFT"
)

type AddedKind string

const (
	AddedJoin     AddedKind = "JOIN"
	AddedIncoming AddedKind = "INCOMING"
	AddedCreated  AddedKind = "CREATED"
)

// AddedKindFor maps the requested destination kind to the session-added tag.
func AddedKindFor(t DestinationType) AddedKind {
	if t == DestinationLocusID {
		return AddedIncoming
	}
	return AddedCreated
}

// Event is a lifecycle notification. Session is set for session-added;
// SessionID and Reason for session-removed.
type Event struct {
	Type      EventType
	Session   *Session
	Kind      AddedKind
	SessionID string
	Reason    RemovalReason
}

// Envelope is one push event from the event channel.
type Envelope struct {
	EventType string  `json:"eventType"`
	LocusURL  string  `json:"locusUrl"`
	Locus     *Record `json:"locus"`
}

const (
	EventTypeRoapMessage = "locus.message.roap"
)

// IsLocusEvent reports whether the envelope carries a session record update.
func (e Envelope) IsLocusEvent() bool {
	return e.EventType != "" && e.EventType != EventTypeRoapMessage && e.Locus != nil
}

// ActiveSessions is the authoritative list returned by the sync source.
type ActiveSessions struct {
	Loci              []*Record `json:"loci"`
	RemoteClusterURLs []string  `json:"remoteLocusClusterUrls,omitempty"`
}
