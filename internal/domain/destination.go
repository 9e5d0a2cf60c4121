package domain

import "time"

type DestinationType string

const (
	DestinationConversationURL DestinationType = "CONVERSATION_URL"
	DestinationMeetingLink     DestinationType = "MEETING_LINK"
	DestinationSipURI          DestinationType = "SIP_URI"
	DestinationPersonalRoom    DestinationType = "PERSONAL_ROOM"
	DestinationOneOnOneCall    DestinationType = "ONE_ON_ONE_CALL"
	DestinationLocusID         DestinationType = "LOCUS_ID"
	DestinationMeetingID       DestinationType = "MEETING_ID"
	DestinationMeetingUUID     DestinationType = "MEETING_UUID"
)

// ServerOriginated reports whether sessions of this kind are created from a
// pushed record rather than an API call.
func (t DestinationType) ServerOriginated() bool {
	return t == DestinationLocusID
}

// SkipsMetadata reports whether the kind has no server-side metadata record.
func (t DestinationType) SkipsMetadata() bool {
	return t == DestinationOneOnOneCall
}

// Destination is what a caller asks to join: a plain address string, or a
// pushed record for server-originated sessions.
type Destination struct {
	Address string
	Record  *Record
}

func AddressDestination(address string) Destination {
	return Destination{Address: address}
}

func RecordDestination(record *Record) Destination {
	return Destination{Record: record}
}

func (d Destination) String() string {
	if d.Record != nil {
		return d.Record.URL
	}
	return d.Address
}

// StartTime returns the scheduled start carried by a record destination.
func (d Destination) StartTime() (time.Time, bool) {
	if d.Record == nil || d.Record.Meeting == nil || d.Record.Meeting.StartTime.IsZero() {
		return time.Time{}, false
	}
	return d.Record.Meeting.StartTime, true
}

// ResolvedDestination is the normalized target returned by destination
// classification.
type ResolvedDestination struct {
	Destination Destination
	Type        DestinationType
}

// Metadata is the meeting-info payload attached to a session.
type Metadata struct {
	MeetingNumber   string
	SipURI          string
	ConversationURL string
	LocusURL        string
	Title           string
	Scheduled       bool
	FetchedAt       time.Time
}

// MetadataFromRecord derives provisional metadata from a pushed record, used
// until the real fetch resolves.
func MetadataFromRecord(record *Record) Metadata {
	if record == nil {
		return Metadata{}
	}
	metadata := Metadata{
		MeetingNumber:   record.MeetingNumber(),
		ConversationURL: record.ConversationURL,
		LocusURL:        record.URL,
		Scheduled:       record.Meeting != nil,
	}
	if record.Info != nil {
		metadata.SipURI = record.Info.SipURI
	}
	return metadata
}
