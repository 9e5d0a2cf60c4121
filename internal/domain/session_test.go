package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestNewSessionAssignsIdentifiers(t *testing.T) {
	t.Parallel()

	a := NewSession(AddressDestination("room@example.com"), DestinationSipURI, now)
	b := NewSession(AddressDestination("room@example.com"), DestinationSipURI, now)

	assert.NotEmpty(t, a.ID)
	assert.NotEmpty(t, a.CorrelationID())
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.CorrelationID(), b.CorrelationID())
	assert.Equal(t, a.ID, a.Key(KeyID))
	assert.Empty(t, a.Key("unknown"))
}

func TestSessionMergeRecordIndexesKeys(t *testing.T) {
	t.Parallel()

	session := NewSession(AddressDestination("x"), DestinationLocusID, now)
	session.SetCorrelationID("")
	session.MergeRecord(&Record{
		URL:             " https://locus/1 ",
		ConversationURL: "https://conv/c1",
		Info:            &RecordInfo{WebExMeetingID: "123", SipURI: "room@example.com"},
		Self: &Self{State: StateJoined, Devices: []Device{
			{URL: device, State: StateJoined, CorrelationID: "corr-1"},
		}},
	}, device)

	assert.Equal(t, "https://locus/1", session.LocusURL())
	assert.Equal(t, "https://conv/c1", session.Key(KeyConversationURL))
	assert.Equal(t, "123", session.Key(KeyMeetingNumber))
	assert.Equal(t, "room@example.com", session.SipURI())
	assert.Equal(t, "corr-1", session.CorrelationID())
	require.NotNil(t, session.JoinedWith())
	assert.Equal(t, StateJoined, session.JoinedWith().State)
}

func TestSessionMergeRecordTracksBreakout(t *testing.T) {
	t.Parallel()

	session := NewSession(AddressDestination("x"), DestinationLocusID, now)
	session.MergeRecord(&Record{
		URL:       "https://locus/child",
		Self:      &Self{State: StateJoined},
		FullState: &FullState{State: FullStateActive},
		Controls:  &Controls{Breakout: &BreakoutControl{URL: "g1", SessionType: BreakoutSessionBreakout}},
	}, device)
	assert.Equal(t, BreakoutInfo{URL: "g1", IsActiveBreakout: true}, session.Breakout())

	session.MergeRecord(&Record{
		URL:      "https://locus/main",
		Self:     &Self{State: StateJoined},
		Controls: &Controls{Breakout: &BreakoutControl{URL: "g1", SessionType: BreakoutSessionMain}},
	}, device)
	assert.Equal(t, BreakoutInfo{}, session.Breakout())
}

func TestSessionCachesACopyOfTheRecord(t *testing.T) {
	t.Parallel()

	session := NewSession(AddressDestination("x"), DestinationLocusID, now)
	record := &Record{URL: "https://locus/1", Self: &Self{State: StateJoined}}
	session.MergeRecord(record, device)
	record.Self.State = StateLeft
	assert.Equal(t, StateJoined, session.Record().SelfState())

	update := &Record{URL: "https://locus/1", FullState: &FullState{State: FullStateActive}}
	session.CacheRecord(update)
	update.FullState.State = FullStateInactive
	assert.Equal(t, FullStateActive, session.Record().FullState.State)
}

func TestTerminalReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		record *Record
		want   RemovalReason
		ended  bool
	}{
		{
			name:   "call inactive",
			record: &Record{FullState: &FullState{Type: RecordTypeCall, State: FullStateInactive}},
			want:   RemovedCallInactive,
			ended:  true,
		},
		{
			name:   "call self left",
			record: &Record{FullState: &FullState{Type: RecordTypeSIPBridge, State: FullStateActive}, Self: &Self{State: StateLeft}},
			want:   RemovedSelfLeft,
			ended:  true,
		},
		{
			name:   "meeting terminating",
			record: &Record{FullState: &FullState{Type: RecordTypeMeeting, State: FullStateTerminating}},
			want:   RemovedInactive,
			ended:  true,
		},
		{
			name:   "full state removed",
			record: &Record{FullState: &FullState{Type: RecordTypeMeeting, State: FullStateActive, Removed: true}},
			want:   RemovedFullStateRemoved,
			ended:  true,
		},
		{
			name:   "self removed",
			record: &Record{Self: &Self{State: StateLeft, Removed: true}},
			want:   RemovedSelfRemoved,
			ended:  true,
		},
		{
			name:   "meeting self left is not terminal",
			record: &Record{FullState: &FullState{Type: RecordTypeMeeting, State: FullStateActive}, Self: &Self{State: StateLeft}},
		},
		{
			name:   "active call",
			record: &Record{FullState: &FullState{Type: RecordTypeCall, State: FullStateActive}, Self: &Self{State: StateJoined}},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			reason, ended := TerminalReason(tc.record)
			assert.Equal(t, tc.ended, ended)
			assert.Equal(t, tc.want, reason)
		})
	}
}

func TestApplyRecordSkipsMoveIntoBreakout(t *testing.T) {
	t.Parallel()

	session := NewSession(AddressDestination("x"), DestinationLocusID, now)
	session.MergeRecord(&Record{URL: "https://locus/main", Self: &Self{State: StateJoined}}, device)

	moved := &Record{
		URL:       "https://locus/main",
		Self:      &Self{State: StateLeft, Reason: ReasonMoved, Removed: true},
		FullState: &FullState{Type: RecordTypeCall},
	}
	reason, ended := session.ApplyRecord(moved, device)

	assert.False(t, ended)
	assert.Empty(t, reason)
	assert.Equal(t, StateJoined, session.Record().SelfState())
}

func TestSessionSetMetadata(t *testing.T) {
	t.Parallel()

	session := NewSession(AddressDestination("room@example.com"), DestinationSipURI, now)
	session.SetSipURI("room@example.com")
	session.SetMetadata(Metadata{MeetingNumber: "1", SipURI: "canonical@example.com", ConversationURL: "https://conv/c", Scheduled: true})

	assert.Equal(t, "canonical@example.com", session.SipURI())
	assert.Equal(t, "1", session.Key(KeyMeetingNumber))
	assert.Equal(t, "https://conv/c", session.Key(KeyConversationURL))
	assert.True(t, session.Scheduled())

	session.SetMetadata(Metadata{MeetingNumber: "2"})
	assert.Equal(t, "1", session.Key(KeyMeetingNumber))
	assert.Equal(t, "canonical@example.com", session.SipURI())
	assert.False(t, session.Scheduled())
}

type countingCanceler struct{ cancelled int }

func (c *countingCanceler) Cancel() { c.cancelled++ }

func TestSessionPendingFetch(t *testing.T) {
	t.Parallel()

	session := NewSession(AddressDestination("x"), DestinationSipURI, now)
	first := &countingCanceler{}
	second := &countingCanceler{}

	session.SetPendingFetch(first)
	assert.True(t, session.HasPendingFetch())

	session.SetPendingFetch(second)
	assert.Equal(t, 1, first.cancelled)

	session.CancelPendingFetch()
	session.CancelPendingFetch()
	assert.Equal(t, 1, second.cancelled)
	assert.False(t, session.HasPendingFetch())
}

func TestAddedKind(t *testing.T) {
	t.Parallel()

	created := NewSession(AddressDestination("x"), DestinationSipURI, now)
	assert.Equal(t, AddedCreated, created.AddedKind())

	meeting := NewSession(RecordDestination(&Record{}), DestinationLocusID, now)
	meeting.MergeRecord(&Record{URL: "u", FullState: &FullState{Type: RecordTypeMeeting}}, device)
	assert.Equal(t, AddedJoin, meeting.AddedKind())

	call := NewSession(RecordDestination(&Record{}), DestinationLocusID, now)
	call.MergeRecord(&Record{URL: "u", FullState: &FullState{Type: RecordTypeCall}}, device)
	assert.Equal(t, AddedIncoming, call.AddedKind())
}

func TestSessionSummary(t *testing.T) {
	t.Parallel()

	session := NewSession(AddressDestination("x"), DestinationLocusID, now)
	session.MergeRecord(&Record{URL: "https://locus/1", Self: &Self{State: StateJoined}}, device)

	summary := session.Summary()
	assert.Equal(t, session.ID, summary.ID)
	assert.Equal(t, "https://locus/1", summary.LocusURL)
	assert.Equal(t, StateJoined, summary.SelfState)
	assert.Equal(t, now, summary.CreatedAt)
}
