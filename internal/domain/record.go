package domain

import (
	"strings"
	"time"
)

const (
	StateJoined   = "JOINED"
	StateLeft     = "LEFT"
	StateDeclined = "DECLINED"
	StateIdle     = "IDLE"

	ReasonMoved = "MOVED"

	FullStateActive      = "ACTIVE"
	FullStateInactive    = "INACTIVE"
	FullStateTerminating = "TERMINATING"

	RecordTypeMeeting   = "MEETING"
	RecordTypeCall      = "CALL"
	RecordTypeSIPBridge = "SIP_BRIDGE"

	BreakoutSessionMain     = "MAIN"
	BreakoutSessionBreakout = "BREAKOUT"

	IntentWait        = "WAIT"
	IntentReasonLobby = "ON_HOLD_LOBBY"
)

// Record is the subset of a Locus DTO the engine reads. Unknown fields are
// dropped on decode.
type Record struct {
	URL             string        `json:"url"`
	ConversationURL string        `json:"conversationUrl,omitempty"`
	Self            *Self         `json:"self,omitempty"`
	Controls        *Controls     `json:"controls,omitempty"`
	FullState       *FullState    `json:"fullState,omitempty"`
	Replaces        []Replacement `json:"replaces,omitempty"`
	Info            *RecordInfo   `json:"info,omitempty"`
	Meeting         *Schedule     `json:"meeting,omitempty"`
}

type Self struct {
	State        string        `json:"state,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	Removed      bool          `json:"removed,omitempty"`
	Devices      []Device      `json:"devices,omitempty"`
	CallbackInfo *CallbackInfo `json:"callbackInfo,omitempty"`
}

type CallbackInfo struct {
	CallbackAddress string `json:"callbackAddress,omitempty"`
}

type Device struct {
	URL           string        `json:"url"`
	State         string        `json:"state,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	CorrelationID string        `json:"correlationId,omitempty"`
	Replaces      []Replacement `json:"replaces,omitempty"`
	Intent        *Intent       `json:"intent,omitempty"`
}

type Intent struct {
	Type   string `json:"type,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type Replacement struct {
	LocusURL  string    `json:"locusUrl,omitempty"`
	ReplaceAt time.Time `json:"replaceAt,omitzero"`
}

type Controls struct {
	Breakout *BreakoutControl `json:"breakout,omitempty"`
}

type BreakoutControl struct {
	URL         string `json:"url,omitempty"`
	SessionType string `json:"sessionType,omitempty"`
}

type FullState struct {
	Active     bool      `json:"active,omitempty"`
	State      string    `json:"state,omitempty"`
	Type       string    `json:"type,omitempty"`
	Removed    bool      `json:"removed,omitempty"`
	LastActive time.Time `json:"lastActive,omitzero"`
}

type RecordInfo struct {
	IsUnifiedSpaceMeeting bool   `json:"isUnifiedSpaceMeeting,omitempty"`
	WebExMeetingID        string `json:"webExMeetingId,omitempty"`
	SipURI                string `json:"sipUri,omitempty"`
}

// Schedule is present on records pushed ahead of a calendar meeting start.
type Schedule struct {
	StartTime time.Time `json:"startTime,omitzero"`
}

// IsBreakout reports whether the record belongs to a breakout (child) session.
// Main records carry the same control with session type MAIN; a control
// without a session type is treated as a breakout.
func (r *Record) IsBreakout() bool {
	return r != nil && r.Controls != nil && r.Controls.Breakout != nil &&
		r.Controls.Breakout.SessionType != BreakoutSessionMain
}

// BreakoutGroupURL is shared by a main record and all its breakout records.
func (r *Record) BreakoutGroupURL() string {
	if r == nil || r.Controls == nil || r.Controls.Breakout == nil {
		return ""
	}
	return r.Controls.Breakout.URL
}

func (r *Record) SelfState() string {
	if r == nil || r.Self == nil {
		return ""
	}
	return r.Self.State
}

func (r *Record) SelfJoined() bool {
	return r.SelfState() == StateJoined
}

func (r *Record) SelfRemoved() bool {
	return r != nil && r.Self != nil && r.Self.Removed
}

func (r *Record) SelfMovedAway() bool {
	return r.SelfState() == StateLeft && r.Self.Reason == ReasonMoved
}

func (r *Record) FullStateValue() string {
	if r == nil || r.FullState == nil {
		return ""
	}
	return r.FullState.State
}

func (r *Record) IsInactive() bool {
	return r.FullStateValue() == FullStateInactive
}

func (r *Record) IsActive() bool {
	return r != nil && r.FullState != nil && r.FullState.Active
}

func (r *Record) RecordType() string {
	if r == nil || r.FullState == nil {
		return ""
	}
	return r.FullState.Type
}

func (r *Record) CallbackAddress() string {
	if r == nil || r.Self == nil || r.Self.CallbackInfo == nil {
		return ""
	}
	return r.Self.CallbackInfo.CallbackAddress
}

func (r *Record) MeetingNumber() string {
	if r == nil || r.Info == nil {
		return ""
	}
	return r.Info.WebExMeetingID
}

func (r *Record) IsUnifiedSpace() bool {
	return r != nil && r.Info != nil && r.Info.IsUnifiedSpaceMeeting
}

// PredecessorURL returns the locus URL of the last replaces entry, which is
// always the currently active predecessor.
func (r *Record) PredecessorURL() string {
	if r == nil || len(r.Replaces) == 0 {
		return ""
	}
	return r.Replaces[len(r.Replaces)-1].LocusURL
}

// ThisDevice returns the self device entry registered under deviceURL.
func (r *Record) ThisDevice(deviceURL string) *Device {
	if r == nil || r.Self == nil || deviceURL == "" {
		return nil
	}
	for i := range r.Self.Devices {
		if r.Self.Devices[i].URL == deviceURL {
			return &r.Self.Devices[i]
		}
	}
	return nil
}

// CorrelationIDFor returns the correlation id the record holds for deviceURL.
func (r *Record) CorrelationIDFor(deviceURL string) string {
	device := r.ThisDevice(deviceURL)
	if device == nil {
		return ""
	}
	return device.CorrelationID
}

// MovedToLobby reports whether this device (or the first device when this one
// is not listed) is parked in the waiting area.
func (r *Record) MovedToLobby(deviceURL string) bool {
	device := r.ThisDevice(deviceURL)
	if device == nil && r != nil && r.Self != nil && len(r.Self.Devices) > 0 {
		device = &r.Self.Devices[0]
	}
	if device == nil || device.Intent == nil {
		return false
	}
	return device.Intent.Type == IntentWait && device.Intent.Reason == IntentReasonLobby
}

// JoinedOnDevice reports whether deviceURL is joined (or was moved) under the
// given correlation id. An entry without a correlation id matches any.
func (r *Record) JoinedOnDevice(deviceURL, correlationID string) bool {
	device := r.ThisDevice(deviceURL)
	if device == nil {
		return false
	}
	if device.CorrelationID != "" && device.CorrelationID != correlationID {
		return false
	}
	return device.State == StateJoined || device.MovedAway()
}

// ValidBreakout reports whether the record is an active breakout this client
// is joined to.
func (r *Record) ValidBreakout() bool {
	return r.IsBreakout() && !r.IsInactive() && r.SelfJoined()
}

func (d *Device) MovedAway() bool {
	return d != nil && d.State == StateLeft && d.Reason == ReasonMoved
}

// FirstReplaceAt returns the replaceAt of the first replaces entry.
func (d *Device) FirstReplaceAt() time.Time {
	if d == nil || len(d.Replaces) == 0 {
		return time.Time{}
	}
	return d.Replaces[0].ReplaceAt
}

// Clone returns a deep copy so a cached record is not changed by later
// writes to the decoded event.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Self = r.Self.clone()
	clone.Controls = clonePtr(r.Controls)
	if r.Controls != nil {
		clone.Controls.Breakout = clonePtr(r.Controls.Breakout)
	}
	clone.FullState = clonePtr(r.FullState)
	clone.Replaces = cloneSlice(r.Replaces)
	clone.Info = clonePtr(r.Info)
	clone.Meeting = clonePtr(r.Meeting)
	return &clone
}

func (s *Self) clone() *Self {
	if s == nil {
		return nil
	}
	self := *s
	self.CallbackInfo = clonePtr(s.CallbackInfo)
	if s.Devices != nil {
		self.Devices = make([]Device, len(s.Devices))
		for i, device := range s.Devices {
			device.Replaces = cloneSlice(device.Replaces)
			device.Intent = clonePtr(device.Intent)
			self.Devices[i] = device
		}
	}
	return &self
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneSlice[T any](v []T) []T {
	if v == nil {
		return nil
	}
	return append([]T(nil), v...)
}

// NormalizeURL trims transport noise from a record URL before it is used as a key.
func NormalizeURL(raw string) string {
	return strings.TrimSpace(raw)
}
