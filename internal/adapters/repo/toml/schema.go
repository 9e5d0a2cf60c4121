package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	TakenAt  string          `toml:"taken_at"`
	Sessions []sessionSchema `toml:"sessions"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported snapshot schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type sessionSchema struct {
	ID              string          `toml:"id"`
	Type            string          `toml:"type"`
	LocusURL        string          `toml:"locus_url,omitempty"`
	SipURI          string          `toml:"sip_uri,omitempty"`
	ConversationURL string          `toml:"conversation_url,omitempty"`
	MeetingNumber   string          `toml:"meeting_number,omitempty"`
	CorrelationID   string          `toml:"correlation_id"`
	SelfState       string          `toml:"self_state,omitempty"`
	Scheduled       bool            `toml:"scheduled"`
	CreatedAt       string          `toml:"created_at"`
	Breakout        *breakoutSchema `toml:"breakout,omitempty"`
}

type breakoutSchema struct {
	URL    string `toml:"url"`
	Active bool   `toml:"active"`
}
