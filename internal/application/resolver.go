package application

import (
	"github.com/bnema/locus-sync/internal/domain"
	"github.com/bnema/locus-sync/internal/log"
)

// SessionKeyResolver decides whether an incoming record should be processed
// given the session it maps to. It only reads the registry.
type SessionKeyResolver struct {
	registry  *SessionRegistry
	deviceURL string
}

func NewSessionKeyResolver(registry *SessionRegistry, deviceURL string) *SessionKeyResolver {
	return &SessionKeyResolver{registry: registry, deviceURL: deviceURL}
}

// IsMainRecordActionable decides for a main (non-breakout) record. cached may
// be nil when no session is known yet.
func (r *SessionKeyResolver) IsMainRecordActionable(cached *domain.Session, incoming *domain.Record) bool {
	selfJoined := incoming.SelfJoined()
	selfMovedAway := incoming.SelfMovedAway()
	device := incoming.ThisDevice(r.deviceURL)
	deviceMovedAway := device.MovedAway()

	cachedCorrelationID := ""
	if cached != nil {
		cachedCorrelationID = cached.CorrelationID()
	}
	joinedThisDevice := incoming.JoinedOnDevice(r.deviceURL, cachedCorrelationID)

	groupURL := incoming.BreakoutGroupURL()
	activeChild := r.registry.GetActiveChildByGroupURL(groupURL)

	if selfJoined && joinedThisDevice {
		if activeChild != nil {
			childReplaceAt := activeChild.JoinedWith().FirstReplaceAt()
			mainReplaceAt := device.FirstReplaceAt()
			if !childReplaceAt.IsZero() && !mainReplaceAt.IsZero() && childReplaceAt.After(mainReplaceAt) {
				log.Debug().
					Str("locus_url", incoming.URL).
					Time("main_replace_at", mainReplaceAt).
					Time("breakout_replace_at", childReplaceAt).
					Msg("stale main record: breakout join is newer")
				return false
			}
		}
		log.Debug().Str("locus_url", incoming.URL).Msg("main record shows this device joined")
		return true
	}

	if activeChild != nil && cachedCorrelationID != "" {
		if joined := activeChild.JoinedWith(); joined != nil && joined.CorrelationID == cachedCorrelationID {
			log.Debug().
				Str("group_url", groupURL).
				Msg("active breakout owns this device, skipping main record")
			return false
		}
	}

	if selfMovedAway && (incoming.SelfRemoved() || deviceMovedAway) {
		log.Debug().Str("locus_url", incoming.URL).Msg("self moved out of main record")
		return false
	}

	if selfJoined && deviceMovedAway {
		log.Debug().Str("locus_url", incoming.URL).Msg("device moved away while self shows joined")
		return false
	}

	return true
}

// IsRecordActionable is the top-level admissibility gate.
func (r *SessionKeyResolver) IsRecordActionable(cached *domain.Session, incoming *domain.Record) bool {
	if incoming == nil {
		return true
	}

	isChild := incoming.IsBreakout()
	selfMovedAway := incoming.SelfMovedAway()
	movedToLobby := incoming.MovedToLobby(r.deviceURL)

	if cached == nil {
		if isChild {
			log.Debug().
				Str("locus_url", incoming.URL).
				Bool("active", incoming.IsActive()).
				Msg("first breakout record")
			return incoming.SelfJoined()
		}
		return r.IsMainRecordActionable(nil, incoming)
	}

	if !isChild {
		return movedToLobby || r.IsMainRecordActionable(cached, incoming)
	}

	return !selfMovedAway
}
