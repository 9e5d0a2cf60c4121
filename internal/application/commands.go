package application

import "github.com/bnema/locus-sync/internal/domain"

// CreateRequest asks for the session of a destination. Kind may be empty to
// let the metadata provider classify the destination.
type CreateRequest struct {
	Destination           domain.Destination
	Kind                  domain.DestinationType
	UseRandomDelay        bool
	FailOnMissingMetadata bool
	Prefetched            *domain.Metadata
	CallState             map[string]string
}

type SyncOptions struct {
	// PruneNonServerSessions also removes sessions that never had a locus URL.
	PruneNonServerSessions bool
}

type RouteOptions struct {
	UseRandomDelay bool
	// LocusURL is the envelope's locus URL, tried before the record's own keys.
	LocusURL string
}
