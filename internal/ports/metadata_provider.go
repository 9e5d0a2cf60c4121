package ports

import (
	"context"

	"github.com/bnema/locus-sync/internal/domain"
)

// MetadataProvider classifies destinations and fetches meeting info.
type MetadataProvider interface {
	ResolveDestination(ctx context.Context, destination domain.Destination, kind domain.DestinationType) (domain.ResolvedDestination, error)
	FetchMetadata(ctx context.Context, destination domain.Destination, kind domain.DestinationType) (domain.Metadata, error)
}
