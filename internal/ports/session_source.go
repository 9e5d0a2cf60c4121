package ports

import (
	"context"

	"github.com/bnema/locus-sync/internal/domain"
)

// ActiveSessionSource enumerates the sessions the server considers active
// for this client.
type ActiveSessionSource interface {
	ListActive(ctx context.Context) (domain.ActiveSessions, error)
	ListRemote(ctx context.Context, clusterURL string) (domain.ActiveSessions, error)
}
