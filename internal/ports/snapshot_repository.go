package ports

import (
	"context"

	"github.com/bnema/locus-sync/internal/domain"
)

type SnapshotRepository interface {
	Load(ctx context.Context) (domain.Snapshot, error)
	Save(ctx context.Context, snapshot domain.Snapshot) error
}
