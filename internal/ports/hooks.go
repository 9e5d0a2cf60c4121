package ports

import (
	"context"
	"time"

	"github.com/bnema/locus-sync/internal/domain"
)

// SessionTeardown releases resources a session owns (media, keep-alives).
type SessionTeardown interface {
	Teardown(ctx context.Context, session *domain.Session) error
}

type LogUploadRequest struct {
	CorrelationID string
	LocusURL      string
	MeetingNumber string
	CallStart     time.Time
}

type LogUploader interface {
	UploadLogs(ctx context.Context, req LogUploadRequest) error
}
