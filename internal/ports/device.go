package ports

import (
	"context"

	"github.com/bnema/locus-sync/internal/domain"
)

// DeviceRegistrar registers this client's device with the backend.
type DeviceRegistrar interface {
	Register(ctx context.Context) error
	Unregister(ctx context.Context) error
	CanAuthorize() bool
}

// EventChannel is the persistent push channel delivering session records.
type EventChannel interface {
	Connect(ctx context.Context, handler EventHandler) error
	Disconnect(ctx context.Context) error
}

// EventHandler receives callbacks from an EventChannel.
type EventHandler interface {
	HandleEnvelope(ctx context.Context, envelope domain.Envelope)
	HandleOnline(ctx context.Context)
	HandleOffline(ctx context.Context)
}
