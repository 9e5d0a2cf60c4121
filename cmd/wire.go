package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bnema/locus-sync/internal/adapters/auth"
	"github.com/bnema/locus-sync/internal/adapters/locus"
	"github.com/bnema/locus-sync/internal/adapters/mercury"
	sessionsrender "github.com/bnema/locus-sync/internal/adapters/render/sessions"
	tomlrepo "github.com/bnema/locus-sync/internal/adapters/repo/toml"
	filestore "github.com/bnema/locus-sync/internal/adapters/secrets/file"
	"github.com/bnema/locus-sync/internal/application"
	"github.com/bnema/locus-sync/internal/config"
	"github.com/bnema/locus-sync/internal/domain"
	"github.com/bnema/locus-sync/internal/log"
	"github.com/bnema/locus-sync/internal/ports"
	"github.com/spf13/viper"
)

type app struct {
	cfg            config.Config
	service        *application.Service
	snapshots      ports.SnapshotRepository
	tokens         ports.SecretStore
	login          *auth.DeviceLogin
	renderSessions func(domain.Snapshot, sessionsrender.RenderOptions) (string, error)
	now            func() time.Time
}

func wireApp() (*app, error) {
	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log.Configure(log.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	snapshots, err := tomlrepo.NewRepository(cfg.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("wire snapshot repository: %w", err)
	}
	tokens := filestore.NewStore(cfg.SecretsDir)

	client := locus.NewClient(locus.Options{
		BaseURL:        cfg.LocusBaseURL,
		MeetingInfoURL: cfg.MeetingInfoURL,
		DeviceURL:      cfg.DeviceURL,
		LogUploadURL:   cfg.LogUploadURL,
		HTTPClient:     http.DefaultClient,
		RequestTimeout: cfg.RequestTimeout,
		Tokens:         tokens,
	})
	channel := mercury.NewChannel(mercury.Options{
		URL:     cfg.MercuryURL,
		URLFunc: client.WebSocketURL,
		Tokens:  tokens,
	})

	var uploader ports.LogUploader
	if cfg.LogUploadURL != "" {
		uploader = client
	}

	service := application.NewService(application.Config{
		DeviceURL:          cfg.DeviceURL,
		Guest:              cfg.Guest,
		AutoUploadLogs:     cfg.AutoUploadLogs,
		SubscriberBuffer:   cfg.SubscriberBuffer,
		MaxRandomDelay:     cfg.MaxRandomDelay,
		DisableRandomDelay: !cfg.UseRandomDelay,
	}, application.Dependencies{
		Metadata:    client,
		Sessions:    client,
		Device:      client,
		Events:      channel,
		LogUploader: uploader,
		Clock:       ports.SystemClock{},
	})

	return &app{
		cfg:            cfg,
		service:        service,
		snapshots:      snapshots,
		tokens:         tokens,
		login: auth.NewDeviceLogin(auth.Options{
			AuthorizeURL:   cfg.OAuth.AuthorizeURL,
			TokenURL:       cfg.OAuth.TokenURL,
			ClientID:       cfg.OAuth.ClientID,
			ClientSecret:   cfg.OAuth.ClientSecret,
			Scopes:         cfg.OAuth.Scopes,
			HTTPClient:     http.DefaultClient,
			RequestTimeout: cfg.RequestTimeout,
		}),
		renderSessions: sessionsrender.Render,
		now:            time.Now,
	}, nil
}

// persistSnapshot saves the live registry so `lsync sessions` can show it
// from another process.
func (a *app) persistSnapshot(ctx context.Context) error {
	if err := a.snapshots.Save(ctx, a.service.Snapshot()); err != nil {
		return fmt.Errorf("persist session snapshot: %w", err)
	}
	return nil
}
