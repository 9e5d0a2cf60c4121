package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".config/lsync"
	envPrefix  = "LSYNC"

	keyLocusBaseURL    = "locus.base_url"
	keyMeetingInfoURL  = "locus.meeting_info_url"
	keyMercuryURL      = "mercury.url"
	keyDeviceURL       = "device.url"
	keyLogLevel        = "log.level"
	keyLogPretty       = "log.pretty"
	keyRandomDelay     = "sync.random_delay"
	keyMaxRandomDelay  = "sync.max_random_delay"
	keyAutoUploadLogs  = "sync.auto_upload_logs"
	keySubscriberQueue = "sync.subscriber_buffer"
	keyRequestTimeout  = "http.request_timeout"
	keySnapshotPath    = "snapshot.path"
	keySecretsDir      = "secrets.dir"
	keyLogUploadURL    = "logs.upload_url"
	keyGuest           = "guest"
	keyOAuthAuthorize  = "oauth.authorize_url"
	keyOAuthToken      = "oauth.token_url"
	keyOAuthClientID   = "oauth.client_id"
	keyOAuthSecret     = "oauth.client_secret"
	keyOAuthScopes     = "oauth.scopes"

	DefaultLocusBaseURL   = "https://locus-a.wbx2.com/locus/api/v1"
	DefaultMeetingInfoURL = "https://wbxappapi.wbx2.com/wbxappapi/v1/meetingInfo"
	DefaultMercuryURL     = "wss://mercury-connection-a.wbx2.com/v1/apps/wx2/registrations"
	DefaultAuthorizeURL   = "https://webexapis.com/v1/device/authorize"
	DefaultTokenURL       = "https://webexapis.com/v1/device/token"
	DefaultOAuthScopes    = "spark:all"
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRandomDelay = 3 * time.Minute
	DefaultSubscriberSize = 64
)

type Config struct {
	LocusBaseURL     string
	MeetingInfoURL   string
	MercuryURL       string
	DeviceURL        string
	LogLevel         string
	LogPretty        bool
	UseRandomDelay   bool
	MaxRandomDelay   time.Duration
	AutoUploadLogs   bool
	SubscriberBuffer int
	RequestTimeout   time.Duration
	SnapshotPath     string
	SecretsDir       string
	LogUploadURL     string
	Guest            bool
	OAuth            OAuthConfig
}

type OAuthConfig struct {
	AuthorizeURL string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Load reads $HOME/.config/lsync/config.toml when present and applies
// LSYNC_* environment overrides (LSYNC_MERCURY_URL for mercury.url).
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, configDir)

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(baseDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, baseDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		LocusBaseURL:     strings.TrimRight(v.GetString(keyLocusBaseURL), "/"),
		MeetingInfoURL:   v.GetString(keyMeetingInfoURL),
		MercuryURL:       v.GetString(keyMercuryURL),
		DeviceURL:        v.GetString(keyDeviceURL),
		LogLevel:         v.GetString(keyLogLevel),
		LogPretty:        v.GetBool(keyLogPretty),
		UseRandomDelay:   v.GetBool(keyRandomDelay),
		MaxRandomDelay:   v.GetDuration(keyMaxRandomDelay),
		AutoUploadLogs:   v.GetBool(keyAutoUploadLogs),
		SubscriberBuffer: v.GetInt(keySubscriberQueue),
		RequestTimeout:   v.GetDuration(keyRequestTimeout),
		SnapshotPath:     v.GetString(keySnapshotPath),
		SecretsDir:       v.GetString(keySecretsDir),
		LogUploadURL:     v.GetString(keyLogUploadURL),
		Guest:            v.GetBool(keyGuest),
		OAuth: OAuthConfig{
			AuthorizeURL: v.GetString(keyOAuthAuthorize),
			TokenURL:     v.GetString(keyOAuthToken),
			ClientID:     v.GetString(keyOAuthClientID),
			ClientSecret: v.GetString(keyOAuthSecret),
			Scopes:       strings.Fields(v.GetString(keyOAuthScopes)),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, baseDir string) {
	v.SetDefault(keyLocusBaseURL, DefaultLocusBaseURL)
	v.SetDefault(keyMeetingInfoURL, DefaultMeetingInfoURL)
	v.SetDefault(keyMercuryURL, DefaultMercuryURL)
	v.SetDefault(keyDeviceURL, "")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogPretty, true)
	v.SetDefault(keyRandomDelay, true)
	v.SetDefault(keyMaxRandomDelay, DefaultMaxRandomDelay)
	v.SetDefault(keyAutoUploadLogs, false)
	v.SetDefault(keySubscriberQueue, DefaultSubscriberSize)
	v.SetDefault(keyRequestTimeout, DefaultRequestTimeout)
	v.SetDefault(keySnapshotPath, filepath.Join(baseDir, "sessions.toml"))
	v.SetDefault(keySecretsDir, filepath.Join(baseDir, "secrets"))
	v.SetDefault(keyLogUploadURL, "")
	v.SetDefault(keyGuest, false)
	v.SetDefault(keyOAuthAuthorize, DefaultAuthorizeURL)
	v.SetDefault(keyOAuthToken, DefaultTokenURL)
	v.SetDefault(keyOAuthClientID, "")
	v.SetDefault(keyOAuthSecret, "")
	v.SetDefault(keyOAuthScopes, DefaultOAuthScopes)
}

func (c Config) Validate() error {
	var errs []error
	if c.LocusBaseURL == "" {
		errs = append(errs, errors.New("locus base url is empty"))
	}
	if c.MercuryURL == "" {
		errs = append(errs, errors.New("mercury url is empty"))
	}
	if c.SnapshotPath == "" {
		errs = append(errs, errors.New("snapshot path is empty"))
	}
	if c.SubscriberBuffer < 0 {
		errs = append(errs, fmt.Errorf("subscriber buffer must not be negative, got %d", c.SubscriberBuffer))
	}
	if c.MaxRandomDelay < 0 {
		errs = append(errs, fmt.Errorf("max random delay must not be negative, got %s", c.MaxRandomDelay))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
