package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, DefaultLocusBaseURL, cfg.LocusBaseURL)
	assert.Equal(t, DefaultMercuryURL, cfg.MercuryURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.UseRandomDelay)
	assert.Equal(t, DefaultMaxRandomDelay, cfg.MaxRandomDelay)
	assert.Equal(t, DefaultSubscriberSize, cfg.SubscriberBuffer)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, filepath.Join(home, ".config", "lsync", "sessions.toml"), cfg.SnapshotPath)
	assert.Equal(t, filepath.Join(home, ".config", "lsync", "secrets"), cfg.SecretsDir)
	assert.False(t, cfg.Guest)
	assert.Equal(t, DefaultAuthorizeURL, cfg.OAuth.AuthorizeURL)
	assert.Equal(t, []string{"spark:all"}, cfg.OAuth.Scopes)
	assert.Empty(t, cfg.OAuth.ClientID)
}

func TestLoadReadsConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "lsync")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	content := `
guest = true

[locus]
base_url = "https://locus.test/api/"

[device]
url = "https://wdm.test/devices/d1"

[sync]
random_delay = false
max_random_delay = "10s"

[oauth]
client_id = "client-1"
scopes = "spark:all spark:kms"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "https://locus.test/api", cfg.LocusBaseURL)
	assert.Equal(t, "https://wdm.test/devices/d1", cfg.DeviceURL)
	assert.False(t, cfg.UseRandomDelay)
	assert.Equal(t, 10*time.Second, cfg.MaxRandomDelay)
	assert.True(t, cfg.Guest)
	assert.Equal(t, "client-1", cfg.OAuth.ClientID)
	assert.Equal(t, []string{"spark:all", "spark:kms"}, cfg.OAuth.Scopes)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("LSYNC_MERCURY_URL", "ws://127.0.0.1:9000/events")
	t.Setenv("LSYNC_LOG_LEVEL", "debug")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "ws://127.0.0.1:9000/events", cfg.MercuryURL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "lsync")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("locus = [broken"), 0o600))

	_, err := Load(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestValidateJoinsProblems(t *testing.T) {
	t.Parallel()

	err := Config{SubscriberBuffer: -1}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locus base url is empty")
	assert.Contains(t, err.Error(), "mercury url is empty")
	assert.Contains(t, err.Error(), "subscriber buffer must not be negative")
	assert.Contains(t, err.Error(), "request timeout must be positive")
}
