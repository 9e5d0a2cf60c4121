package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoginServer(t *testing.T, token http.HandlerFunc) (*httptest.Server, *DeviceLogin) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/device/authorize", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client-123", r.Form.Get("client_id"))
		assert.Equal(t, "spark:all spark:kms", r.Form.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"device_code":"dev-code","user_code":"ABCD-1234","verification_uri":"https://example.com/verify","verification_uri_complete":"https://example.com/verify?code=ABCD-1234","expires_in":300,"interval":5}`))
	})
	mux.HandleFunc("/device/token", token)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	login := NewDeviceLogin(Options{
		AuthorizeURL: server.URL + "/device/authorize",
		TokenURL:     server.URL + "/device/token",
		ClientID:     "client-123",
		ClientSecret: "secret",
		Scopes:       []string{"spark:all", "spark:kms"},
		HTTPClient:   server.Client(),
	})
	return server, login
}

func writeOAuthError(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write([]byte(`{"error":"` + code + `"}`))
}

func TestStartParsesAuthorization(t *testing.T) {
	t.Parallel()

	_, login := newLoginServer(t, http.NotFound)

	before := time.Now()
	authz, err := login.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dev-code", authz.DeviceCode)
	assert.Equal(t, "ABCD-1234", authz.UserCode)
	assert.Equal(t, "https://example.com/verify?code=ABCD-1234", authz.VerificationURL)
	assert.Equal(t, 5*time.Second, authz.Interval)
	assert.WithinDuration(t, before.Add(5*time.Minute), authz.ExpiresAt, 5*time.Second)
}

func TestStartRequiresClientID(t *testing.T) {
	t.Parallel()

	_, err := NewDeviceLogin(Options{AuthorizeURL: "https://example.com/device/authorize"}).Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client id")
}

func TestStartReportsServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeOAuthError(w, "invalid_client")
	}))
	t.Cleanup(server.Close)

	login := NewDeviceLogin(Options{AuthorizeURL: server.URL, ClientID: "c", HTTPClient: server.Client()})
	_, err := login.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_client")
}

func TestWaitPollsUntilApproved(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	_, login := newLoginServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, deviceCodeGrantType, r.Form.Get("grant_type"))
		assert.Equal(t, "dev-code", r.Form.Get("device_code"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-123", user)
		assert.Equal(t, "secret", pass)

		if calls.Add(1) < 3 {
			writeOAuthError(w, "authorization_pending")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-1","refresh_token":"refresh-1","token_type":"Bearer","expires_in":3600}`))
	})

	authz, err := login.Start(context.Background())
	require.NoError(t, err)
	authz.Interval = 10 * time.Millisecond

	token, err := login.Wait(context.Background(), authz)
	require.NoError(t, err)
	assert.Equal(t, "access-1", token.AccessToken)
	assert.Equal(t, "refresh-1", token.RefreshToken)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitMapsTerminalErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want error
	}{
		{code: "access_denied", want: ErrLoginDenied},
		{code: "expired_token", want: ErrLoginExpired},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.code, func(t *testing.T) {
			t.Parallel()

			_, login := newLoginServer(t, func(w http.ResponseWriter, _ *http.Request) {
				writeOAuthError(w, tc.code)
			})
			_, err := login.Wait(context.Background(), Authorization{
				DeviceCode: "dev-code",
				Interval:   time.Millisecond,
				ExpiresAt:  time.Now().Add(time.Minute),
			})
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestWaitExpiresWhilePending(t *testing.T) {
	t.Parallel()

	_, login := newLoginServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeOAuthError(w, "authorization_pending")
	})

	_, err := login.Wait(context.Background(), Authorization{
		DeviceCode: "dev-code",
		Interval:   5 * time.Millisecond,
		ExpiresAt:  time.Now().Add(50 * time.Millisecond),
	})
	require.ErrorIs(t, err, ErrLoginExpired)
}

func TestWaitHonorsCallerCancellation(t *testing.T) {
	t.Parallel()

	_, login := newLoginServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeOAuthError(w, "authorization_pending")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := login.Wait(ctx, Authorization{
		DeviceCode: "dev-code",
		Interval:   5 * time.Millisecond,
		ExpiresAt:  time.Now().Add(time.Minute),
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
