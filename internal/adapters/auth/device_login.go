package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	deviceCodeGrantType = "urn:ietf:params:oauth:grant-type:device_code"
	maxResponseBytes    = 1 << 20

	defaultPollInterval = 5 * time.Second
	defaultLoginWindow  = 5 * time.Minute
	slowDownStep        = 5 * time.Second

	// RefreshTokenKey sits next to the access token in the secret store.
	RefreshTokenKey = "locus/refresh_token"
)

var (
	ErrLoginExpired = errors.New("device login expired before it was approved")
	ErrLoginDenied  = errors.New("device login was denied")
)

type Options struct {
	AuthorizeURL   string
	TokenURL       string
	ClientID       string
	ClientSecret   string
	Scopes         []string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

// DeviceLogin obtains a bearer token through the OAuth device authorization
// grant, so a headless host can be approved from any browser.
type DeviceLogin struct {
	opts Options
}

// Authorization is a pending device login. Interval may be lowered by the
// caller before Wait.
type Authorization struct {
	DeviceCode      string
	UserCode        string
	VerificationURL string
	Interval        time.Duration
	ExpiresAt       time.Time
}

type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type authorizeResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	ExpiresIn               int64  `json:"expires_in"`
	Interval                int64  `json:"interval"`
}

type oauthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
	Interval    int64  `json:"interval"`
}

func (e oauthError) String() string {
	if e.Description != "" {
		return e.Code + ": " + e.Description
	}
	return e.Code
}

func NewDeviceLogin(opts Options) *DeviceLogin {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	return &DeviceLogin{opts: opts}
}

// Start asks the authorization server for a user code.
func (d *DeviceLogin) Start(ctx context.Context) (Authorization, error) {
	if d.opts.ClientID == "" {
		return Authorization{}, errors.New("oauth client id is required")
	}

	values := url.Values{}
	values.Set("client_id", d.opts.ClientID)
	if len(d.opts.Scopes) > 0 {
		values.Set("scope", strings.Join(d.opts.Scopes, " "))
	}

	resp, err := d.postForm(ctx, d.opts.AuthorizeURL, values)
	if err != nil {
		return Authorization{}, fmt.Errorf("request device code: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Authorization{}, fmt.Errorf("request device code: %s", describeError(resp))
	}

	var payload authorizeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return Authorization{}, fmt.Errorf("decode device code response: %w", err)
	}

	verificationURL := payload.VerificationURIComplete
	if verificationURL == "" {
		verificationURL = payload.VerificationURI
	}
	if payload.DeviceCode == "" || payload.UserCode == "" || verificationURL == "" {
		return Authorization{}, errors.New("device code response missing required fields")
	}

	interval := time.Duration(payload.Interval) * time.Second
	if interval <= 0 {
		interval = defaultPollInterval
	}
	window := time.Duration(payload.ExpiresIn) * time.Second
	if window <= 0 {
		window = defaultLoginWindow
	}

	return Authorization{
		DeviceCode:      payload.DeviceCode,
		UserCode:        payload.UserCode,
		VerificationURL: verificationURL,
		Interval:        interval,
		ExpiresAt:       time.Now().Add(window),
	}, nil
}

// Wait polls the token endpoint until the user approves, denies, or the
// authorization expires.
func (d *DeviceLogin) Wait(ctx context.Context, authz Authorization) (Token, error) {
	if authz.DeviceCode == "" {
		return Token{}, errors.New("device code is required")
	}
	interval := authz.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	pollCtx, cancel := context.WithDeadline(ctx, authz.ExpiresAt)
	defer cancel()

	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return Token{}, ctx.Err()
			}
			return Token{}, ErrLoginExpired
		case <-timer.C:
		}

		token, next, err := d.poll(pollCtx, authz.DeviceCode, interval)
		switch {
		case err != nil:
			if pollCtx.Err() != nil && ctx.Err() == nil {
				return Token{}, ErrLoginExpired
			}
			return Token{}, err
		case token.AccessToken != "":
			return token, nil
		}
		interval = next
		timer.Reset(interval)
	}
}

// poll returns a token, or the interval to wait before the next attempt
// while the login is still pending.
func (d *DeviceLogin) poll(ctx context.Context, deviceCode string, interval time.Duration) (Token, time.Duration, error) {
	values := url.Values{}
	values.Set("grant_type", deviceCodeGrantType)
	values.Set("client_id", d.opts.ClientID)
	values.Set("device_code", deviceCode)

	resp, err := d.postForm(ctx, d.opts.TokenURL, values)
	if err != nil {
		return Token{}, 0, fmt.Errorf("request token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		var token Token
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&token); err != nil {
			return Token{}, 0, fmt.Errorf("decode token response: %w", err)
		}
		if token.AccessToken == "" {
			return Token{}, 0, errors.New("token response missing access token")
		}
		return token, 0, nil
	}

	var failure oauthError
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&failure); err != nil {
		return Token{}, 0, fmt.Errorf("request token: status %d", resp.StatusCode)
	}
	if failure.Interval > 0 {
		interval = time.Duration(failure.Interval) * time.Second
	}

	switch failure.Code {
	case "authorization_pending":
		return Token{}, interval, nil
	case "slow_down":
		return Token{}, interval + slowDownStep, nil
	case "expired_token":
		return Token{}, 0, ErrLoginExpired
	case "access_denied":
		return Token{}, 0, ErrLoginDenied
	case "":
		return Token{}, 0, fmt.Errorf("request token: status %d", resp.StatusCode)
	default:
		return Token{}, 0, fmt.Errorf("request token: %s", failure)
	}
}

func (d *DeviceLogin) postForm(ctx context.Context, endpoint string, values url.Values) (*http.Response, error) {
	if err := validateEndpoint(endpoint); err != nil {
		return nil, err
	}

	reqCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, d.opts.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if d.opts.ClientSecret != "" {
		req.SetBasicAuth(d.opts.ClientID, d.opts.ClientSecret)
	}

	resp, err := d.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	resp.Body = io.NopCloser(strings.NewReader(string(body)))
	return resp, nil
}

func describeError(resp *http.Response) string {
	var failure oauthError
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&failure); err != nil || failure.Code == "" {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return failure.String()
}

func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return errors.New("oauth endpoint is required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse oauth endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("oauth endpoint must use http or https")
	}
	if parsed.Host == "" {
		return errors.New("oauth endpoint host is required")
	}
	return nil
}
