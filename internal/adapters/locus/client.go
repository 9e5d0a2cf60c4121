package locus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bnema/locus-sync/internal/domain"
	"github.com/bnema/locus-sync/internal/ports"
	"github.com/google/uuid"
)

// TokenKey is the secret store key holding the bearer token.
const TokenKey = "locus/access_token"

const (
	maxResponseBytes      = 4 << 20
	defaultRequestTimeout = 30 * time.Second
	trackingPrefix        = "lsync_"
)

type Options struct {
	BaseURL        string
	MeetingInfoURL string
	DeviceURL      string
	LogUploadURL   string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Tokens         ports.SecretStore
}

// Client talks to the locus, meeting-info and device services with one
// bearer token.
type Client struct {
	opts Options

	mu           sync.RWMutex
	webSocketURL string
}

var (
	_ ports.MetadataProvider    = (*Client)(nil)
	_ ports.ActiveSessionSource = (*Client)(nil)
	_ ports.DeviceRegistrar     = (*Client)(nil)
	_ ports.LogUploader         = (*Client)(nil)
)

func NewClient(opts Options) *Client {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Client{opts: opts}
}

// StatusError is a non-2xx response. Code is the service error code from
// the JSON body when present.
type StatusError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("http %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Errors  []struct {
		Description string `json:"description"`
	} `json:"errors"`
}

func (c *Client) httpClient() *http.Client {
	if c.opts.HTTPClient != nil {
		return c.opts.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.opts.Tokens == nil {
		return "", fmt.Errorf("load access token: %w", domain.ErrSecretNotFound)
	}
	token, err := c.opts.Tokens.Get(ctx, TokenKey)
	if err != nil {
		return "", fmt.Errorf("load access token: %w", err)
	}
	return token, nil
}

// do sends a JSON request and decodes a JSON response into out when out is
// not nil.
func (c *Client) do(ctx context.Context, method string, endpoint string, in any, out any) error {
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("TrackingID", trackingPrefix+uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeStatusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func decodeStatusError(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil || len(data) == 0 {
		return statusErr
	}

	var payload errorBody
	if err := json.Unmarshal(data, &payload); err != nil {
		statusErr.Message = strings.TrimSpace(string(data))
		return statusErr
	}
	statusErr.Code = payload.Code
	switch {
	case payload.Message != "":
		statusErr.Message = payload.Message
	case len(payload.Errors) > 0 && payload.Errors[0].Description != "":
		statusErr.Message = payload.Errors[0].Description
	}
	return statusErr
}

func statusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
