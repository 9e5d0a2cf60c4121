package locus

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bnema/locus-sync/internal/domain"
	"github.com/bnema/locus-sync/internal/log"
)

const deviceName = "lsync"

type deviceRequest struct {
	DeviceName  string `json:"deviceName"`
	DeviceType  string `json:"deviceType"`
	LocalizedOS string `json:"localizedModel"`
}

type deviceResponse struct {
	URL          string `json:"url"`
	WebSocketURL string `json:"webSocketUrl"`
}

// Register refreshes the device registration and records the websocket URL
// the service hands back.
func (c *Client) Register(ctx context.Context) error {
	if c.opts.DeviceURL == "" {
		return fmt.Errorf("register device: device url is empty: %w", domain.ErrNotRegistered)
	}

	var payload deviceResponse
	body := deviceRequest{DeviceName: deviceName, DeviceType: "UNKNOWN", LocalizedOS: "go"}
	if err := c.do(ctx, http.MethodPut, c.opts.DeviceURL, body, &payload); err != nil {
		return fmt.Errorf("register device: %w", err)
	}

	c.mu.Lock()
	c.webSocketURL = payload.WebSocketURL
	c.mu.Unlock()
	log.Debug().Str("device_url", c.opts.DeviceURL).Str("web_socket_url", payload.WebSocketURL).Msg("device registered")
	return nil
}

// Unregister tolerates a device the server already forgot.
func (c *Client) Unregister(ctx context.Context) error {
	if c.opts.DeviceURL == "" {
		return nil
	}

	err := c.do(ctx, http.MethodDelete, c.opts.DeviceURL, nil, nil)
	if err != nil && statusCode(err) != http.StatusNotFound {
		return fmt.Errorf("unregister device: %w", err)
	}
	c.mu.Lock()
	c.webSocketURL = ""
	c.mu.Unlock()
	return nil
}

// CanAuthorize reports whether a bearer token is available.
func (c *Client) CanAuthorize() bool {
	token, err := c.token(context.Background())
	if err != nil {
		if !errors.Is(err, domain.ErrSecretNotFound) {
			log.Warn().Err(err).Msg("read access token")
		}
		return false
	}
	return token != ""
}

// WebSocketURL is the event channel URL from the last registration.
func (c *Client) WebSocketURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.webSocketURL
}
