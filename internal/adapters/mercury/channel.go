package mercury

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/locus-sync/internal/domain"
	"github.com/bnema/locus-sync/internal/log"
	"github.com/bnema/locus-sync/internal/ports"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// TokenKey matches the key the locus client reads its bearer token from.
const TokenKey = "locus/access_token"

const (
	defaultPingInterval = 15 * time.Second
	defaultPongWait     = 45 * time.Second
	defaultWriteWait    = 10 * time.Second
	defaultMinBackoff   = time.Second
	defaultMaxBackoff   = 32 * time.Second
)

var ErrAlreadyConnected = errors.New("event channel already connected")

type Options struct {
	// URL is used when URLFunc is nil or returns "".
	URL          string
	URLFunc      func() string
	Tokens       ports.SecretStore
	Dialer       *websocket.Dialer
	PingInterval time.Duration
	PongWait     time.Duration
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
}

// Channel is the push event socket. It reconnects with exponential backoff
// and reports connectivity changes through the handler.
type Channel struct {
	opts Options

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	writeMu sync.Mutex
}

var _ ports.EventChannel = (*Channel)(nil)

func NewChannel(opts Options) *Channel {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.PongWait <= 0 {
		opts.PongWait = defaultPongWait
	}
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = defaultMinBackoff
	}
	if opts.MaxBackoff < opts.MinBackoff {
		opts.MaxBackoff = max(defaultMaxBackoff, opts.MinBackoff)
	}
	return &Channel{opts: opts}
}

type frame struct {
	ID   string          `json:"id,omitempty"`
	Type string          `json:"type,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type authorizationData struct {
	Token string `json:"token"`
}

type ackFrame struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
}

// Connect dials once and returns the dial error. After that the channel
// keeps itself connected until Disconnect.
func (c *Channel) Connect(ctx context.Context, handler ports.EventHandler) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.run(runCtx, conn, handler, done)
	return nil
}

// Disconnect stops reconnecting and waits for the reader to exit.
func (c *Channel) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close event channel: %w", ctx.Err())
	}
}

func (c *Channel) url() string {
	if c.opts.URLFunc != nil {
		if url := c.opts.URLFunc(); url != "" {
			return url
		}
	}
	return c.opts.URL
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	url := c.url()
	if url == "" {
		return nil, errors.New("dial event channel: url is empty")
	}
	if c.opts.Tokens == nil {
		return nil, fmt.Errorf("dial event channel: %w", domain.ErrSecretNotFound)
	}
	token, err := c.opts.Tokens.Get(ctx, TokenKey)
	if err != nil {
		return nil, fmt.Errorf("dial event channel: %w", err)
	}

	conn, _, err := c.opts.Dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial event channel %s: %w", url, err)
	}

	data, err := json.Marshal(authorizationData{Token: "Bearer " + token})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("encode authorization: %w", err)
	}
	auth := frame{ID: uuid.NewString(), Type: "authorization", Data: data}
	if err := c.writeJSON(conn, auth); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("authorize event channel: %w", err)
	}

	return conn, nil
}

func (c *Channel) writeJSON(conn *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(defaultWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

func (c *Channel) run(ctx context.Context, conn *websocket.Conn, handler ports.EventHandler, done chan struct{}) {
	defer close(done)

	for {
		err := c.serve(ctx, conn, handler)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}

		log.Warn().Err(err).Msg("event channel lost")
		handler.HandleOffline(ctx)

		conn = c.reconnect(ctx)
		if conn == nil {
			return
		}
		if ctx.Err() != nil {
			_ = conn.Close()
			return
		}
		log.Info().Msg("event channel reconnected")
		handler.HandleOnline(ctx)
	}
}

// serve reads frames until the connection fails or ctx ends.
func (c *Channel) serve(ctx context.Context, conn *websocket.Conn, handler ports.EventHandler) error {
	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go c.ping(pingCtx, conn)

	stopClose := context.AfterFunc(ctx, func() {
		c.writeClose(conn)
		_ = conn.Close()
	})
	defer stopClose()

	_ = conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		if messageType != websocket.TextMessage {
			continue
		}
		c.dispatch(ctx, conn, payload, handler)
	}
}

func (c *Channel) dispatch(ctx context.Context, conn *websocket.Conn, payload []byte, handler ports.EventHandler) {
	var msg frame
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Warn().Err(err).Msg("decode event frame")
		return
	}
	if msg.ID != "" {
		if err := c.writeJSON(conn, ackFrame{Type: "ack", MessageID: msg.ID}); err != nil {
			log.Debug().Err(err).Str("message_id", msg.ID).Msg("ack event frame")
		}
	}
	if len(msg.Data) == 0 {
		return
	}

	var envelope domain.Envelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		log.Warn().Err(err).Str("message_id", msg.ID).Msg("decode event envelope")
		return
	}
	if !envelope.IsLocusEvent() {
		return
	}
	handler.HandleEnvelope(ctx, envelope)
}

func (c *Channel) writeClose(conn *websocket.Conn) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	err := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect"),
		time.Now().Add(defaultWriteWait),
	)
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		log.Debug().Err(err).Msg("send close frame")
	}
}

func (c *Channel) ping(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(defaultWriteWait))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// reconnect retries with exponential backoff and returns nil once ctx ends.
func (c *Channel) reconnect(ctx context.Context) *websocket.Conn {
	backoff := c.opts.MinBackoff
	for {
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		conn, err := c.dial(ctx)
		if err == nil {
			return conn
		}

		log.Debug().Err(err).Dur("backoff", backoff).Msg("event channel reconnect failed")
		backoff = min(backoff*2, c.opts.MaxBackoff)
	}
}
