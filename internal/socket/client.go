package socket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrStaleConnection = errors.New("connection stale (no pong)")
)

// Message is a frame received from the server.
type Message struct {
	Data       []byte    // Raw frame payload
	ReceivedAt time.Time // Local time ReadMessage returned
}

// ClientConfig configures a websocket Client.
type ClientConfig struct {
	Header             http.Header   // Extra handshake headers (cookies, auth)
	Reconnect          bool          // Redial after the connection drops
	ReconnectBaseDelay time.Duration // First backoff delay
	ReconnectMaxDelay  time.Duration // Backoff ceiling
	HandshakeTimeout   time.Duration // Dial + upgrade deadline
	PingInterval       time.Duration // How often to ping the server
	PingTimeout        time.Duration // Max time without a pong before the link is stale
	WriteTimeout       time.Duration // Write deadline for sends
	BufferSize         int           // Inbound message buffer
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Reconnect:          true,
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  5 * time.Second,
		HandshakeTimeout:   10 * time.Second,
		PingInterval:       25 * time.Second,
		PingTimeout:        60 * time.Second,
		WriteTimeout:       5 * time.Second,
		BufferSize:         256,
	}
}

// Client is a websocket Handle that dials in the background and redials
// with exponential backoff when the link drops.
type Client struct {
	url    string
	cfg    ClientConfig
	logger *slog.Logger
	dialer websocket.Dialer

	messages chan Message
	done     chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu           sync.RWMutex
	conn         *websocket.Conn
	connected    bool
	lastPongAt   time.Time
	opened       bool
	closed       bool
	cancel       context.CancelFunc
	onConnect    []func()
	onDisconnect []func()
}

// NewClient creates a client for url. Nothing is dialed until Open.
func NewClient(url string, cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultClientConfig()
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = def.ReconnectBaseDelay
	}
	if cfg.ReconnectMaxDelay < cfg.ReconnectBaseDelay {
		cfg.ReconnectMaxDelay = cfg.ReconnectBaseDelay
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = def.PingTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}

	return &Client{
		url:      url,
		cfg:      cfg,
		logger:   logger.With("url", url),
		dialer:   websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout, Proxy: http.ProxyFromEnvironment},
		messages: make(chan Message, cfg.BufferSize),
		done:     make(chan struct{}),
	}
}

// ClientFactory returns a Factory that builds websocket clients.
func ClientFactory(cfg ClientConfig, logger *slog.Logger) Factory {
	return func(baseURL string, opts Options) (Handle, error) {
		u, err := EndpointURL(baseURL, opts)
		if err != nil {
			return nil, err
		}
		return NewClient(u, cfg, logger), nil
	}
}

// OnConnect registers fn to run after each successful dial.
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = append(c.onConnect, fn)
	c.mu.Unlock()
}

// OnDisconnect registers fn to run after an established connection is lost.
func (c *Client) OnDisconnect(fn func()) {
	c.mu.Lock()
	c.onDisconnect = append(c.onDisconnect, fn)
	c.mu.Unlock()
}

// Open starts connecting in the background and returns immediately. The
// connection lives until Disconnect or until ctx is cancelled.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrAlreadyClosed
	}
	if c.opened {
		return nil
	}
	c.opened = true

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go c.run(runCtx)

	return nil
}

// Disconnect closes the connection and stops reconnecting. It is idempotent
// and safe to call before Open.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	wasConnected := c.connected
	c.conn = nil
	c.connected = false
	opened := c.opened
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var err error
	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = conn.Close()
	}

	if wasConnected {
		c.emit(false)
	}
	if !opened {
		c.finish()
	}

	c.logger.Debug("websocket disconnected by client")
	return err
}

// Send writes a text frame.
func (c *Client) Send(data []byte) error {
	c.mu.RLock()
	conn := c.conn
	connected := c.connected
	c.mu.RUnlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Messages returns inbound frames. The channel is closed once the client has stopped.
func (c *Client) Messages() <-chan Message {
	return c.messages
}

// Done is closed once the client has stopped for good.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// run dials, serves the connection until it drops, and redials with backoff.
func (c *Client) run(ctx context.Context) {
	defer c.finish()

	wait := c.cfg.ReconnectBaseDelay
	for {
		conn, err := c.dial(ctx)
		if err == nil {
			wait = c.cfg.ReconnectBaseDelay
			c.serve(ctx, conn)
		} else if ctx.Err() == nil {
			c.logger.Warn("websocket dial failed", "error", err)
		}

		if ctx.Err() != nil || !c.cfg.Reconnect {
			return
		}

		c.logger.Info("attempting reconnection", "wait", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		// Exponential backoff
		wait *= 2
		if wait > c.cfg.ReconnectMaxDelay {
			wait = c.cfg.ReconnectMaxDelay
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	for k, v := range c.cfg.Header {
		header[k] = v
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			c.logger.Debug("websocket handshake rejected", "status", resp.StatusCode)
		}
		return nil, err
	}
	return conn, nil
}

// serve publishes conn, emits connect, and blocks until the link drops.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.connected = true
	c.lastPongAt = time.Now()
	c.mu.Unlock()

	// Server pings count as liveness too
	conn.SetPingHandler(func(data string) error {
		c.touch()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	c.logger.Debug("websocket connected")
	c.emit(true)

	stop := make(chan struct{})
	go c.heartbeatLoop(ctx, conn, stop)
	c.readLoop(conn)
	close(stop)

	c.mu.Lock()
	lost := c.conn == conn && c.connected
	if lost {
		c.conn = nil
		c.connected = false
	}
	c.mu.Unlock()

	conn.Close()
	if lost {
		c.logger.Info("websocket connection lost")
		c.emit(false)
	}
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastPongAt = time.Now()
	c.mu.Unlock()
}

// readLoop forwards frames until the connection fails.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		receivedAt := time.Now()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("websocket read failed", "error", err)
			}
			return
		}

		select {
		case c.messages <- Message{Data: data, ReceivedAt: receivedAt}:
		default:
			c.logger.Warn("message buffer full, dropping message")
		}
	}
}

// heartbeatLoop pings the server and closes conn when pongs stop arriving
// or ctx is cancelled.
func (c *Client) heartbeatLoop(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			conn.Close()
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}

			c.mu.RLock()
			lastPong := c.lastPongAt
			c.mu.RUnlock()

			if time.Since(lastPong) > c.cfg.PingTimeout {
				c.logger.Warn("no pong received, connection stale",
					"last_pong", lastPong,
					"timeout", c.cfg.PingTimeout,
					"error", ErrStaleConnection,
				)
				conn.Close()
				return
			}
		}
	}
}

func (c *Client) emit(connected bool) {
	c.mu.RLock()
	if connected && !c.connected {
		// Disconnect won the race; its disconnect event already went out.
		c.mu.RUnlock()
		return
	}
	fns := c.onDisconnect
	if connected {
		fns = c.onConnect
	}
	fns = append([]func(){}, fns...)
	c.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// finish marks the client stopped. Called once: by run on exit, or by
// Disconnect when run never started.
func (c *Client) finish() {
	close(c.messages)
	close(c.done)
}
