// Package transport owns the single duplex channel to the quiz server. It
// dials the websocket endpoint, runs the read/write pumps, dispatches decoded
// events to subscribers, and performs the identity-rebinding handshake that
// must precede any round traffic on a fresh connection.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/quizwire/quizwire/internal/protocol"
	"github.com/quizwire/quizwire/internal/session"
)

// IdentitySource yields the stored identity consulted during the rejoin
// handshake. *session.Store satisfies it.
type IdentitySource interface {
	Identity() session.Identity
}

// Config holds connection tuning.
type Config struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
	MaxMessageSize   int64
	ReadBufferSize   int
	WriteBufferSize  int
	SendBuffer       int
}

// DefaultConfig returns the default connection tuning.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      60 * time.Second,
		PingInterval:     30 * time.Second,
		MaxMessageSize:   64 * 1024,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		SendBuffer:       256,
	}
}

// Client is the connection manager. One Client owns at most one live
// websocket connection at a time.
type Client struct {
	url      string
	cfg      Config
	clock    clockwork.Clock
	identity IdentitySource

	// Short id correlating log lines across a process lifetime.
	instanceID string

	mu           sync.RWMutex
	conn         *websocket.Conn
	send         chan []byte
	connected    bool
	handlers     map[string][]func(data json.RawMessage)
	onDisconnect func(err error)
}

// NewClient creates a connection manager for the given websocket URL.
func NewClient(url string, cfg Config, identity IdentitySource, clock clockwork.Clock) *Client {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{
		url:        url,
		cfg:        cfg,
		clock:      clock,
		identity:   identity,
		instanceID: uuid.New().String()[:8],
		handlers:   make(map[string][]func(data json.RawMessage)),
	}
}

// On subscribes a handler for an inbound event. Handlers receive the raw
// payload and decode it themselves. Subscriptions must be in place before
// Connect for events the server may push immediately after the handshake.
func (c *Client) On(event string, fn func(data json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], fn)
}

// OnDisconnect registers the callback invoked once when the connection is
// torn down by the peer or by a transport error.
func (c *Client) OnDisconnect(fn func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = fn
}

// Connect dials the server and, once the transport handshake completes,
// performs the rejoin handshake exactly once. It returns a *ConnectivityError
// when the dial fails.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return fmt.Errorf("already connected")
	}
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
		ReadBufferSize:   c.cfg.ReadBufferSize,
		WriteBufferSize:  c.cfg.WriteBufferSize,
	}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return &ConnectivityError{URL: c.url, Err: err}
	}

	c.mu.Lock()
	c.conn = conn
	c.send = make(chan []byte, c.cfg.SendBuffer)
	c.connected = true
	c.mu.Unlock()

	go c.writePump(conn, c.send)
	go c.readPump(conn)

	log.Info().
		Str("instance", c.instanceID).
		Str("url", c.url).
		Msg("connected")

	// Rebind identity before any subscriber is considered ready: the server
	// needs this message to route round events to the new connection at all.
	c.rejoin()
	return nil
}

// IsConnected reports whether the channel is currently live.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// AwaitReady polls channel readiness with a fixed interval and an attempt
// ceiling. Exceeding the ceiling yields a *NotReadyError; callers proceed in
// a degraded state rather than aborting.
func (c *Client) AwaitReady(maxAttempts int, interval time.Duration) error {
	for i := 0; i < maxAttempts; i++ {
		if c.IsConnected() {
			return nil
		}
		c.clock.Sleep(interval)
	}
	if c.IsConnected() {
		return nil
	}
	log.Warn().
		Str("instance", c.instanceID).
		Int("attempts", maxAttempts).
		Msg("channel still not ready, continuing degraded")
	return &NotReadyError{Attempts: maxAttempts, Interval: interval}
}

// Emit sends a typed command to the server.
func (c *Client) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(protocol.Envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", event, err)
	}

	c.mu.RLock()
	connected, send := c.connected, c.send
	c.mu.RUnlock()
	if !connected {
		return fmt.Errorf("emit %s: not connected", event)
	}

	select {
	case send <- frame:
		log.Debug().
			Str("instance", c.instanceID).
			Str("event", event).
			Msg("command queued")
		return nil
	default:
		log.Warn().
			Str("instance", c.instanceID).
			Str("event", event).
			Msg("send buffer full, dropping command")
		return fmt.Errorf("emit %s: send buffer full", event)
	}
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() {
	c.teardown(nil, false)
}

// rejoin runs the identity-rebinding handshake for the freshly established
// connection. A resumable identity picks host-rejoin or player-rejoin; a bare
// room code falls back to an explicit lobby-state pull; a fresh session sends
// nothing, since create-room/join-room will establish identity.
func (c *Client) rejoin() {
	id := c.identity.Identity()
	switch {
	case id.CanResume() && id.IsHost:
		log.Info().
			Str("instance", c.instanceID).
			Str("room_code", id.RoomCode).
			Str("username", id.Username).
			Msg("host rejoining room")
		if err := c.Emit(protocol.CmdHostRejoin, protocol.Rejoin{RoomCode: id.RoomCode, Username: id.Username}); err != nil {
			log.Error().Err(err).Msg("host rejoin failed")
		}
	case id.CanResume():
		log.Info().
			Str("instance", c.instanceID).
			Str("room_code", id.RoomCode).
			Str("username", id.Username).
			Msg("player rejoining room")
		if err := c.Emit(protocol.CmdPlayerRejoin, protocol.Rejoin{RoomCode: id.RoomCode, Username: id.Username}); err != nil {
			log.Error().Err(err).Msg("player rejoin failed")
		}
	case id.RoomCode != "":
		log.Info().
			Str("instance", c.instanceID).
			Str("room_code", id.RoomCode).
			Msg("pulling lobby state")
		if err := c.Emit(protocol.CmdGetLobbyState, protocol.GetLobbyState{RoomCode: id.RoomCode}); err != nil {
			log.Error().Err(err).Msg("lobby state pull failed")
		}
	default:
		log.Debug().Str("instance", c.instanceID).Msg("no stored identity, skipping rejoin")
	}
}

func (c *Client) writePump(conn *websocket.Conn, send chan []byte) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Error().
					Err(err).
					Str("instance", c.instanceID).
					Msg("write failed")
				c.teardown(err, true)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("instance", c.instanceID).
					Msg("ping failed")
				c.teardown(err, true)
				return
			}
		}
	}
}

func (c *Client) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(c.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		return nil
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().
					Err(err).
					Str("instance", c.instanceID).
					Msg("unexpected close")
			}
			c.teardown(err, true)
			return
		}
		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		c.dispatch(frame)
	}
}

func (c *Client) dispatch(frame []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		log.Warn().
			Err(err).
			Str("instance", c.instanceID).
			Msg("ignoring malformed frame")
		return
	}

	c.mu.RLock()
	handlers := slices.Clone(c.handlers[env.Event])
	c.mu.RUnlock()

	log.Debug().
		Str("instance", c.instanceID).
		Str("event", env.Event).
		Int("handlers", len(handlers)).
		Msg("event received")

	if len(handlers) == 0 {
		return
	}
	for _, fn := range handlers {
		fn(env.Data)
	}
}

// teardown closes the connection once and notifies the disconnect callback
// when the teardown was not caller-initiated.
func (c *Client) teardown(err error, notify bool) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	conn := c.conn
	c.conn = nil
	fn := c.onDisconnect
	c.mu.Unlock()

	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}
	log.Info().Str("instance", c.instanceID).Msg("disconnected")

	if notify && fn != nil {
		fn(err)
	}
}
