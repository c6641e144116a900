// Package feed owns the persistent push-channel connection and routes
// inbound messages into store actions.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"marketsync/internal/action"
	"marketsync/internal/errors"
	"marketsync/internal/logging"
	"marketsync/internal/models"
	"marketsync/pkg/utils"
)

// Handler translates an inbound payload into one store action.
// Returning a nil action drops the message.
type Handler func(payload json.RawMessage) (action.Action, error)

// Dispatcher is the subset of the store the feed needs.
type Dispatcher interface {
	Dispatch(a action.Action)
}

// Envelope is the wire format of every feed message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// controlFrame is the outbound subscription control format.
type controlFrame struct {
	Op      string `json:"op"`
	Channel string `json:"channel,omitempty"`
}

// Config holds live feed configuration.
type Config struct {
	URL          string
	MaxRetries   int
	Backoff      utils.Backoff
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// Gateway maintains a single live feed connection with bounded reconnect.
type Gateway struct {
	cfg        Config
	dialer     *websocket.Dialer
	dispatcher Dispatcher
	logger     zerolog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	state    models.ConnectionState
	lastErr  error
	handlers map[string]Handler
	channels map[string]struct{}
	done     chan struct{}

	writeMu sync.Mutex
}

// New creates a live feed gateway. Handlers for the built-in message
// types are registered via RegisterDefaultHandlers.
func New(cfg Config, dispatcher Dispatcher, logger zerolog.Logger) *Gateway {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 8
	}
	if cfg.Backoff == (utils.Backoff{}) {
		cfg.Backoff = utils.DefaultBackoff()
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Gateway{
		cfg:        cfg,
		dialer:     websocket.DefaultDialer,
		dispatcher: dispatcher,
		logger:     logging.WithComponent(logger, "feed"),
		state:      models.ConnDisconnected,
		handlers:   make(map[string]Handler),
		channels:   make(map[string]struct{}),
	}
}

// RegisterHandler maps an inbound message type to a handler. Registering
// again for the same type replaces the previous handler.
func (g *Gateway) RegisterHandler(msgType string, h Handler) {
	g.mu.Lock()
	g.handlers[msgType] = h
	g.mu.Unlock()
}

// State returns the current connection state.
func (g *Gateway) State() models.ConnectionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Connect establishes the connection. It is idempotent: a second call
// while connected or connecting is a no-op.
func (g *Gateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	switch g.state {
	case models.ConnConnected, models.ConnConnecting, models.ConnReconnecting:
		g.mu.Unlock()
		return nil
	}
	g.done = make(chan struct{})
	g.lastErr = nil
	done := g.done
	g.mu.Unlock()

	g.setState(models.ConnConnecting)

	conn, err := g.dial(ctx)
	if err != nil {
		g.setState(models.ConnError)
		return errors.NewFeedError("connect", "", err)
	}

	if !g.install(conn, done) {
		return nil
	}
	g.setState(models.ConnConnected)

	g.resubscribe()
	go g.readLoop(ctx, conn, done)
	g.startPing(conn, done)
	return nil
}

// Disconnect closes the connection and cancels any in-flight reconnect,
// including one waiting out its backoff.
func (g *Gateway) Disconnect() {
	g.mu.Lock()
	if g.done != nil {
		select {
		case <-g.done:
		default:
			close(g.done)
		}
		g.done = nil
	}
	conn := g.conn
	g.conn = nil
	g.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	g.setState(models.ConnDisconnected)
}

// Subscribe registers interest in a channel. The subscription is tracked
// so it survives reconnects; the control frame is sent when connected.
func (g *Gateway) Subscribe(channel string) error {
	g.mu.Lock()
	g.channels[channel] = struct{}{}
	connected := g.state == models.ConnConnected
	g.mu.Unlock()

	if !connected {
		return nil
	}
	return g.write(controlFrame{Op: "subscribe", Channel: channel})
}

// Unsubscribe removes interest in a channel.
func (g *Gateway) Unsubscribe(channel string) error {
	g.mu.Lock()
	delete(g.channels, channel)
	connected := g.state == models.ConnConnected
	g.mu.Unlock()

	if !connected {
		return nil
	}
	return g.write(controlFrame{Op: "unsubscribe", Channel: channel})
}

// Send writes an arbitrary message on the connection. Once reconnect
// attempts are exhausted the returned error wraps ErrRetriesExhausted.
func (g *Gateway) Send(v interface{}) error {
	g.mu.Lock()
	connected := g.state == models.ConnConnected
	lastErr := g.lastErr
	g.mu.Unlock()
	if !connected {
		if lastErr != nil {
			return lastErr
		}
		return errors.ErrNotConnected
	}
	return g.write(v)
}

// install adopts a freshly dialed connection unless Disconnect closed
// done while the dial was in flight; a late conn is closed, not kept.
func (g *Gateway) install(conn *websocket.Conn, done chan struct{}) bool {
	g.mu.Lock()
	select {
	case <-done:
		g.mu.Unlock()
		conn.Close()
		return false
	default:
	}
	g.conn = conn
	g.mu.Unlock()
	return true
}

func (g *Gateway) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := g.dialer.DialContext(ctx, g.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

func (g *Gateway) write(v interface{}) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	g.mu.Lock()
	conn := g.conn
	g.mu.Unlock()
	if conn == nil {
		return errors.ErrNotConnected
	}

	conn.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
	if err := conn.WriteJSON(v); err != nil {
		return errors.NewFeedError("write", "", err)
	}
	return nil
}

// readLoop consumes inbound messages until the connection drops or
// Disconnect is called. On unexpected closure it hands over to the
// reconnect loop.
func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				return // deliberate disconnect
			default:
			}
			g.logger.Warn().Err(err).Msg("Feed connection lost")
			g.reconnectLoop(ctx, done)
			return
		}
		g.handleMessage(raw)
	}
}

// handleMessage demultiplexes one inbound message by its type field.
// Unknown types and malformed payloads are dropped with a warning.
func (g *Gateway) handleMessage(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		g.logger.Warn().Err(err).Msg("Dropping malformed feed message")
		return
	}
	logging.LogFeedMessage(g.logger, env.Type, len(raw))

	g.mu.Lock()
	handler, ok := g.handlers[env.Type]
	g.mu.Unlock()
	if !ok {
		g.logger.Warn().Str("type", env.Type).Msg("Dropping unregistered feed message type")
		return
	}

	act, err := handler(env.Payload)
	if err != nil {
		g.logger.Warn().Err(err).Str("type", env.Type).Msg("Dropping invalid feed payload")
		return
	}
	if act != nil {
		g.dispatcher.Dispatch(act)
	}
}

// reconnectLoop retries with bounded exponential backoff. Disconnect
// cancels it at any point, including mid-backoff. When attempts run out
// the gateway surfaces the error state instead of retrying forever.
func (g *Gateway) reconnectLoop(ctx context.Context, done chan struct{}) {
	g.setState(models.ConnReconnecting)

	for attempt := 0; attempt < g.cfg.MaxRetries; attempt++ {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-time.After(g.cfg.Backoff.Delay(attempt)):
		}

		conn, err := g.dial(ctx)
		if err != nil {
			g.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Reconnect attempt failed")
			continue
		}

		if !g.install(conn, done) {
			return
		}
		g.setState(models.ConnConnected)
		g.resubscribe()
		go g.readLoop(ctx, conn, done)
		g.startPing(conn, done)
		return
	}

	g.mu.Lock()
	g.lastErr = errors.NewFeedError("reconnect", "", errors.ErrRetriesExhausted)
	g.mu.Unlock()
	g.setState(models.ConnError)
	g.logger.Error().
		Err(errors.ErrRetriesExhausted).
		Int("attempts", g.cfg.MaxRetries).
		Msg("Giving up on live feed")
}

// startPing keeps the connection alive with periodic ping frames. A zero
// interval disables keepalive.
func (g *Gateway) startPing(conn *websocket.Conn, done chan struct{}) {
	if g.cfg.PingInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(g.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				g.writeMu.Lock()
				conn.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
				err := conn.WriteMessage(websocket.PingMessage, nil)
				g.writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()
}

// resubscribe replays all tracked channel subscriptions.
func (g *Gateway) resubscribe() {
	g.mu.Lock()
	channels := make([]string, 0, len(g.channels))
	for ch := range g.channels {
		channels = append(channels, ch)
	}
	g.mu.Unlock()

	for _, ch := range channels {
		if err := g.write(controlFrame{Op: "subscribe", Channel: ch}); err != nil {
			g.logger.Warn().Err(err).Str("channel", ch).Msg("Resubscribe failed")
		}
	}
}

// setState records a connection state transition and surfaces it as a
// store action plus a transient user-visible notification.
func (g *Gateway) setState(next models.ConnectionState) {
	g.mu.Lock()
	prev := g.state
	if prev == next {
		g.mu.Unlock()
		return
	}
	g.state = next
	g.mu.Unlock()

	logging.LogConnectionState(g.logger, string(prev), string(next))
	now := time.Now()
	g.dispatcher.Dispatch(action.ConnectionChanged{State: next, At: now})
	g.dispatcher.Dispatch(action.NotificationAdded{Notification: connectionNotice(next, now)})
}

func connectionNotice(state models.ConnectionState, now time.Time) models.Notification {
	n := models.Notification{
		ID:        fmt.Sprintf("conn-%d", now.UnixNano()),
		Title:     "Live feed",
		AutoHide:  5 * time.Second,
		CreatedAt: now,
	}
	switch state {
	case models.ConnConnected:
		n.Severity = models.SeveritySuccess
		n.Message = "Live data connected"
	case models.ConnConnecting:
		n.Severity = models.SeverityInfo
		n.Message = "Connecting to live data"
	case models.ConnReconnecting:
		n.Severity = models.SeverityWarning
		n.Message = "Live data interrupted, reconnecting"
	case models.ConnError:
		n.Severity = models.SeverityError
		n.Message = "Live data unavailable"
		n.AutoHide = 0 // stays until dismissed
	default:
		n.Severity = models.SeverityInfo
		n.Message = "Live data disconnected"
	}
	return n
}
