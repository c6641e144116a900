package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"marketsync/internal/action"
	"marketsync/internal/errors"
	"marketsync/internal/models"
	"marketsync/internal/store"
	"marketsync/pkg/utils"
)

type recordingDispatcher struct {
	mu      sync.Mutex
	actions []action.Action
}

func (d *recordingDispatcher) Dispatch(a action.Action) {
	d.mu.Lock()
	d.actions = append(d.actions, a)
	d.mu.Unlock()
}

func (d *recordingDispatcher) find(match func(action.Action) bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.actions {
		if match(a) {
			return true
		}
	}
	return false
}

var upgrader = websocket.Upgrader{}

// feedServer is a minimal push-channel endpoint for tests. It records
// inbound control frames and exposes the connection for pushing.
type feedServer struct {
	*httptest.Server

	mu     sync.Mutex
	conns  []*websocket.Conn
	frames []controlFrame
	dials  int64
}

func newFeedServer(t *testing.T) *feedServer {
	t.Helper()
	fs := &feedServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&fs.dials, 1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.mu.Lock()
		fs.conns = append(fs.conns, conn)
		fs.mu.Unlock()

		for {
			var frame controlFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			fs.mu.Lock()
			fs.frames = append(fs.frames, frame)
			fs.mu.Unlock()
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *feedServer) wsURL() string {
	return strings.Replace(fs.URL, "http://", "ws://", 1)
}

func (fs *feedServer) push(t *testing.T, msgType string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	fs.mu.Lock()
	conn := fs.conns[len(fs.conns)-1]
	fs.mu.Unlock()
	if err := conn.WriteJSON(Envelope{Type: msgType, Payload: raw}); err != nil {
		t.Fatalf("push: %v", err)
	}
}

func (fs *feedServer) lastFrame() (controlFrame, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.frames) == 0 {
		return controlFrame{}, false
	}
	return fs.frames[len(fs.frames)-1], true
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestConnectAndSubscribe(t *testing.T) {
	server := newFeedServer(t)
	dispatcher := &recordingDispatcher{}

	g := New(Config{URL: server.wsURL()}, dispatcher, zerolog.Nop())
	if err := g.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer g.Disconnect()

	if g.State() != models.ConnConnected {
		t.Fatalf("state = %s, want connected", g.State())
	}
	// Idempotent: a second Connect is a no-op.
	if err := g.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	if atomic.LoadInt64(&server.dials) != 1 {
		t.Fatalf("dials = %d, want 1", server.dials)
	}

	if err := g.Subscribe("market"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	waitFor(t, func() bool {
		frame, ok := server.lastFrame()
		return ok && frame.Op == "subscribe" && frame.Channel == "market"
	}, "subscribe control frame not received")

	if !dispatcher.find(func(a action.Action) bool {
		cc, ok := a.(action.ConnectionChanged)
		return ok && cc.State == models.ConnConnected
	}) {
		t.Fatal("connected transition not dispatched")
	}
}

func TestInboundMessagesReachStore(t *testing.T) {
	server := newFeedServer(t)
	st := store.New(zerolog.Nop())

	g := New(Config{URL: server.wsURL()}, st, zerolog.Nop())
	if err := g.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer g.Disconnect()
	RegisterDefaultHandlers(g)

	// A push for an unknown portfolio id creates the entry.
	server.push(t, MsgPortfolioUpdate, portfolioPayload{
		ID:          "pf-live",
		CashBalance: 250,
		Positions:   []positionPayload{{Symbol: "AAPL", Quantity: 2, CurrentPrice: 100}},
	})
	waitFor(t, func() bool {
		_, ok := st.State().Portfolios.Items["pf-live"]
		return ok
	}, "portfolio push never reached the store")

	if got := st.State().Portfolios.Items["pf-live"].TotalValue; got != 450 {
		t.Fatalf("TotalValue = %v, want recomputed 450", got)
	}

	server.push(t, MsgMarketData, marketDataPayload{Symbol: "AAPL", Last: 101.5})
	waitFor(t, func() bool {
		q, ok := st.State().Market.Quotes["AAPL"]
		return ok && q.Last == 101.5
	}, "market data push never reached the store")
}

func TestUnknownAndMalformedMessagesDropped(t *testing.T) {
	server := newFeedServer(t)
	st := store.New(zerolog.Nop())

	g := New(Config{URL: server.wsURL()}, st, zerolog.Nop())
	if err := g.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer g.Disconnect()
	RegisterDefaultHandlers(g)

	server.push(t, "SOMETHING_NEW", map[string]string{"x": "y"})
	server.push(t, MsgMarketData, map[string]int{"last": 5}) // missing symbol
	server.mu.Lock()
	conn := server.conns[len(server.conns)-1]
	server.mu.Unlock()
	conn.WriteMessage(websocket.TextMessage, []byte(`{not json`))

	// A valid message after the bad ones proves the loop survived.
	server.push(t, MsgTradeExecution, tradePayload{ID: "trade-9", OrderID: "order-9", Price: 10})
	waitFor(t, func() bool {
		_, ok := st.State().Trades.Items["trade-9"]
		return ok
	}, "feed stopped processing after dropped messages")

	if len(st.State().Market.Quotes) != 0 {
		t.Fatal("invalid market data payload was applied")
	}
}

func TestDisconnectCancelsPendingReconnect(t *testing.T) {
	server := newFeedServer(t)
	dispatcher := &recordingDispatcher{}

	g := New(Config{
		URL:     server.wsURL(),
		Backoff: utils.Backoff{Initial: time.Hour, Max: time.Hour, Factor: 2},
	}, dispatcher, zerolog.Nop())
	if err := g.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// Server-side close triggers the reconnect loop, which now waits out
	// a one-hour backoff.
	server.mu.Lock()
	server.conns[0].Close()
	server.mu.Unlock()
	waitFor(t, func() bool { return g.State() == models.ConnReconnecting }, "reconnect never started")

	g.Disconnect()
	if g.State() != models.ConnDisconnected {
		t.Fatalf("state = %s, want disconnected", g.State())
	}

	// The pending attempt must be abandoned, not merely delayed.
	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt64(&server.dials); got != 1 {
		t.Fatalf("dials = %d after Disconnect, want 1", got)
	}
}

func TestReconnectRestoresSubscriptions(t *testing.T) {
	server := newFeedServer(t)
	dispatcher := &recordingDispatcher{}

	g := New(Config{
		URL:     server.wsURL(),
		Backoff: utils.Backoff{Initial: 10 * time.Millisecond, Max: 50 * time.Millisecond, Factor: 2},
	}, dispatcher, zerolog.Nop())
	if err := g.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer g.Disconnect()

	if err := g.Subscribe("orders"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	waitFor(t, func() bool {
		frame, ok := server.lastFrame()
		return ok && frame.Channel == "orders"
	}, "initial subscribe not received")

	server.mu.Lock()
	server.conns[0].Close()
	server.mu.Unlock()

	waitFor(t, func() bool { return atomic.LoadInt64(&server.dials) == 2 }, "no reconnect dial")
	waitFor(t, func() bool { return g.State() == models.ConnConnected }, "reconnect never completed")

	// The tracked subscription is replayed on the new connection.
	waitFor(t, func() bool {
		server.mu.Lock()
		defer server.mu.Unlock()
		return len(server.frames) >= 2 && server.frames[len(server.frames)-1].Channel == "orders"
	}, "subscription not replayed after reconnect")
}

func TestDisconnectDuringReconnectDial(t *testing.T) {
	var dials int64
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&dials, 1)
		if n > 1 {
			// Hold the reconnect handshake until the test releases it.
			<-release
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if n == 1 {
			conn.Close() // force an immediate reconnect
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	dispatcher := &recordingDispatcher{}
	g := New(Config{
		URL:        strings.Replace(server.URL, "http://", "ws://", 1),
		MaxRetries: 3,
		Backoff:    utils.Backoff{Initial: 5 * time.Millisecond, Max: 10 * time.Millisecond, Factor: 2},
	}, dispatcher, zerolog.Nop())
	if err := g.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// Wait until the reconnect dial is in flight, then disconnect while
	// the handshake is still stalled.
	waitFor(t, func() bool { return atomic.LoadInt64(&dials) == 2 }, "reconnect dial never started")
	time.Sleep(20 * time.Millisecond)
	g.Disconnect()

	// Letting the handshake complete must not resurrect the connection.
	close(release)
	time.Sleep(100 * time.Millisecond)

	if got := g.State(); got != models.ConnDisconnected {
		t.Fatalf("state = %s after Disconnect, want disconnected", got)
	}
	dispatcher.mu.Lock()
	var last models.ConnectionState
	for _, a := range dispatcher.actions {
		if cc, ok := a.(action.ConnectionChanged); ok {
			last = cc.State
		}
	}
	dispatcher.mu.Unlock()
	if last != models.ConnDisconnected {
		t.Fatalf("last connection transition = %s, want disconnected", last)
	}
}

func TestSendReportsExhaustedRetries(t *testing.T) {
	server := newFeedServer(t)
	dispatcher := &recordingDispatcher{}

	g := New(Config{
		URL:        server.wsURL(),
		MaxRetries: 2,
		Backoff:    utils.Backoff{Initial: 5 * time.Millisecond, Max: 10 * time.Millisecond, Factor: 2},
	}, dispatcher, zerolog.Nop())
	if err := g.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// Take the server away entirely so every reconnect attempt fails.
	// CloseClientConnections does not reach hijacked websocket conns, so
	// close the tracked server-side conns explicitly.
	server.CloseClientConnections()
	server.Close()
	server.mu.Lock()
	for _, conn := range server.conns {
		conn.Close()
	}
	server.mu.Unlock()
	waitFor(t, func() bool { return g.State() == models.ConnError }, "retries never exhausted")

	err := g.Send(controlFrame{Op: "ping"})
	if !errors.Is(err, errors.ErrRetriesExhausted) {
		t.Fatalf("Send error = %v, want ErrRetriesExhausted", err)
	}
}

func TestSendRequiresConnection(t *testing.T) {
	g := New(Config{URL: "ws://127.0.0.1:1"}, &recordingDispatcher{}, zerolog.Nop())
	if err := g.Send(controlFrame{Op: "ping"}); err == nil {
		t.Fatal("Send on disconnected gateway succeeded")
	}
}
