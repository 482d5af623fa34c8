package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/fxterm/commentary"
	"github.com/rustyeddy/fxterm/feed"
	"github.com/rustyeddy/fxterm/journal"
	"github.com/rustyeddy/fxterm/market"
	"github.com/rustyeddy/fxterm/sim"
)

func TestRejectionCode(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{sim.ErrInsufficientMargin, "INSUFFICIENT_MARGIN"},
		{sim.ErrInvalidStopLoss, "INVALID_STOP_LOSS"},
		{sim.ErrInvalidTakeProfit, "INVALID_TAKE_PROFIT"},
		{sim.ErrInvalidLots, "INVALID_LOTS"},
		{sim.ErrNoPrice, "NO_PRICE"},
		{sim.ErrPositionNotFound, "NOT_FOUND"},
		{errors.New("anything else"), "REJECTED"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, rejectionCode(tc.err), tc.err.Error())
	}
}

func TestTickEventPayload(t *testing.T) {
	when := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	e := tickEvent(market.Tick{Time: when, Bid: 1.08500, Ask: 1.08515}, market.TrendUp)

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var got struct {
		Type    string `json:"type"`
		Payload struct {
			Bid   float64 `json:"bid"`
			Ask   float64 `json:"ask"`
			Trend string  `json:"trend"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, EventTick, got.Type)
	assert.Equal(t, 1.08500, got.Payload.Bid)
	assert.Equal(t, 1.08515, got.Payload.Ask)
	assert.Equal(t, "UP", got.Payload.Trend)
}

func TestClosedEventPayload(t *testing.T) {
	sl := 1.08000
	closure := sim.Closure{
		Position: sim.Position{
			ID:        "pos-1",
			Side:      sim.Buy,
			Lots:      0.5,
			OpenPrice: 1.08515,
			StopLoss:  &sl,
		},
		Price:    1.08000,
		Realized: -257.5,
		Reason:   sim.CloseStopLoss,
	}

	data, err := json.Marshal(closedEvent(closure))
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"type":"position_closed"`)
	assert.Contains(t, s, `"reason":"StopLoss"`)
	assert.Contains(t, s, `"realized_pl":-257.5`)
}

// wsTestRig stands up a full server over httptest and returns a connected
// dialer-side conn plus a decode helper.
type wsTestRig struct {
	srv    *Server
	engine *sim.Engine
	conn   *websocket.Conn
	cancel context.CancelFunc
}

func newWSTestRig(t *testing.T) *wsTestRig {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError}))
	engine := sim.NewEngine(sim.Account{ID: "test", Currency: "USD", Balance: 10_000}, journal.NewMemory())
	history := market.NewHistory(market.DefaultHistorySize)
	f := feed.New(feed.WithStartPrice(1.0850))

	srv := New(Config{Addr: ":0", DepositStep: 1000}, engine, f, history, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go srv.hub.Run(ctx)

	tick := market.Tick{Time: time.Now(), Bid: 1.08500, Ask: 1.08515}
	history.Push(tick)
	require.NoError(t, engine.ApplyTick(tick))

	httpSrv := httptest.NewServer(http.HandlerFunc(srv.hub.handleWS))
	t.Cleanup(httpSrv.Close)

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	t.Cleanup(cancel)

	return &wsTestRig{srv: srv, engine: engine, conn: conn, cancel: cancel}
}

// readUntil drains events until one of the wanted type arrives.
func (r *wsTestRig) readUntil(t *testing.T, eventType string) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		r.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := r.conn.ReadMessage()
		require.NoError(t, err)

		var e struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(data, &e))
		if e.Type == eventType {
			return e.Payload
		}
	}
	t.Fatalf("no %s event received", eventType)
	return nil
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestConnectSeedsState(t *testing.T) {
	rig := newWSTestRig(t)

	payload := rig.readUntil(t, EventAccount)

	var acct AccountPayload
	require.NoError(t, json.Unmarshal(payload, &acct))
	assert.Equal(t, 10_000.0, acct.Balance)
	assert.Equal(t, 0.0, acct.UsedMargin)
}

func TestOrderOverWebsocket(t *testing.T) {
	rig := newWSTestRig(t)
	rig.readUntil(t, EventPositions) // connection seed complete

	cmd := Command{Action: "order", Side: "BUY", Lots: 0.5}
	require.NoError(t, rig.conn.WriteJSON(cmd))

	payload := rig.readUntil(t, EventPositionOpened)

	var pos PositionPayload
	require.NoError(t, json.Unmarshal(payload, &pos))
	assert.Equal(t, "BUY", pos.Side)
	assert.Equal(t, 0.5, pos.Lots)
	assert.Equal(t, 1.08515, pos.OpenPrice)
	assert.NotEmpty(t, pos.ID)

	require.Len(t, rig.engine.Positions(), 1)
}

func TestInvalidOrderReturnsErrorEvent(t *testing.T) {
	rig := newWSTestRig(t)
	rig.readUntil(t, EventPositions)

	sl := 1.09000 // above ask on a buy
	cmd := Command{Action: "order", Side: "BUY", Lots: 0.5, StopLoss: &sl}
	require.NoError(t, rig.conn.WriteJSON(cmd))

	payload := rig.readUntil(t, EventError)

	var ep ErrorPayload
	require.NoError(t, json.Unmarshal(payload, &ep))
	assert.Equal(t, "INVALID_STOP_LOSS", ep.Code)
	assert.Empty(t, rig.engine.Positions())
}

func TestCloseOverWebsocket(t *testing.T) {
	rig := newWSTestRig(t)
	rig.readUntil(t, EventPositions)

	p, err := rig.engine.PlaceOrder(sim.Buy, 0.5, nil, nil)
	require.NoError(t, err)

	cmd := Command{Action: "close", PositionID: p.ID}
	require.NoError(t, rig.conn.WriteJSON(cmd))

	payload := rig.readUntil(t, EventPositionClosed)

	var cp ClosedPayload
	require.NoError(t, json.Unmarshal(payload, &cp))
	assert.Equal(t, p.ID, cp.ID)
	assert.Equal(t, "Manual", cp.Reason)
	assert.Empty(t, rig.engine.Positions())
}

func TestDepositOverWebsocket(t *testing.T) {
	rig := newWSTestRig(t)
	rig.readUntil(t, EventPositions)

	require.NoError(t, rig.conn.WriteJSON(Command{Action: "deposit"}))

	payload := rig.readUntil(t, EventAccount)
	var acct AccountPayload
	require.NoError(t, json.Unmarshal(payload, &acct))
	assert.Equal(t, 11_000.0, acct.Balance) // default step applied
}

func TestUnknownActionRejected(t *testing.T) {
	rig := newWSTestRig(t)
	rig.readUntil(t, EventPositions)

	require.NoError(t, rig.conn.WriteJSON(Command{Action: "levitate"}))

	payload := rig.readUntil(t, EventError)
	var ep ErrorPayload
	require.NoError(t, json.Unmarshal(payload, &ep))
	assert.Equal(t, "BAD_COMMAND", ep.Code)
}

func TestSizingOverWebsocket(t *testing.T) {
	rig := newWSTestRig(t)
	rig.readUntil(t, EventPositions)

	// 1% of $10,000 over a 20-pip stop below the 1.08515 ask.
	sl := 1.08315
	cmd := Command{Action: "size", Side: "BUY", RiskPct: 0.01, StopLoss: &sl}
	require.NoError(t, rig.conn.WriteJSON(cmd))

	payload := rig.readUntil(t, EventSizing)
	var sp SizingPayload
	require.NoError(t, json.Unmarshal(payload, &sp))
	assert.InDelta(t, 0.5, sp.Lots, 1e-9)
	assert.InDelta(t, 20.0, sp.StopPips, 1e-9)
	assert.InDelta(t, 100.0, sp.RiskAmount, 1e-9)
}

func TestSizingWithoutStopRejected(t *testing.T) {
	rig := newWSTestRig(t)
	rig.readUntil(t, EventPositions)

	require.NoError(t, rig.conn.WriteJSON(Command{Action: "size", Side: "BUY", RiskPct: 0.01}))

	payload := rig.readUntil(t, EventError)
	var ep ErrorPayload
	require.NoError(t, json.Unmarshal(payload, &ep))
	assert.Equal(t, "REJECTED", ep.Code)
}

func TestSendEventAfterClientGone(t *testing.T) {
	c := &client{send: make(chan []byte, 1)}
	c.closeSend()

	// Async senders, like the commentary handler, may fire long after the
	// connection went away. The event is dropped, never a panic.
	assert.NotPanics(t, func() {
		c.sendEvent(errorEvent("LATE", "client already gone"))
	})
	assert.NotPanics(t, c.closeSend)
}

func TestDelayedSendAfterDisconnect(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError}))

	clients := make(chan *client, 1)
	h := newHub(logger, nil, func(c *client) { clients <- c })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	httpSrv := httptest.NewServer(http.HandlerFunc(h.handleWS))
	defer httpSrv.Close()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	c := <-clients
	conn.Close()
	require.Eventually(t, func() bool { return h.clientCount() == 0 },
		5*time.Second, 10*time.Millisecond)

	assert.NotPanics(t, func() {
		c.sendEvent(commentaryEvent(commentary.Fallback()))
	})
}

func TestBroadcastAfterShutdown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError}))
	h := newHub(logger, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(runDone)
	}()
	cancel()
	<-runDone

	// More events than the broadcast buffer holds; none may block even
	// though nothing drains the channel anymore.
	finished := make(chan struct{})
	go func() {
		for i := 0; i < 2*cap(h.broadcast); i++ {
			h.Broadcast(errorEvent("SHUTDOWN", "late event"))
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("Broadcast blocked after hub shutdown")
	}
}

func TestCommentaryFallsBackWithoutAnalyst(t *testing.T) {
	rig := newWSTestRig(t)
	rig.readUntil(t, EventPositions)

	require.NoError(t, rig.conn.WriteJSON(Command{Action: "commentary"}))

	payload := rig.readUntil(t, EventCommentary)
	var cp CommentaryPayload
	require.NoError(t, json.Unmarshal(payload, &cp))
	assert.Equal(t, commentary.Fallback().Headline, cp.Headline)
	assert.Equal(t, commentary.Neutral, cp.Sentiment)
}
