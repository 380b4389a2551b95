package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/mcp-training/seadrive/game/engine"
	"github.com/wricardo/mcp-training/seadrive/game/service"
)

var _ service.Notifier = (*Hub)(nil)

func newTestClient(hub *Hub, sessionID string, buffer int) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, buffer),
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	require.NotNil(t, hub)
	assert.NotNil(t, hub.sessions)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.Nil(t, hub.onInput)
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "test-session", 256)

	hub.registerClient(client)

	require.Contains(t, hub.sessions, "test-session")
	assert.True(t, hub.sessions["test-session"][client])
	assert.Len(t, hub.sessions["test-session"], 1)
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "test-session", 256)

	hub.registerClient(client)
	hub.unregisterClient(client)

	assert.NotContains(t, hub.sessions, "test-session")

	_, ok := <-client.send
	assert.False(t, ok, "send channel should be closed")

	// A second unregister is a no-op
	assert.NotPanics(t, func() { hub.unregisterClient(client) })
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := NewHub()
	client1 := newTestClient(hub, "session-1", 256)
	client2 := newTestClient(hub, "session-1", 256)
	client3 := newTestClient(hub, "session-2", 256)

	hub.registerClient(client1)
	hub.registerClient(client2)
	hub.registerClient(client3)

	assert.Len(t, hub.sessions["session-1"], 2)
	assert.Len(t, hub.sessions["session-2"], 1)

	hub.unregisterClient(client1)
	assert.Len(t, hub.sessions["session-1"], 1)
	assert.True(t, hub.sessions["session-1"][client2])
}

func TestHubBroadcastToSession(t *testing.T) {
	hub := NewHub()
	client1 := newTestClient(hub, "session-1", 8)
	client2 := newTestClient(hub, "session-2", 8)
	hub.registerClient(client1)
	hub.registerClient(client2)

	update := service.TickUpdate{Status: &service.VehicleStatus{Heading: "N"}}
	hub.BroadcastToSession("session-1", "tick", update)

	require.Len(t, hub.broadcast, 1)
	hub.broadcastMessage(<-hub.broadcast)

	require.Len(t, client1.send, 1)
	assert.Empty(t, client2.send)

	var msg struct {
		SessionID string             `json:"session_id"`
		Event     string             `json:"event"`
		Data      service.TickUpdate `json:"data"`
	}
	require.NoError(t, json.Unmarshal(<-client1.send, &msg))
	assert.Equal(t, "session-1", msg.SessionID)
	assert.Equal(t, "tick", msg.Event)
	require.NotNil(t, msg.Data.Status)
	assert.Equal(t, "N", msg.Data.Status.Heading)
}

func TestHubBroadcastNeverBlocks(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+10; i++ {
			hub.BroadcastToSession("busy", "tick", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("BroadcastToSession blocked without a running hub")
	}
	assert.Len(t, hub.broadcast, broadcastBuffer)
}

func TestHubBroadcastUnmarshalable(t *testing.T) {
	hub := NewHub()
	hub.BroadcastToSession("s", "tick", make(chan int))
	assert.Empty(t, hub.broadcast)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := newTestClient(hub, "s", 1)
	hub.registerClient(slow)

	hub.broadcastMessage(&outbound{sessionID: "s", data: []byte(`{}`)})
	hub.broadcastMessage(&outbound{sessionID: "s", data: []byte(`{}`)})

	assert.NotContains(t, hub.sessions, "s")
}

func TestHandleMessage(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []engine.Input
	)
	hub := NewHub(WithInputHandler(func(_ context.Context, sessionID string, in engine.Input) error {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "abc1", sessionID)
		calls = append(calls, in)
		return nil
	}))
	client := newTestClient(hub, "abc1", 1)

	client.handleMessage([]byte(`{"type":"input","steer":-1,"throttle":1}`))
	client.handleMessage([]byte(`{"type":"ping"}`))
	client.handleMessage([]byte(`not json`))

	require.Len(t, calls, 1)
	assert.Equal(t, engine.Input{Steer: -1, Throttle: 1}, calls[0])
}

func TestServeWSEndToEnd(t *testing.T) {
	inputs := make(chan engine.Input, 1)
	hub := NewHub(WithInputHandler(func(_ context.Context, _ string, in engine.Input) error {
		inputs <- in
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("sessionId"))
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?sessionId=abc1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "input", Steer: 1, Throttle: 1}))
	select {
	case in := <-inputs:
		assert.Equal(t, engine.Input{Steer: 1, Throttle: 1}, in)
	case <-time.After(2 * time.Second):
		t.Fatal("input was not delivered")
	}

	// Registration happens asynchronously; keep broadcasting until one lands
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	received := make(chan Message, 1)
	go func() {
		var msg Message
		if err := conn.ReadJSON(&msg); err == nil {
			received <- msg
		}
		close(received)
	}()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-received:
			require.True(t, ok, "no message received")
			assert.Equal(t, "abc1", msg.SessionID)
			assert.Equal(t, "tick", msg.Event)
			return
		case <-ticker.C:
			hub.BroadcastToSession("abc1", "tick", map[string]int{"tick": 1})
		}
	}
}

func TestServeWSAfterShutdown(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, "late")
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
