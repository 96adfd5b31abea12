// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package websocket

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/goleak"

	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/metrics"
)

//nolint:gochecknoinits // quiet logs for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

func connectionsGauge(t *testing.T) float64 {
	t.Helper()
	var m dto.Metric
	if err := metrics.WSConnections.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetGauge().GetValue()
}

func startHub(t *testing.T) (*Hub, func()) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Serve(ctx) }()
	return hub, func() {
		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v", err)
		}
	}
}

func fakeClient(hub *Hub, buffer int) *Client {
	return &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan []byte, buffer), stopped: make(chan struct{})}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcastRaw(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	hub, stop := startHub(t)
	defer stop()

	c := fakeClient(hub, 4)
	if !hub.Register(context.Background(), c) {
		t.Fatal("register failed")
	}

	hub.BroadcastRaw([]byte(`{"topic":"owldoor.pro.created","data":{"score":80}}`))
	hub.BroadcastRaw([]byte(`not json`))
	hub.BroadcastJSON(MessageTypeStats, map[string]int{"pros": 3})

	var got []Message
	for i := 0; i < 2; i++ {
		select {
		case frame := <-c.send:
			var m Message
			if err := json.Unmarshal(frame, &m); err != nil {
				t.Fatal(err)
			}
			got = append(got, m)
		case <-time.After(2 * time.Second):
			t.Fatalf("frame %d not delivered", i)
		}
	}
	if got[0].Type != MessageTypeEvent || got[1].Type != MessageTypeStats {
		t.Fatalf("types = %q, %q", got[0].Type, got[1].Type)
	}
	if data := got[0].Data.(map[string]interface{}); data["topic"] != "owldoor.pro.created" {
		t.Errorf("event data = %v", data)
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub, stop := startHub(t)
	defer stop()

	fast := fakeClient(hub, 8)
	slow := fakeClient(hub, 0)
	hub.Register(context.Background(), fast)
	hub.Register(context.Background(), slow)
	waitFor(t, func() bool { return hub.ClientCount() == 2 })

	hub.BroadcastJSON(MessageTypeStats, nil)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	if _, ok := <-slow.send; ok {
		t.Error("slow client's channel should be closed")
	}
	if len(fast.send) != 1 {
		t.Errorf("fast client got %d frames", len(fast.send))
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	base := connectionsGauge(t)
	hub, stop := startHub(t)

	clients := []*Client{fakeClient(hub, 1), fakeClient(hub, 1)}
	for _, c := range clients {
		hub.Register(context.Background(), c)
	}
	waitFor(t, func() bool { return hub.ClientCount() == 2 })
	if got := connectionsGauge(t); got != base+2 {
		t.Errorf("gauge = %v, want %v", got, base+2)
	}

	stop()
	for _, c := range clients {
		if _, ok := <-c.send; ok {
			t.Error("send channel left open")
		}
	}
	if got := connectionsGauge(t); got != base {
		t.Errorf("gauge after shutdown = %v, want %v", got, base)
	}
}

func TestRegisterWithoutHub(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if hub.Register(ctx, fakeClient(hub, 1)) {
		t.Error("register should give up when the hub is not running")
	}
}

func TestClientRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	hub, stop := startHub(t)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(hub, conn, "admin-1")
		if hub.Register(r.Context(), c) {
			c.Start()
		}
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var pong Message
	if err := conn.ReadJSON(&pong); err != nil || pong.Type != MessageTypePong {
		t.Fatalf("pong = %+v, err = %v", pong, err)
	}

	hub.BroadcastRaw([]byte(`{"topic":"owldoor.match.created"}`))
	var event Message
	if err := conn.ReadJSON(&event); err != nil || event.Type != MessageTypeEvent {
		t.Fatalf("event = %+v, err = %v", event, err)
	}

	_ = conn.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
	stop()
}
