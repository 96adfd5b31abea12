// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/metrics"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types.
const (
	MessageTypeEvent = "event"
	MessageTypeStats = "stats"
	MessageTypePing  = "ping"
	MessageTypePong  = "pong"
)

const broadcastBuffer = 256

// Message is the frame sent to dashboards.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub tracks connected dashboards and fans frames out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a Hub. Call Serve to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Serve runs the hub until ctx is canceled, then closes every client.
//
// Lifecycle events are drained before broadcasts so a frame never reaches a
// client that has already left.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case c := <-h.register:
			h.add(c)
			continue
		case c := <-h.unregister:
			h.remove(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case frame := <-h.broadcast:
			h.fanOut(frame)
		}
	}
}

func (h *Hub) String() string { return "websocket-hub" }

// Register adds c once the hub picks it up. It returns false if ctx ends
// first, for example because the hub is not running.
func (h *Hub) Register(ctx context.Context, c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Inc()
	logging.Info().Int("total_clients", n).Uint64("client_id", c.id).Msg("Dashboard connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		metrics.WSConnections.Dec()
		logging.Info().Int("total_clients", n).Uint64("client_id", c.id).Msg("Dashboard disconnected")
	}
}

// sorted returns clients in connection order. Must be called with mu held.
func (h *Hub) sorted() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	return clients
}

// fanOut delivers frame to every client. A client whose buffer is full is
// dropped.
func (h *Hub) fanOut(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*Client
	for _, c := range h.sorted() {
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		close(c.send)
		delete(h.clients, c)
		metrics.WSConnections.Dec()
		logging.Warn().Uint64("client_id", c.id).Msg("Dropping slow dashboard client")
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	n := len(h.clients)
	for _, c := range h.sorted() {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	metrics.WSConnections.Sub(float64(n))

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(reason)).
		Int("clients_closed", n).
		Msg("Websocket hub stopped")
}

// BroadcastRaw forwards an already-encoded domain event envelope.
func (h *Hub) BroadcastRaw(data []byte) {
	if !json.Valid(data) {
		logging.Warn().Msg("Ignoring invalid JSON event for broadcast")
		return
	}
	h.BroadcastJSON(MessageTypeEvent, json.RawMessage(data))
}

// BroadcastJSON encodes data as a frame of the given type and queues it.
// Frames are dropped when the queue is full.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	frame, err := json.Marshal(Message{Type: messageType, Data: data})
	if err != nil {
		logging.Warn().Err(err).Str("message_type", messageType).Msg("Failed to encode broadcast")
		return
	}
	select {
	case h.broadcast <- frame:
	default:
		logging.Warn().Str("message_type", messageType).Msg("Broadcast channel full, dropping message")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
