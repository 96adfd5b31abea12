// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package websocket

import (
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/owldoor/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // dashboards only send pings
	sendBuffer     = 64
)

var clientIDCounter atomic.Uint64

var pongFrame, _ = json.Marshal(Message{Type: MessageTypePong})

// Client is one dashboard connection.
type Client struct {
	id      uint64
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	stopped chan struct{}
	userID  string
}

// NewClient wraps conn for hub. userID is logged only.
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		id:      clientIDCounter.Add(1),
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		stopped: make(chan struct{}),
		userID:  userID,
	}
}

// ID returns the connection-ordered client ID.
func (c *Client) ID() uint64 { return c.id }

// Start runs the pumps. The client must already be registered.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		_ = c.conn.Close()
		select {
		case c.hub.unregister <- c:
		case <-c.stopped:
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Uint64("client_id", c.id).Str("user_id", c.userID).Msg("Unexpected websocket close")
			}
			return
		}

		var msg Message
		if json.Unmarshal(data, &msg) != nil || msg.Type != MessageTypePing {
			continue
		}
		select {
		case c.send <- pongFrame:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.stopped)
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("Websocket write failed")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
