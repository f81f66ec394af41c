// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package websocket

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/videoref/internal/logging"
	"github.com/tomtom215/videoref/internal/metrics"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod is the ping interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound frames at 512KB.
	maxMessageSize = 512 * 1024

	// sendQueueSize is the per-client outbound frame buffer.
	sendQueueSize = 256
)

// clientIDCounter hands out monotonically increasing client ids.
var clientIDCounter atomic.Uint64

// Client is one operator panel connection. Outbound frames are
// pre-marshaled; subscriptions is guarded by the hub mutex.
type Client struct {
	id            uint64
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	subscriptions map[string]bool
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:            clientIDCounter.Add(1),
		hub:           h,
		conn:          conn,
		send:          make(chan []byte, sendQueueSize),
		subscriptions: make(map[string]bool),
	}
}

// start launches the read and write pumps.
func (c *Client) start() {
	go c.writePump()
	go c.readPump()
}

// trySend enqueues a frame without blocking. The hub mutex must be held
// so the queue cannot be closed mid-send.
func (c *Client) trySend(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// readPump reads frames from the connection and dispatches them to the
// hub until the connection errors or closes.
func (c *Client) readPump() {
	defer func() {
		c.hub.requestUnregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Uint64("client_id", c.id).Msg("websocket read error")
			}
			return
		}
		metrics.WSMessagesReceived.Inc()
		c.hub.handleRequest(c, payload)
	}
}

// writePump writes queued frames and keepalive pings until the send
// queue closes or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("websocket write error")
				return
			}
			metrics.WSMessagesSent.Inc()
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
