// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package websocket

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tidegate/internal/logging"
)

// Attempt stream timings. Subscribers that stay silent past idleTimeout
// (no pong, no ping frame) are dropped.
const (
	writeTimeout   = 10 * time.Second
	idleTimeout    = 60 * time.Second
	keepalive      = idleTimeout * 9 / 10
	maxInboundSize = 4 * 1024
	queueDepth     = 256
)

var nextClientID atomic.Uint64

// Client is one operator subscribed to the tier attempt stream. Traffic
// is one-way: the hub fills the queue and the client only answers pings.
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan Message
	log  zerolog.Logger
}

// NewClient wraps an upgraded connection. Register it with the hub, then
// call Start.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	id := nextClientID.Add(1)
	return &Client{
		id:   id,
		hub:  hub,
		conn: conn,
		send: make(chan Message, queueDepth),
		log:  logging.Component("attempt-stream").With().Uint64("client_id", id).Logger(),
	}
}

// ID orders clients within a broadcast.
func (c *Client) ID() uint64 {
	return c.id
}

// Start launches the writer and the listener.
func (c *Client) Start() {
	go c.drain()
	go c.listen()
}

// listen reads control traffic until the peer goes away, then leaves the
// hub. Anything other than a ping frame is ignored.
func (c *Client) listen() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	c.conn.SetPongHandler(func(string) error { return c.extendRead() })
	if err := c.extendRead(); err != nil {
		c.log.Error().Err(err).Msg("attempt stream read deadline")
		return
	}

	for {
		var in Message
		if err := c.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("attempt stream closed unexpectedly")
			}
			return
		}
		if in.Type != MessageTypePing {
			continue
		}
		if err := c.extendRead(); err != nil {
			return
		}
		select {
		case c.send <- Message{Type: MessageTypePong}:
		default:
			c.log.Debug().Msg("queue full, pong skipped")
		}
	}
}

// drain writes queued attempts and keepalive pings. A closed queue means
// the hub dropped the client or is shutting down.
func (c *Client) drain() {
	ping := time.NewTicker(keepalive)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, open := <-c.send:
			if !open {
				bye := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream closed")
				_ = c.write(func() error { return c.conn.WriteMessage(websocket.CloseMessage, bye) })
				return
			}
			if err := c.write(func() error { return c.conn.WriteJSON(msg) }); err != nil {
				c.log.Debug().Err(err).Str("type", msg.Type).Msg("attempt stream write failed")
				return
			}
		case <-ping.C:
			if err := c.write(func() error { return c.conn.WriteMessage(websocket.PingMessage, nil) }); err != nil {
				return
			}
		}
	}
}

// write runs one frame under the write deadline.
func (c *Client) write(frame func() error) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return frame()
}

func (c *Client) extendRead() error {
	return c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
}
