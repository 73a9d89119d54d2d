// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

/*
Package websocket streams tier attempts to operators watching the gateway.

A Hub fans messages out to connected Clients. Each Client owns two
goroutines: readPump answers application-level pings and detects closed
connections; writePump drains the client's send queue and keeps the
connection alive with protocol pings.

	hub := websocket.NewHub()
	go func() { _ = hub.RunWithContext(ctx) }()

	conn, _ := upgrader.Upgrade(w, r, nil)
	client := websocket.NewClient(hub, conn)
	hub.Register <- client
	client.Start()

	hub.BroadcastJSON(websocket.MessageTypeTierAttempt, attempt)

Broadcasts never block. A client whose queue is full is dropped rather
than allowed to stall the hub.

Message types:

  - tier_attempt: one tier invocation (domain, tier, outcome, duration)
  - ping / pong: client keepalive
*/
package websocket
