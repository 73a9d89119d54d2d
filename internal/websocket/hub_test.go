// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package websocket

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/tomtom215/tidegate/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

// startHub runs a hub until the test ends.
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func testClient(hub *Hub, queue int) *Client {
	return &Client{id: nextClientID.Add(1), hub: hub, send: make(chan Message, queue)}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 2s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send queue closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message within 2s")
	}
	return Message{}
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	t.Parallel()

	hub := startHub(t)
	a, b := testClient(hub, 8), testClient(hub, 8)
	hub.Register <- a
	hub.Register <- b
	waitFor(t, func() bool { return hub.GetClientCount() == 2 })

	hub.BroadcastJSON(MessageTypeTierAttempt, map[string]string{"tier": "copernicus-stac"})

	for _, c := range []*Client{a, b} {
		msg := receive(t, c)
		if msg.Type != MessageTypeTierAttempt {
			t.Errorf("Type = %q, want %q", msg.Type, MessageTypeTierAttempt)
		}
	}
}

func TestHub_UnregisterClosesQueue(t *testing.T) {
	t.Parallel()

	hub := startHub(t)
	c := testClient(hub, 1)
	hub.Register <- c
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	hub.Unregister <- c
	waitFor(t, func() bool { return hub.GetClientCount() == 0 })

	if _, ok := <-c.send; ok {
		t.Error("send queue still open after unregister")
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	t.Parallel()

	hub := startHub(t)
	slow := testClient(hub, 1)
	fast := testClient(hub, 8)
	hub.Register <- slow
	hub.Register <- fast
	waitFor(t, func() bool { return hub.GetClientCount() == 2 })

	hub.BroadcastJSON(MessageTypeTierAttempt, 1)
	hub.BroadcastJSON(MessageTypeTierAttempt, 2)

	waitFor(t, func() bool { return hub.GetClientCount() == 1 })
	receive(t, fast)
	receive(t, fast)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.Serve(ctx) }()

	c := testClient(hub, 1)
	hub.Register <- c
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	if _, ok := <-c.send; ok {
		t.Error("client queue still open after shutdown")
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("GetClientCount() = %d, want 0", hub.GetClientCount())
	}
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	t.Parallel()

	hub := NewHub() // not running
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.BroadcastJSON(MessageTypeTierAttempt, i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("BroadcastJSON blocked on a saturated hub")
	}
}

func TestMarshalMessage(t *testing.T) {
	t.Parallel()

	b, err := MarshalMessage(Message{Type: MessageTypePong})
	if err != nil {
		t.Fatalf("MarshalMessage() error = %v", err)
	}
	if string(b) != `{"type":"pong","data":null}` {
		t.Errorf("MarshalMessage() = %s", b)
	}
	if hub := NewHub(); hub.String() != "websocket-hub" {
		t.Errorf("String() = %q", hub.String())
	}
}
