// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/tidegate/internal/metrics"
	"github.com/tomtom215/tidegate/internal/tier"
	"github.com/tomtom215/tidegate/internal/websocket"
)

type fakeHub struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeHub) BroadcastJSON(messageType string, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, messageType)
}

func (f *fakeHub) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func attempt(domain, name string, outcome tier.Outcome, winner bool) tier.Attempt {
	return tier.Attempt{
		Domain:   domain,
		Tier:     name,
		Kind:     tier.KindLivePrimary,
		Outcome:  outcome,
		Duration: 25 * time.Millisecond,
		Winner:   winner,
		At:       time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC),
	}
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

func TestBus_RoundTrip(t *testing.T) {
	t.Parallel()

	bus := NewBus(8, nil)
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	want := attempt("ocean", "copernicus-stac", tier.OutcomeAuthFailure, false)
	want.RequestID = "req-1"
	want.Status = 401
	bus.PublishAttempt(ctx, want)

	select {
	case msg := <-msgs:
		defer msg.Ack()
		got, err := DecodeAttempt(msg)
		if err != nil {
			t.Fatalf("DecodeAttempt() error = %v", err)
		}
		if !got.At.Equal(want.At) {
			t.Errorf("At = %v, want %v", got.At, want.At)
		}
		got.At = want.At
		if got != want {
			t.Errorf("DecodeAttempt() = %+v, want %+v", got, want)
		}
		if msg.Metadata.Get("outcome") != string(tier.OutcomeAuthFailure) {
			t.Errorf("outcome metadata = %q", msg.Metadata.Get("outcome"))
		}
		if msg.Metadata.Get("request_id") != "req-1" {
			t.Errorf("request_id metadata = %q", msg.Metadata.Get("request_id"))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message within 2s")
	}
}

func TestBus_PublishAfterClose(t *testing.T) {
	t.Parallel()

	bus := NewBus(0, nil)
	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := bus.Publish(attempt("ocean", "synthetic", tier.OutcomeSuccess, true)); !errors.Is(err, ErrBusClosed) {
		t.Errorf("Publish() error = %v, want ErrBusClosed", err)
	}

	before := testutil.ToFloat64(metrics.AttemptEventsDropped)
	bus.PublishAttempt(context.Background(), attempt("ocean", "synthetic", tier.OutcomeSuccess, true))
	if got := testutil.ToFloat64(metrics.AttemptEventsDropped); got < before+1 {
		t.Errorf("AttemptEventsDropped = %v, want at least %v", got, before+1)
	}
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	t.Parallel()

	bus := NewBus(1, nil)
	t.Cleanup(func() { _ = bus.Close() })

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.PublishAttempt(context.Background(), attempt("kpi", "gfw-report", tier.OutcomeSuccess, true))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PublishAttempt blocked without subscribers")
	}
}

func TestRecorder_Serve(t *testing.T) {
	t.Parallel()

	bus := NewBus(16, nil)
	t.Cleanup(func() { _ = bus.Close() })
	log := NewAttemptLog(200)
	hub := &fakeHub{}
	rec := NewRecorder(bus, log, hub)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- rec.Serve(ctx) }()

	// Subscribing is asynchronous; publish until the recorder sees one.
	waitFor(t, func() bool {
		bus.PublishAttempt(ctx, attempt("recorder-test", "gfw-direct", tier.OutcomeUpstreamUnavailable, false))
		return log.Total() > 0
	})
	bus.PublishAttempt(ctx, attempt("recorder-test", "gfw-proxy", tier.OutcomeSuccess, true))
	waitFor(t, func() bool {
		for _, a := range log.Recent(0) {
			if a.Tier == "gfw-proxy" {
				return true
			}
		}
		return false
	})

	if hub.count() == 0 {
		t.Error("no attempts broadcast")
	}
	if got := testutil.ToFloat64(metrics.TierWins.WithLabelValues("recorder-test", "gfw-proxy")); got != 1 {
		t.Errorf("TierWins = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.TierAttempts.WithLabelValues("recorder-test", "gfw-direct", "upstream_unavailable")); got < 1 {
		t.Errorf("TierAttempts = %v, want at least 1", got)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not stop")
	}
}

func TestRecorder_SkipsMalformed(t *testing.T) {
	t.Parallel()

	log := NewAttemptLog(4)
	rec := NewRecorder(nil, log, nil)
	rec.handle(message.NewMessage("bad", []byte("{not json")))
	if log.Total() != 0 {
		t.Errorf("Total() = %d, want 0", log.Total())
	}
	if rec.String() != "attempt-recorder" {
		t.Errorf("String() = %q", rec.String())
	}
}

func TestRecorder_BroadcastType(t *testing.T) {
	t.Parallel()

	hub := &fakeHub{}
	NewRecorder(nil, nil, hub).Record(attempt("broadcast-test", "synthetic", tier.OutcomeSuccess, true))
	if hub.count() != 1 || hub.msgs[0] != websocket.MessageTypeTierAttempt {
		t.Errorf("broadcasts = %v", hub.msgs)
	}
}

func TestAttemptLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		size      int
		add       int
		n         int
		wantTiers []string
	}{
		{"empty", 3, 0, 0, []string{}},
		{"partial newest first", 3, 2, 0, []string{"t1", "t0"}},
		{"limit", 3, 2, 1, []string{"t1"}},
		{"wraps", 3, 5, 0, []string{"t4", "t3", "t2"}},
		{"limit above size", 3, 5, 10, []string{"t4", "t3", "t2"}},
		{"exactly full", 3, 3, 0, []string{"t2", "t1", "t0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			log := NewAttemptLog(tt.size)
			for i := 0; i < tt.add; i++ {
				log.Add(tier.Attempt{Tier: "t" + string(rune('0'+i))})
			}
			got := log.Recent(tt.n)
			if len(got) != len(tt.wantTiers) {
				t.Fatalf("Recent(%d) returned %d, want %d", tt.n, len(got), len(tt.wantTiers))
			}
			for i, w := range tt.wantTiers {
				if got[i].Tier != w {
					t.Errorf("Recent(%d)[%d] = %q, want %q", tt.n, i, got[i].Tier, w)
				}
			}
			if log.Total() != uint64(tt.add) {
				t.Errorf("Total() = %d, want %d", log.Total(), tt.add)
			}
		})
	}
}
