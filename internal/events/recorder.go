// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/tidegate/internal/logging"
	"github.com/tomtom215/tidegate/internal/metrics"
	"github.com/tomtom215/tidegate/internal/tier"
	"github.com/tomtom215/tidegate/internal/websocket"
)

// Broadcaster pushes a typed message to live subscribers.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// Recorder consumes the attempt topic. It implements suture.Service.
type Recorder struct {
	bus *Bus
	log *AttemptLog
	hub Broadcaster
}

// NewRecorder creates a recorder. hub may be nil.
func NewRecorder(bus *Bus, log *AttemptLog, hub Broadcaster) *Recorder {
	return &Recorder{bus: bus, log: log, hub: hub}
}

// Serve subscribes and records attempts until ctx is done.
func (r *Recorder) Serve(ctx context.Context) error {
	msgs, err := r.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	logging.Info().Str("topic", TopicAttempts).Msg("attempt recorder started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return ErrBusClosed
			}
			r.handle(msg)
		}
	}
}

// String names the service in supervisor logs.
func (r *Recorder) String() string {
	return "attempt-recorder"
}

func (r *Recorder) handle(msg *message.Message) {
	defer msg.Ack()

	a, err := DecodeAttempt(msg)
	if err != nil {
		logging.Warn().Err(err).Msg("skipping malformed attempt event")
		return
	}
	r.Record(a)
}

// Record applies one attempt to metrics, the log and the live stream.
func (r *Recorder) Record(a tier.Attempt) {
	metrics.RecordTierAttempt(a.Domain, a.Tier, string(a.Outcome), a.Duration)
	if a.Winner {
		metrics.RecordTierWin(a.Domain, a.Tier)
	}
	if r.log != nil {
		r.log.Add(a)
	}
	if r.hub != nil {
		r.hub.BroadcastJSON(websocket.MessageTypeTierAttempt, a)
	}
}
