// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

// Package events carries tier attempts from the orchestrator to their
// consumers: Prometheus counters, the in-memory attempt log behind
// /debug/attempts and the live websocket stream.
//
// The orchestrator publishes onto an in-process watermill channel and
// returns immediately. A Recorder, run under the supervisor, consumes the
// topic and fans each attempt out.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tidegate/internal/logging"
	"github.com/tomtom215/tidegate/internal/metrics"
	"github.com/tomtom215/tidegate/internal/tier"
)

// TopicAttempts is the topic tier attempts are published on.
const TopicAttempts = "tidegate.tier.attempts"

// DefaultBuffer is the per-subscriber queue depth.
const DefaultBuffer = 1024

// ErrBusClosed is returned when publishing to a closed bus.
var ErrBusClosed = errors.New("event bus closed")

// Bus is an in-process pub/sub for attempts. It implements tier.Publisher.
type Bus struct {
	pubsub *gochannel.GoChannel

	mu     sync.RWMutex
	closed bool
}

// NewBus creates a bus. A nil logger discards watermill's own logs.
func NewBus(buffer int, logger watermill.LoggerAdapter) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: int64(buffer),
		}, logger),
	}
}

// PublishAttempt encodes a and publishes it. Failures are counted and
// logged, never returned: a lost event must not fail the request.
func (b *Bus) PublishAttempt(ctx context.Context, a tier.Attempt) {
	if err := b.Publish(a); err != nil {
		metrics.AttemptEventsDropped.Inc()
		logging.Ctx(ctx).Debug().Err(err).Str("tier", a.Tier).Msg("attempt event dropped")
	}
}

// Publish encodes and publishes a.
func (b *Bus) Publish(a tier.Attempt) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("domain", a.Domain)
	msg.Metadata.Set("tier", a.Tier)
	msg.Metadata.Set("outcome", string(a.Outcome))
	if a.RequestID != "" {
		msg.Metadata.Set("request_id", a.RequestID)
	}
	return b.pubsub.Publish(TopicAttempts, msg)
}

// Subscribe returns a channel of attempt messages. Each message must be
// acked. The channel closes when ctx is done or the bus closes.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, TopicAttempts)
}

// Close stops the bus and closes all subscriptions.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}

// DecodeAttempt decodes a bus message payload.
func DecodeAttempt(msg *message.Message) (tier.Attempt, error) {
	var a tier.Attempt
	if err := json.Unmarshal(msg.Payload, &a); err != nil {
		return a, fmt.Errorf("decode attempt %s: %w", msg.UUID, err)
	}
	return a, nil
}
