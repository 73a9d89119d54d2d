// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package tier

import (
	"context"
	"fmt"
	"sort"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/tidegate/internal/logging"
	"github.com/tomtom215/tidegate/internal/metrics"
)

// Mode selects how a ladder is walked.
type Mode string

const (
	// ModeSequential invokes one tier at a time in rank order.
	ModeSequential Mode = "sequential"
	// ModeRace starts every live tier at once and keeps the best-ranked
	// success.
	ModeRace Mode = "race"
)

// DefaultTimeout bounds a tier call when neither the tier nor the
// orchestrator configures one.
const DefaultTimeout = 8 * time.Second

// Config configures an Orchestrator.
type Config struct {
	Mode    Mode
	Timeout time.Duration
	Breaker BreakerSettings
}

// Orchestrator holds the cross-request state of all ladders: breaker state
// and the attempt publisher. It is safe for concurrent use.
type Orchestrator struct {
	mode      Mode
	timeout   time.Duration
	breakers  *breakerSet
	publisher Publisher
	now       func() time.Time
}

// New creates an orchestrator. A nil publisher discards attempts.
func New(cfg Config, publisher Publisher) *Orchestrator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Mode != ModeRace {
		cfg.Mode = ModeSequential
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Orchestrator{
		mode:      cfg.Mode,
		timeout:   cfg.Timeout,
		breakers:  newBreakerSet(cfg.Breaker),
		publisher: publisher,
		now:       time.Now,
	}
}

// Mode returns the configured walk mode.
func (o *Orchestrator) Mode() Mode { return o.mode }

// BreakerStates reports every breaker's state keyed by "domain/tier".
func (o *Orchestrator) BreakerStates() map[string]string {
	return o.breakers.States()
}

// attemptResult is the raw outcome of one tier invocation.
type attemptResult[T any] struct {
	index    int
	payload  T
	err      error
	outcome  Outcome
	duration time.Duration
}

// Resolve walks tiers for req and returns the first usable payload.
//
// In sequential mode tiers run strictly by Rank and a success stops the
// walk; later tiers are never invoked. In race mode all live tiers start
// together and the winner is the best-ranked success whose higher-priority
// tiers all failed. Synthetic tiers only run once every other tier has
// failed. Cancelling ctx aborts in-flight calls and stops the walk.
func Resolve[Req, T any](ctx context.Context, o *Orchestrator, domain string, req Req, tiers []SourceTier[Req, T]) Result[T] {
	ordered := make([]SourceTier[Req, T], len(tiers))
	copy(ordered, tiers)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Rank < ordered[j].Rank })

	if o.mode == ModeRace {
		return resolveRace(ctx, o, domain, req, ordered)
	}
	return resolveSequential(ctx, o, domain, req, ordered)
}

func resolveSequential[Req, T any](ctx context.Context, o *Orchestrator, domain string, req Req, tiers []SourceTier[Req, T]) Result[T] {
	var res Result[T]
	for i := range tiers {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}

		t := tiers[i]
		ar := invoke(ctx, o, domain, i, t, req)
		if ar.outcome == OutcomeSuccess {
			publish(ctx, o, domain, t, ar, true)
			res.Payload = ar.payload
			res.Tier = t.Name
			res.TierKind = t.Kind
			return res
		}

		publish(ctx, o, domain, t, ar, false)
		res.Diagnostics = append(res.Diagnostics, diagnose(t, ar))

		if ctx.Err() != nil {
			res.Err = ctx.Err()
			return res
		}
	}
	res.Err = ErrAllTiersFailed
	return res
}

func resolveRace[Req, T any](ctx context.Context, o *Orchestrator, domain string, req Req, tiers []SourceTier[Req, T]) Result[T] {
	var live, fallback []SourceTier[Req, T]
	for _, t := range tiers {
		if t.Kind == KindSynthetic {
			fallback = append(fallback, t)
		} else {
			live = append(live, t)
		}
	}

	var res Result[T]
	if len(live) > 0 {
		raceCtx, cancel := context.WithCancel(ctx)
		results := make(chan attemptResult[T], len(live))
		for i := range live {
			go func(i int) {
				results <- invoke(raceCtx, o, domain, i, live[i], req)
			}(i)
		}

		finished := make([]*attemptResult[T], len(live))
		winner := -1
		for received := 0; received < len(live) && winner < 0; {
			select {
			case <-ctx.Done():
				cancel()
				res.Err = ctx.Err()
				return res
			case ar := <-results:
				received++
				arCopy := ar
				finished[ar.index] = &arCopy
				winner = raceWinner(finished)
			}
		}
		cancel()

		for i := range live {
			ar := finished[i]
			switch {
			case i == winner:
				publish(ctx, o, domain, live[i], *ar, true)
				res.Payload = ar.payload
				res.Tier = live[i].Name
				res.TierKind = live[i].Kind
			case ar == nil:
				// Still in flight; its goroutine exits on the cancelled context.
				res.Diagnostics = append(res.Diagnostics, Diagnostic{
					Tier:     live[i].Name,
					TierKind: live[i].Kind,
					Kind:     OutcomeCancelled,
					Detail:   fmt.Sprintf("superseded by %s", live[winner].Name),
				})
			case ar.outcome == OutcomeSuccess:
				publish(ctx, o, domain, live[i], *ar, false)
				res.Diagnostics = append(res.Diagnostics, Diagnostic{
					Tier:     live[i].Name,
					TierKind: live[i].Kind,
					Kind:     OutcomeCancelled,
					Detail:   fmt.Sprintf("superseded by %s", live[winner].Name),
					Duration: ar.duration,
				})
			default:
				publish(ctx, o, domain, live[i], *ar, false)
				res.Diagnostics = append(res.Diagnostics, diagnose(live[i], *ar))
			}
		}
		if winner >= 0 {
			return res
		}
	}

	rest := resolveSequential(ctx, o, domain, req, fallback)
	rest.Diagnostics = append(res.Diagnostics, rest.Diagnostics...)
	return rest
}

// raceWinner returns the index of the first success whose predecessors all
// finished with a failure, or -1 while that is not yet known.
func raceWinner[T any](finished []*attemptResult[T]) int {
	for i, ar := range finished {
		if ar == nil {
			return -1
		}
		if ar.outcome == OutcomeSuccess {
			return i
		}
	}
	return -1
}

// invoke runs one tier under its timeout and breaker.
func invoke[Req, T any](ctx context.Context, o *Orchestrator, domain string, index int, t SourceTier[Req, T], req Req) attemptResult[T] {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = o.timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := o.now()
	var (
		payload T
		err     error
	)

	name := domain + "/" + t.Name
	var cb *gobreaker.CircuitBreaker[any]
	if t.Kind != KindSynthetic {
		cb = o.breakers.get(name)
	}
	if cb == nil {
		payload, err = safeFetch(callCtx, t, req)
	} else {
		var v any
		v, err = cb.Execute(func() (any, error) {
			return safeFetch(callCtx, t, req)
		})
		switch {
		case isRejection(err):
			metrics.CircuitBreakerRequests.WithLabelValues(name, "rejected").Inc()
			err = ErrCircuitOpen
		case err != nil:
			metrics.CircuitBreakerRequests.WithLabelValues(name, "failure").Inc()
		default:
			metrics.CircuitBreakerRequests.WithLabelValues(name, "success").Inc()
			if p, ok := v.(T); ok {
				payload = p
			}
		}
	}

	outcome := Classify(err)
	if outcome == OutcomeCancelled && ctx.Err() == nil {
		// The fetch saw its own deadline or an internal cancellation.
		outcome = OutcomeUpstreamUnavailable
	}
	if outcome == OutcomeUpstreamUnavailable && callCtx.Err() != nil && ctx.Err() != nil {
		outcome = OutcomeCancelled
	}

	return attemptResult[T]{
		index:    index,
		payload:  payload,
		err:      err,
		outcome:  outcome,
		duration: o.now().Sub(start),
	}
}

// safeFetch converts a panicking fetch into an UpstreamUnavailable failure.
func safeFetch[Req, T any](ctx context.Context, t SourceTier[Req, T], req Req) (payload T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: tier %s panicked: %v", ErrUpstreamUnavailable, t.Name, r)
		}
	}()
	if t.Fetch == nil {
		return payload, fmt.Errorf("%w: tier %s has no fetch capability", ErrUpstreamUnavailable, t.Name)
	}
	return t.Fetch(ctx, req)
}

func diagnose[Req, T any](t SourceTier[Req, T], ar attemptResult[T]) Diagnostic {
	return Diagnostic{
		Tier:     t.Name,
		TierKind: t.Kind,
		Kind:     ar.outcome,
		Detail:   detail(ar.err),
		Status:   StatusOf(ar.err),
		Duration: ar.duration,
	}
}

// publish logs the attempt and hands it to the publisher.
func publish[Req, T any](ctx context.Context, o *Orchestrator, domain string, t SourceTier[Req, T], ar attemptResult[T], winner bool) {
	a := Attempt{
		RequestID: logging.RequestIDFromContext(ctx),
		Domain:    domain,
		Tier:      t.Name,
		Rank:      t.Rank,
		Kind:      t.Kind,
		Outcome:   ar.outcome,
		Detail:    detail(ar.err),
		Status:    StatusOf(ar.err),
		Duration:  ar.duration,
		Winner:    winner,
		At:        o.now(),
	}

	if ar.outcome != OutcomeSuccess {
		logging.Ctx(ctx).Warn().
			Str("domain", domain).
			Str("tier", t.Name).
			Str("outcome", string(ar.outcome)).
			Int("status", a.Status).
			Dur("duration", ar.duration).
			Str("detail", a.Detail).
			Msg("Tier attempt failed")
	} else if winner {
		logging.Ctx(ctx).Debug().
			Str("domain", domain).
			Str("tier", t.Name).
			Dur("duration", ar.duration).
			Msg("Tier answered")
	}

	o.publisher.PublishAttempt(ctx, a)
}
