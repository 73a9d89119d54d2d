// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

// Package tier implements the tiered fetch orchestrator: an ordered ladder
// of source tiers walked until one yields usable data, with every failed
// attempt recorded as a typed Diagnostic instead of being swallowed.
//
// A ladder is static per data domain:
//
//	tiers := []tier.SourceTier[models.DataRequest, []models.Observation]{
//	    {Rank: 1, Kind: tier.KindLivePrimary, Name: "stac", Fetch: stac},
//	    {Rank: 2, Kind: tier.KindLiveSecondary, Name: "odata", Fetch: odata},
//	    {Rank: 3, Kind: tier.KindCached, Name: "snapshot", Fetch: snapshot},
//	    {Rank: 4, Kind: tier.KindSynthetic, Name: "synthetic", Fetch: synth},
//	}
//	res := tier.Resolve(ctx, orch, "ocean", req, tiers)
//
// Fetch capabilities signal failure by wrapping one of the package sentinels
// (ErrAuthFailure, ErrUpstreamUnavailable, ErrSchemaMismatch, ErrEmptyResult,
// ErrImageDecode). A fetch that returns a nil error is a success and must
// carry at least one usable record; zero records is ErrEmptyResult.
package tier

import (
	"context"
	"time"
)

// Kind is the role of a tier in its ladder.
type Kind string

const (
	KindLivePrimary   Kind = "live-primary"
	KindLiveSecondary Kind = "live-secondary"
	KindCached        Kind = "cached"
	KindSynthetic     Kind = "synthetic"
)

// SourceTier is one rung of a ladder. Timeout overrides the orchestrator
// default when positive.
type SourceTier[Req, T any] struct {
	Rank    int
	Kind    Kind
	Name    string
	Timeout time.Duration
	Fetch   func(ctx context.Context, req Req) (T, error)
}

// Diagnostic records why a tier did not answer.
type Diagnostic struct {
	Tier     string        `json:"tier"`
	TierKind Kind          `json:"tier_kind"`
	Kind     Outcome       `json:"kind"`
	Detail   string        `json:"detail"`
	Status   int           `json:"status,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Result is the outcome of a ladder walk. Tier is empty and Err set only
// when no tier answered (no synthetic tier configured, or the caller
// cancelled).
type Result[T any] struct {
	Payload     T
	Tier        string
	TierKind    Kind
	Diagnostics []Diagnostic
	Err         error
}

// LastLiveDiagnostic returns the diagnostic of the lowest-priority live
// tier that failed, if any.
func (r *Result[T]) LastLiveDiagnostic() (Diagnostic, bool) {
	for i := len(r.Diagnostics) - 1; i >= 0; i-- {
		d := r.Diagnostics[i]
		switch d.TierKind {
		case KindLivePrimary, KindLiveSecondary:
			return d, true
		}
	}
	return Diagnostic{}, false
}

// Attempt is published once per tier invocation.
type Attempt struct {
	RequestID string        `json:"request_id,omitempty"`
	Domain    string        `json:"domain"`
	Tier      string        `json:"tier"`
	Rank      int           `json:"rank"`
	Kind      Kind          `json:"kind"`
	Outcome   Outcome       `json:"outcome"`
	Detail    string        `json:"detail,omitempty"`
	Status    int           `json:"status,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	Winner    bool          `json:"winner"`
	At        time.Time     `json:"at"`
}

// Publisher receives attempts. Implementations must not block.
type Publisher interface {
	PublishAttempt(ctx context.Context, a Attempt)
}

type nopPublisher struct{}

func (nopPublisher) PublishAttempt(context.Context, Attempt) {}
