// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package tier

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Failure taxonomy. Fetchers wrap one of these so Classify can map the error
// to an Outcome without inspecting messages.
var (
	ErrAuthFailure         = errors.New("authentication failed")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrSchemaMismatch      = errors.New("schema mismatch")
	ErrEmptyResult         = errors.New("empty result")
	ErrImageDecode         = errors.New("image decode failed")

	// ErrAllTiersFailed is returned in Result.Err when no tier, synthetic
	// included, produced a payload.
	ErrAllTiersFailed = errors.New("all tiers failed")

	// ErrCircuitOpen is reported when a tier's breaker rejects the call.
	ErrCircuitOpen = fmt.Errorf("%w: circuit open", ErrUpstreamUnavailable)
)

// UpstreamError carries the HTTP status of a failed upstream call. Status is
// 0 for transport failures.
type UpstreamError struct {
	Status int
	Err    error
}

// NewUpstreamError wraps err with status.
func NewUpstreamError(status int, err error) *UpstreamError {
	return &UpstreamError{Status: status, Err: err}
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream unavailable: %v", e.Err)
	}
	return fmt.Sprintf("upstream returned %d: %v", e.Status, e.Err)
}

// Unwrap exposes the cause.
func (e *UpstreamError) Unwrap() error { return e.Err }

// Is makes every UpstreamError match ErrUpstreamUnavailable.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }

// StatusCode returns the upstream HTTP status.
func (e *UpstreamError) StatusCode() int { return e.Status }

// statusCoder is implemented by errors that know the HTTP status behind them.
type statusCoder interface {
	StatusCode() int
}

// Outcome classifies a single tier attempt.
type Outcome string

const (
	OutcomeSuccess             Outcome = "success"
	OutcomeAuthFailure         Outcome = "auth_failure"
	OutcomeUpstreamUnavailable Outcome = "upstream_unavailable"
	OutcomeSchemaMismatch      Outcome = "schema_mismatch"
	OutcomeEmptyResult         Outcome = "empty_result"
	OutcomeCancelled           Outcome = "cancelled"
)

// Classify maps an error returned by a fetch capability to an Outcome.
// Unknown errors, deadlines and transport failures are UpstreamUnavailable.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrAuthFailure):
		return OutcomeAuthFailure
	case errors.Is(err, ErrSchemaMismatch), errors.Is(err, ErrImageDecode):
		return OutcomeSchemaMismatch
	case errors.Is(err, ErrEmptyResult):
		return OutcomeEmptyResult
	case errors.Is(err, context.Canceled):
		return OutcomeCancelled
	default:
		return OutcomeUpstreamUnavailable
	}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

const maxDetailLen = 240

// detail renders err for a Diagnostic. Messages are truncated and never
// contain credentials because fetchers only wrap status and parse errors.
func detail(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	if len(msg) > maxDetailLen {
		msg = msg[:maxDetailLen] + "..."
	}
	return msg
}
