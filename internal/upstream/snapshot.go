// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package upstream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tidegate/internal/tier"
)

// Snapshot reads last-known-good documents from the static content host.
type Snapshot struct {
	client  *Client
	baseURL string
}

// NewSnapshot creates a snapshot reader rooted at baseURL.
func NewSnapshot(client *Client, baseURL string) *Snapshot {
	return &Snapshot{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Configured reports whether a snapshot host is set.
func (s *Snapshot) Configured() bool {
	return s.baseURL != ""
}

// Fetch returns the raw document at path.
func (s *Snapshot) Fetch(ctx context.Context, path string) ([]byte, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	resp, err := s.client.Do(ctx, Request{URL: s.baseURL + path, Accept: "application/json"})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// VesselSnapshot is a cached aggregate with its capture time.
type VesselSnapshot struct {
	LastUpdated time.Time
	Totals      PresenceTotals
}

// Age returns how old the snapshot is at now.
func (v VesselSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(v.LastUpdated)
}

// FetchVessels reads and parses the vessel presence snapshot at path.
func (s *Snapshot) FetchVessels(ctx context.Context, path string) (VesselSnapshot, error) {
	raw, err := s.Fetch(ctx, path)
	if err != nil {
		return VesselSnapshot{}, err
	}
	return ParseVesselSnapshot(raw)
}

// ParseVesselSnapshot decodes {last_updated, data:{features}}. A snapshot
// that recorded an upstream error is treated as empty.
func ParseVesselSnapshot(raw []byte) (VesselSnapshot, error) {
	var doc struct {
		LastUpdated *time.Time `json:"last_updated"`
		Data        *struct {
			Features []aggregateFeature `json:"features"`
			Error    interface{}        `json:"error"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return VesselSnapshot{}, fmt.Errorf("%w: vessel snapshot: %v", tier.ErrSchemaMismatch, err)
	}
	if doc.LastUpdated == nil || doc.Data == nil {
		return VesselSnapshot{}, fmt.Errorf("%w: vessel snapshot lacks last_updated or data", tier.ErrSchemaMismatch)
	}
	if doc.Data.Error != nil {
		return VesselSnapshot{}, fmt.Errorf("%w: snapshot captured an upstream error", tier.ErrEmptyResult)
	}

	totals, err := sumFeatures(doc.Data.Features)
	if err != nil {
		return VesselSnapshot{}, err
	}
	return VesselSnapshot{LastUpdated: *doc.LastUpdated, Totals: totals}, nil
}
