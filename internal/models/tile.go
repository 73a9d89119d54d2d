// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package models

import (
	"fmt"
	"strings"
)

// MaxTileZoom is the deepest zoom level served.
const MaxTileZoom = 22

// TileRequest identifies one heatmap tile and its style parameters.
type TileRequest struct {
	Dataset   string `json:"dataset" validate:"required,max=128"`
	Z         int    `json:"z" validate:"gte=0,lte=22"`
	X         int    `json:"x" validate:"gte=0"`
	Y         int    `json:"y" validate:"gte=0"`
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	StyleID   string `json:"style_id" validate:"omitempty,max=256"`
	Region    string `json:"region" validate:"omitempty,max=64"`
}

// InRange reports whether x and y fit the zoom level (0 <= x,y < 2^z).
func (r TileRequest) InRange() bool {
	if r.Z < 0 || r.Z > MaxTileZoom || r.X < 0 || r.Y < 0 {
		return false
	}
	n := 1 << uint(r.Z)
	return r.X < n && r.Y < n
}

// StyleKey identifies the style handle shared by all tiles of a parameter set.
func (r TileRequest) StyleKey() string {
	return strings.Join([]string{r.Dataset, r.StartDate, r.EndDate, r.Region}, "|")
}

// TileKey identifies one rendered tile for a given style handle.
func (r TileRequest) TileKey(styleID string) string {
	return fmt.Sprintf("%s/%d/%d/%d/%s/%s/%s", r.Dataset, r.Z, r.X, r.Y, r.StartDate, r.EndDate, styleID)
}

// TileSource records where tile bytes came from.
type TileSource string

const (
	TileSourceUpstream TileSource = "upstream"
	TileSourceCache    TileSource = "cache"
	TileSourceFallback TileSource = "fallback"
)

// TileRaster is a rendered tile. Data is always a decodable image of
// ContentType.
type TileRaster struct {
	Data        []byte
	ContentType string
	Source      TileSource
	StyleID     string
}
