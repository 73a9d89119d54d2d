// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/tidegate/internal/models"
)

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()

	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

func validOceanRequest() models.DataRequest {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return models.NewOceanRequest(models.BoundingBox{MinLon: 11.5, MinLat: -18, MaxLon: 17.5, MaxLat: -4.2}, now, 7*24*time.Hour, 20)
}

func TestValidateStruct_DataRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(r *models.DataRequest)
		wantField string
	}{
		{"valid", func(r *models.DataRequest) {}, ""},
		{"no metrics", func(r *models.DataRequest) { r.Metrics = nil }, "Metrics"},
		{"unknown metric", func(r *models.DataRequest) { r.Metrics = []models.Metric{"wave_height"} }, "Metrics[0]"},
		{"latitude out of range", func(r *models.DataRequest) { r.BBox.MinLat = -91 }, "MinLat"},
		{"inverted longitude", func(r *models.DataRequest) { r.BBox.MaxLon = 10 }, "MaxLon"},
		{"window reversed", func(r *models.DataRequest) { r.Window.End = r.Window.Start.Add(-time.Hour) }, "End"},
		{"limit too large", func(r *models.DataRequest) { r.Limit = 501 }, "Limit"},
		{"limit zero", func(r *models.DataRequest) { r.Limit = 0 }, "Limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := validOceanRequest()
			tt.mutate(&req)
			err := ValidateStruct(&req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error on %s", tt.wantField)
			}
			found := false
			for _, fe := range err.Errors() {
				if fe.Field() == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %v do not include field %s", err, tt.wantField)
			}
		})
	}
}

func TestValidateStruct_TileRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     models.TileRequest
		wantErr bool
	}{
		{"valid", models.TileRequest{Dataset: "ds", Z: 3, X: 7, Y: 0}, false},
		{"x overflow", models.TileRequest{Dataset: "ds", Z: 3, X: 8, Y: 0}, true},
		{"y overflow", models.TileRequest{Dataset: "ds", Z: 1, X: 0, Y: 2}, true},
		{"zoom too deep", models.TileRequest{Dataset: "ds", Z: 23}, true},
		{"bad date", models.TileRequest{Dataset: "ds", StartDate: "01/02/2026"}, true},
		{"missing dataset", models.TileRequest{Z: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateStruct(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateStruct() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Parallel()

	req := models.TileRequest{Dataset: "ds", Z: 2, X: 4, Y: 0}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "between 0 and 3") {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "X" {
		t.Errorf("Details = %v", apiErr.Details)
	}
}
