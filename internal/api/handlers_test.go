// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tidegate/internal/config"
	"github.com/tomtom215/tidegate/internal/logging"
	"github.com/tomtom215/tidegate/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

var fixedNow = time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitDisabled: true,
		},
		Region: config.RegionConfig{
			Name: "angola", MinLon: 11.5, MinLat: -18.0, MaxLon: 17.5, MaxLat: -4.2, AreaKm2: 120000,
		},
		Copernicus: config.CopernicusConfig{LookbackDays: 7},
		GFW: config.GFWConfig{
			APIURL:          "https://gateway.example/v3",
			PresenceDataset: "public-global-fishing-activity:v20231026",
			ReportDataset:   "public-global-ais-vessel-presence:v3.0",
			TileDatasets:    []string{"public-global-ais-vessel-presence:v3.0"},
			WindowHours:     24,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, deps Deps) *httptest.Server {
	t.Helper()
	h := NewHandler(cfg, deps)
	h.now = func() time.Time { return fixedNow }
	srv := httptest.NewServer(NewRouter(h, cfg).SetupChi())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string, header http.Header) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func decodeEnvelope(t *testing.T, body []byte) APIResponse {
	t.Helper()
	var env APIResponse
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, body)
	}
	return env
}

type fakeOcean struct {
	mu   sync.Mutex
	last models.DataRequest
}

func (f *fakeOcean) Realtime(_ context.Context, req models.DataRequest) models.AggregateResult {
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	return models.AggregateResult{
		Temperature: models.Float(21.5),
		DataPoints:  2,
		DataSource:  "copernicus_stac",
		Status:      models.StatusOnline,
		Timestamp:   fixedNow,
	}
}

func (f *fakeOcean) request() models.DataRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type fakeReports struct {
	mu           sync.Mutex
	lastPresence models.DataRequest
	lastKPI      models.KPIRequest
}

func (f *fakeReports) GetPresence(_ context.Context, req models.DataRequest) models.Report {
	f.mu.Lock()
	f.lastPresence = req
	f.mu.Unlock()
	return models.Report{VesselCount: 42, DataSource: "gfw_api", APIStatus: "connected"}
}

func (f *fakeReports) GetReport(_ context.Context, req models.KPIRequest) models.KPIReport {
	f.mu.Lock()
	f.lastKPI = req
	f.mu.Unlock()
	return models.KPIReport{
		Summary:   models.KPISummary{VesselCount: 50, Region: req.Region},
		RawData:   models.KPIRawData{Dataset: req.Dataset, APIVersion: "v3", DataSource: "gfw_api"},
		APIStatus: "connected",
	}
}

func (f *fakeReports) kpi() models.KPIRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastKPI
}

func TestRealtimeData_FlatJSON(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"/realtime/data", "/api/realtime/data"} {
		t.Run(path, func(t *testing.T) {
			t.Parallel()
			ocean := &fakeOcean{}
			srv := newTestServer(t, testConfig(), Deps{Ocean: ocean})

			resp, body := get(t, srv.URL+path, nil)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, body %s", resp.StatusCode, body)
			}

			var flat map[string]interface{}
			if err := json.Unmarshal(body, &flat); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if _, wrapped := flat["success"]; wrapped {
				t.Error("data endpoint must not use the envelope")
			}
			if flat["temperature"] != 21.5 || flat["status"] != "online" {
				t.Errorf("unexpected body: %s", body)
			}

			req := ocean.request()
			want := models.BoundingBox{MinLon: 11.5, MinLat: -18.0, MaxLon: 17.5, MaxLat: -4.2}
			if req.BBox != want {
				t.Errorf("bbox = %+v, want default region %+v", req.BBox, want)
			}
			if req.Limit != defaultOceanLimit {
				t.Errorf("limit = %d, want %d", req.Limit, defaultOceanLimit)
			}
			if got := req.Window.Duration(); got != 7*24*time.Hour {
				t.Errorf("window = %v, want 7 days", got)
			}
		})
	}
}

func TestRealtimeData_QueryParams(t *testing.T) {
	t.Parallel()

	ocean := &fakeOcean{}
	srv := newTestServer(t, testConfig(), Deps{Ocean: ocean})

	resp, body := get(t, srv.URL+"/realtime/data?bbox=12,-10,13,-9&start=2026-03-01T00:00:00Z&end=2026-03-02T00:00:00Z&limit=5", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	req := ocean.request()
	if req.BBox.MinLon != 12 || req.BBox.MaxLat != -9 {
		t.Errorf("bbox = %+v", req.BBox)
	}
	if req.Limit != 5 {
		t.Errorf("limit = %d, want 5", req.Limit)
	}
	if got := req.Window.Duration(); got != 24*time.Hour {
		t.Errorf("window = %v, want 24h", got)
	}
}

func TestRealtimeData_RejectsMalformedInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"short bbox", "bbox=1,2,3", ErrCodeBadRequest},
		{"non-numeric bbox", "bbox=a,b,c,d", ErrCodeBadRequest},
		{"out of range bbox", "bbox=0,0,200,1", ErrCodeValidationFailed},
		{"inverted bbox", "bbox=10,0,5,1", ErrCodeValidationFailed},
		{"bad start", "start=yesterday", ErrCodeBadRequest},
		{"end before start", "start=2026-03-02T00:00:00Z&end=2026-03-01T00:00:00Z", ErrCodeValidationFailed},
		{"zero limit", "limit=0", ErrCodeValidationFailed},
		{"huge limit", "limit=501", ErrCodeValidationFailed},
		{"non-numeric limit", "limit=ten", ErrCodeBadRequest},
	}

	srv := newTestServer(t, testConfig(), Deps{Ocean: &fakeOcean{}})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp, body := get(t, srv.URL+"/realtime/data?"+tt.query, nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			env := decodeEnvelope(t, body)
			if env.Success || env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", env.Error, tt.code)
			}
		})
	}
}

func TestVesselPresence(t *testing.T) {
	t.Parallel()

	reports := &fakeReports{}
	srv := newTestServer(t, testConfig(), Deps{Reports: reports})

	resp, body := get(t, srv.URL+"/api/gfw/vessel-presence", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var report models.Report
	if err := json.Unmarshal(body, &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.VesselCount != 42 || report.DataSource != "gfw_api" {
		t.Errorf("report = %+v", report)
	}

	reports.mu.Lock()
	req := reports.lastPresence
	reports.mu.Unlock()
	if got := req.Window.Duration(); got != 24*time.Hour {
		t.Errorf("window = %v, want 24h", got)
	}
	if !req.Wants(models.MetricVesselPresence) {
		t.Errorf("metrics = %v", req.Metrics)
	}
}

func TestReport_DatasetSources(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		dataset string
	}{
		{"path param", "/gfw/4wings/report/custom-dataset", "custom-dataset"},
		{"query alias", "/api/gfw/4wings/report?dataset=alias-dataset", "alias-dataset"},
		{"alias default", "/api/gfw/4wings/report", "public-global-ais-vessel-presence:v3.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reports := &fakeReports{}
			srv := newTestServer(t, testConfig(), Deps{Reports: reports})

			resp, body := get(t, srv.URL+tt.path, nil)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, body %s", resp.StatusCode, body)
			}
			req := reports.kpi()
			if req.Dataset != tt.dataset {
				t.Errorf("dataset = %q, want %q", req.Dataset, tt.dataset)
			}
			if req.Region != "angola" {
				t.Errorf("region = %q, want configured default", req.Region)
			}
			wantStart := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
			wantEnd := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
			if !req.StartDate.Equal(wantStart) || !req.EndDate.Equal(wantEnd) {
				t.Errorf("period = %v..%v, want yesterday..today", req.StartDate, req.EndDate)
			}
		})
	}
}

func TestReport_ExplicitPeriodAndRegion(t *testing.T) {
	t.Parallel()

	reports := &fakeReports{}
	srv := newTestServer(t, testConfig(), Deps{Reports: reports})

	resp, _ := get(t, srv.URL+"/gfw/4wings/report/ds?region=namibia&start-date=2026-01-01&end-date=2026-01-31", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	req := reports.kpi()
	if req.Region != "namibia" {
		t.Errorf("region = %q", req.Region)
	}
	if req.EndDate.Sub(req.StartDate) != 30*24*time.Hour {
		t.Errorf("period = %v..%v", req.StartDate, req.EndDate)
	}

	for _, q := range []string{"start-date=01/01/2026", "start-date=2026-02-01&end-date=2026-01-01"} {
		resp, body := get(t, srv.URL+"/gfw/4wings/report/ds?"+q, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, body %s", q, resp.StatusCode, body)
		}
	}
}

func TestNotFound_Envelope(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testConfig(), Deps{})
	resp, body := get(t, srv.URL+"/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if env := decodeEnvelope(t, body); env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		breakers map[string]string
		want     string
	}{
		{"all closed", map[string]string{"ocean/copernicus-stac": "closed"}, "healthy"},
		{"one open", map[string]string{"ocean/copernicus-stac": "closed", "vessels/gfw-direct": "open"}, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newTestServer(t, testConfig(), Deps{
				Breakers: fakeBreakers(tt.breakers),
				Tokens:   &fakeTokens{configured: map[string]bool{"copernicus": true}},
			})
			resp, body := get(t, srv.URL+"/health", nil)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			var health HealthStatus
			if err := json.Unmarshal(body, &health); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if health.Status != tt.want {
				t.Errorf("status = %q, want %q", health.Status, tt.want)
			}
			if !health.Providers["copernicus"] || health.Providers["gfw"] {
				t.Errorf("providers = %v", health.Providers)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testConfig(), Deps{})
	get(t, srv.URL+"/health/live", nil)
	resp, body := get(t, srv.URL+"/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(body) == 0 {
		t.Error("empty metrics body")
	}
}
