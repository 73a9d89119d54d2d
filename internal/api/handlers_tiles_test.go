// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package api

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"net/http"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tidegate/internal/models"
	"github.com/tomtom215/tidegate/internal/tiles"
	"github.com/tomtom215/tidegate/internal/upstream"
)

// noDatasets is a 4Wings upstream that serves nothing; every call fails.
type noDatasets struct {
	mu    sync.Mutex
	calls int
}

func (n *noDatasets) KnownDataset(string) bool { return false }

func (n *noDatasets) GenerateStyle(context.Context, upstream.StyleRequest) (string, error) {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	return "", errors.New("unexpected style call")
}

func (n *noDatasets) Tile(context.Context, models.TileRequest, string, *models.BoundingBox) ([]byte, error) {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	return nil, errors.New("unexpected tile call")
}

func newGateway(t *testing.T, up tiles.Upstream) *tiles.Gateway {
	t.Helper()
	gw, err := tiles.NewGateway(up, tiles.Options{})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	t.Cleanup(func() { _ = gw.Close() })
	return gw
}

// recordingTiles captures the tile request and answers with a fixed raster.
type recordingTiles struct {
	mu   sync.Mutex
	last models.TileRequest
	err  error
}

func (r *recordingTiles) GetTile(_ context.Context, req models.TileRequest) (models.TileRaster, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = req
	return models.TileRaster{Data: []byte("png"), ContentType: tiles.ContentTypePNG, Source: models.TileSourceUpstream}, r.err
}

func (r *recordingTiles) Style(_ context.Context, req models.TileRequest) tiles.StyleHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = req
	return tiles.StyleHandle{StyleID: "style-1", Status: "generated", Dataset: req.Dataset}
}

func (r *recordingTiles) request() models.TileRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func TestTile_FallbackIsTransparentPNG(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
	}{
		{"unconfigured dataset", "/gfw/4wings/tile/heatmap/not-a-dataset/3/4/2.png"},
		{"out of range coordinates", "/gfw/4wings/tile/heatmap/not-a-dataset/1/5/0.png"},
	}

	up := &noDatasets{}
	srv := newTestServer(t, testConfig(), Deps{Tiles: newGateway(t, up)})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, srv.URL+tt.path, nil)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); ct != tiles.ContentTypePNG {
				t.Errorf("Content-Type = %q", ct)
			}
			if src := resp.Header.Get(HeaderTileSource); src != string(models.TileSourceFallback) {
				t.Errorf("%s = %q, want fallback", HeaderTileSource, src)
			}
			if cc := resp.Header.Get("Cache-Control"); cc != tiles.CacheControlFallback {
				t.Errorf("Cache-Control = %q", cc)
			}
			if _, err := png.Decode(bytes.NewReader(body)); err != nil {
				t.Errorf("fallback is not a PNG: %v", err)
			}
		})
	}

	up.mu.Lock()
	defer up.mu.Unlock()
	if up.calls != 0 {
		t.Errorf("upstream called %d times for unservable tiles", up.calls)
	}
}

func TestTile_MalformedCoordinates(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testConfig(), Deps{Tiles: newGateway(t, &noDatasets{})})
	for _, path := range []string{
		"/gfw/4wings/tile/heatmap/ds/abc/1/1.png",
		"/gfw/4wings/tile/heatmap/ds/1/x/1.png",
		"/gfw/4wings/tile/heatmap/ds/23/0/0.png",
		"/gfw/4wings/tile/heatmap/ds/2/-1/0.png",
		"/gfw/4wings/tile/heatmap/ds/2/1/1.png?start-date=March",
	} {
		resp, body := get(t, srv.URL+path, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, resp.StatusCode)
			continue
		}
		if env := decodeEnvelope(t, body); env.Success {
			t.Errorf("%s: success envelope on error", path)
		}
	}
}

func TestTile_ParamsAndHeaders(t *testing.T) {
	t.Parallel()

	rec := &recordingTiles{}
	srv := newTestServer(t, testConfig(), Deps{Tiles: rec})

	resp, body := get(t, srv.URL+"/gfw/4wings/tile/heatmap/ds-a/4/8/9.png?start-date=2026-01-01&end-date=2026-01-31&styleId=s1&region=angola", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if string(body) != "png" {
		t.Errorf("body = %q", body)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != tiles.CacheControlSuccess {
		t.Errorf("Cache-Control = %q", cc)
	}
	want := models.TileRequest{
		Dataset: "ds-a", Z: 4, X: 8, Y: 9,
		StartDate: "2026-01-01", EndDate: "2026-01-31", StyleID: "s1", Region: "angola",
	}
	if got := rec.request(); got != want {
		t.Errorf("request = %+v, want %+v", got, want)
	}
}

func TestTileDefault_UsesFirstTileDataset(t *testing.T) {
	t.Parallel()

	rec := &recordingTiles{}
	srv := newTestServer(t, testConfig(), Deps{Tiles: rec})

	resp, _ := get(t, srv.URL+"/gfw/4wings/tile/heatmap/2/1/1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := rec.request().Dataset; got != "public-global-ais-vessel-presence:v3.0" {
		t.Errorf("dataset = %q", got)
	}
}

func TestTile_FallbackConstructionFailure(t *testing.T) {
	t.Parallel()

	rec := &recordingTiles{err: errors.New("no fallback")}
	srv := newTestServer(t, testConfig(), Deps{Tiles: rec})

	resp, body := get(t, srv.URL+"/gfw/4wings/tile/heatmap/ds/1/0/0.png", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if env := decodeEnvelope(t, body); env.Error == nil || env.Error.Code != ErrCodeInternalError {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestGeneratePNG(t *testing.T) {
	t.Parallel()

	t.Run("unknown dataset falls back", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, testConfig(), Deps{Tiles: newGateway(t, &noDatasets{})})
		resp, body := get(t, srv.URL+"/gfw/4wings/tile/generate-png?dataset=nope&start-date=2026-01-01", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var h tiles.StyleHandle
		if err := json.Unmarshal(body, &h); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if h.Status != "fallback" || h.StyleID != "" || h.Error == "" {
			t.Errorf("handle = %+v", h)
		}
		if h.TileTemplate != "/gfw/4wings/tile/heatmap/nope/{z}/{x}/{y}.png?start-date=2026-01-01" {
			t.Errorf("template = %q", h.TileTemplate)
		}
	})

	t.Run("default dataset", func(t *testing.T) {
		t.Parallel()
		rec := &recordingTiles{}
		srv := newTestServer(t, testConfig(), Deps{Tiles: rec})
		resp, _ := get(t, srv.URL+"/gfw/4wings/tile/generate-png", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if got := rec.request().Dataset; got != "public-global-ais-vessel-presence:v3.0" {
			t.Errorf("dataset = %q", got)
		}
	})
}
