// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

/*
Package upstream holds the outbound HTTP clients for every provider the
gateway talks to: the Copernicus identity provider and catalogs, the Global
Fishing Watch 4Wings API (direct and through the proxy) and the static
snapshot host.

Clients only move bytes and map transport and status failures onto the
internal/tier error taxonomy. Ladder construction lives with the services
that own each domain (internal/ocean, internal/report, internal/tiles).

Every client shares one request path:
  - a per-provider token bucket (golang.org/x/time/rate) paces outbound calls
  - the context bounds the call; there is no retry
  - non-2xx responses become *tier.UpstreamError carrying the status and a
    truncated body excerpt
  - 401/403 on a data call becomes *token.AuthFailure so callers can drop
    the cached token
*/
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/tidegate/internal/tier"
)

const (
	// maxBodySize caps successful payloads.
	maxBodySize = 16 << 20

	// maxErrorBodySize caps the excerpt kept from a failed response.
	maxErrorBodySize = 512

	defaultUserAgent = "tidegate/1.0"
)

// ClientOptions configures a Client. Zero RequestsPerSecond disables pacing.
type ClientOptions struct {
	HTTPClient        *http.Client
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
}

// Client performs paced HTTP calls against one provider.
type Client struct {
	name      string
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewClient creates a client for the named provider.
func NewClient(name string, opts ClientOptions) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	return &Client{
		name:      name,
		http:      opts.HTTPClient,
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: opts.UserAgent,
	}
}

// Name returns the provider name.
func (c *Client) Name() string { return c.name }

// Request describes one outbound call.
type Request struct {
	Method      string
	URL         string
	Query       url.Values
	Body        []byte
	ContentType string
	Accept      string
	Bearer      string

	// AnyStatus returns non-2xx responses instead of an error. Used by
	// diagnostics endpoints that report the status verbatim.
	AnyStatus bool
}

// Response is a fully read upstream response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Do executes r. Transport failures are *tier.UpstreamError with status 0.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, tier.NewUpstreamError(0, fmt.Errorf("%s rate limit: %w", c.name, err))
	}

	target := r.URL
	if len(r.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + r.Query.Encode()
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader = http.NoBody
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", c.name, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	if r.Accept != "" {
		req.Header.Set("Accept", r.Accept)
	}
	if r.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+r.Bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, tier.NewUpstreamError(0, fmt.Errorf("%s %s: %w", method, c.name, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt := readBodyForError(resp.Body)
		if r.AnyStatus {
			return &Response{Status: resp.StatusCode, Header: resp.Header, Body: excerpt}, nil
		}
		return nil, tier.NewUpstreamError(resp.StatusCode, fmt.Errorf("%s: %s", c.name, summarize(excerpt)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, tier.NewUpstreamError(resp.StatusCode, fmt.Errorf("read %s body: %w", c.name, err))
	}
	if len(data) > maxBodySize {
		return nil, tier.NewUpstreamError(resp.StatusCode, fmt.Errorf("%s body exceeds %d bytes", c.name, maxBodySize))
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// readBodyForError reads a bounded excerpt of a failed response.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}

// summarize flattens a body excerpt onto one line.
func summarize(b []byte) string {
	s := strings.Join(strings.Fields(string(b)), " ")
	if s == "" {
		return "(empty body)"
	}
	return s
}

// dateRange renders a window in the YYYY-MM-DD form the 4Wings API takes.
func dateRange(start, end time.Time) (string, string) {
	return start.UTC().Format("2006-01-02"), end.UTC().Format("2006-01-02")
}
