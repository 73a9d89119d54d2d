// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

/*
Package supervisor runs the gateway's long-lived services under a
thejerf/suture/v4 tree.

The root supervisor "tidegate" has two children. The background layer holds
the TTL cache janitors, the attempt recorder that drains the event bus, and
the websocket hub serving the live attempt stream. The API layer holds the
HTTP server. Each layer restarts its own services with exponential backoff
and a crash in one layer never restarts the other.

Supervisor events are written through sutureslog to a log/slog logger that
is backed by zerolog (see logging.NewSlogLogger), so restarts and backoff
show up in the same structured log stream as everything else.

Usage:

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{})
	tree.AddBackgroundService(gateway.StyleCache())
	tree.AddBackgroundService(recorder)
	tree.AddBackgroundService(hub)
	tree.AddAPIService(services.NewHTTPServerService(server, addr, 10*time.Second))
	err := tree.Serve(ctx)
*/
package supervisor
