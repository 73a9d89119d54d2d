// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

/*
Package services adapts gateway components to suture.Service.

Components that already expose Serve(ctx) error (the cache janitors, the
attempt recorder, the websocket hub) are added to the tree directly. This
package holds the wrappers for components with a different lifecycle,
currently the HTTP server, whose blocking ListenAndServe is translated into
a context-driven Serve with graceful Shutdown.
*/
package services
