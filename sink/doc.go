// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sink is the HTTP side of presence publishing: it accepts
// snapshot uploads from presenced and renders the latest one as a web
// page.
//
// Routes:
//
//	GET  /            HTML view of the last snapshot (ETag, 304 on match)
//	POST /state       replace the snapshot; 401 on token mismatch
//	GET  /state.json  the last snapshot as JSON
//	GET  /metrics     Prometheus metrics, when configured
//	GET  /_health     liveness
//
// The presence-http binary runs this server standalone. presenced in
// display mode runs it read-only, fed directly by its own publisher.
package sink
