// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package publish periodically delivers snapshots of the activity
// store to a sink.
//
// A [Publisher] ticks on a fixed interval. Each tick copies the store,
// resolves client identities to display names, and hands the result
// to a [Sink]. Delivery is best effort: a failed tick is logged and
// dropped, and the next tick sends a fresh snapshot. There is no
// retry and no queue.
//
// Two sinks ship with the package. [HTTPSink] POSTs each snapshot to a
// remote presence-http server. [MemorySink] keeps the latest snapshot
// in process for a local view; the presence-http server uses the same
// type as its state holder.
package publish
