// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package control defines the presenced control socket: the actions
// the daemon answers and a typed client for them.
//
// Every request and response is CBOR, carried by lib/service's
// one-request-per-connection socket protocol.
package control

import (
	"context"
	"errors"
	"time"

	"github.com/bureau-foundation/presenced/activity"
	"github.com/bureau-foundation/presenced/lib/clock"
	"github.com/bureau-foundation/presenced/lib/service"
	"github.com/bureau-foundation/presenced/lib/version"
	"github.com/bureau-foundation/presenced/publish"
)

// Action names.
const (
	ActionStatus   = "status"
	ActionSnapshot = "snapshot"
	ActionPublish  = "publish"
)

// StatusResponse is the reply to "status".
type StatusResponse struct {
	Version       string   `cbor:"version" json:"version"`
	UptimeSeconds float64  `cbor:"uptime_seconds" json:"uptime_seconds"`
	Mode          string   `cbor:"mode" json:"mode"`
	Sink          string   `cbor:"sink" json:"sink"`
	Endpoints     []string `cbor:"endpoints" json:"endpoints"`
	Connections   int      `cbor:"connections" json:"connections"`
	Records       int      `cbor:"records" json:"records"`

	PublishesSucceeded uint64    `cbor:"publishes_succeeded" json:"publishes_succeeded"`
	PublishesFailed    uint64    `cbor:"publishes_failed" json:"publishes_failed"`
	LastPublish        time.Time `cbor:"last_publish" json:"last_publish"`
	LastError          string    `cbor:"last_error,omitempty" json:"last_error,omitempty"`
}

// SnapshotEntry is one record as presencectl shows it.
type SnapshotEntry struct {
	Identity  string     `cbor:"identity" json:"identity"`
	Name      string     `cbor:"name" json:"name"`
	State     string     `cbor:"state" json:"state"`
	Details   string     `cbor:"details" json:"details"`
	LargeText string     `cbor:"large_text" json:"large_text"`
	SmallText string     `cbor:"small_text" json:"small_text"`
	Start     *time.Time `cbor:"start,omitempty" json:"start,omitempty"`
	End       *time.Time `cbor:"end,omitempty" json:"end,omitempty"`
}

// SnapshotResponse is the reply to "snapshot".
type SnapshotResponse struct {
	TakenAt time.Time       `cbor:"taken_at" json:"taken_at"`
	Entries []SnapshotEntry `cbor:"entries" json:"entries"`
}

// PublishResponse is the reply to "publish".
type PublishResponse struct {
	Records int `cbor:"records" json:"records"`
}

// Endpoints reports the IPC sockets and their live connections.
// *ipc.Supervisor satisfies it.
type Endpoints interface {
	Endpoints() []string
	ActiveConnections() int
}

// Handlers answers control actions for one daemon.
type Handlers struct {
	Publisher  *publish.Publisher
	Supervisor Endpoints
	Mode       string
	Sink       string
	Clock      clock.Clock
	StartedAt  time.Time
}

// Register installs every action on server.
func (h *Handlers) Register(server *service.SocketServer) {
	server.Handle(ActionStatus, h.handleStatus)
	server.Handle(ActionSnapshot, h.handleSnapshot)
	server.Handle(ActionPublish, h.handlePublish)
}

func (h *Handlers) now() time.Time {
	if h.Clock == nil {
		return time.Now()
	}
	return h.Clock.Now()
}

func (h *Handlers) handleStatus(ctx context.Context, raw []byte) (any, error) {
	status := h.Publisher.Status()
	response := StatusResponse{
		Version:            version.Info(),
		UptimeSeconds:      h.now().Sub(h.StartedAt).Seconds(),
		Mode:               h.Mode,
		Sink:               h.Sink,
		Records:            len(h.Publisher.Snapshot().Entries),
		PublishesSucceeded: status.Succeeded,
		PublishesFailed:    status.Failed,
		LastPublish:        status.LastAttempt,
		LastError:          status.LastError,
	}
	if h.Supervisor != nil {
		response.Endpoints = h.Supervisor.Endpoints()
		response.Connections = h.Supervisor.ActiveConnections()
	}
	return response, nil
}

func (h *Handlers) handleSnapshot(ctx context.Context, raw []byte) (any, error) {
	snapshot := h.Publisher.Snapshot()
	return SnapshotResponse{
		TakenAt: snapshot.TakenAt,
		Entries: snapshotEntries(snapshot.Entries, h.Publisher.Names()),
	}, nil
}

func (h *Handlers) handlePublish(ctx context.Context, raw []byte) (any, error) {
	records := len(h.Publisher.Snapshot().Entries)
	if err := h.Publisher.PublishOnce(ctx); err != nil {
		return nil, err
	}
	return PublishResponse{Records: records}, nil
}

func snapshotEntries(entries []activity.Entry, names *publish.Names) []SnapshotEntry {
	result := make([]SnapshotEntry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, SnapshotEntry{
			Identity:  entry.Identity,
			Name:      names.Resolve(entry.Identity),
			State:     entry.Record.State,
			Details:   entry.Record.Details,
			LargeText: entry.Record.LargeText,
			SmallText: entry.Record.SmallText,
			Start:     entry.Record.StartTime,
			End:       entry.Record.EndTime,
		})
	}
	return result
}

// Client calls a daemon's control socket.
type Client struct {
	service *service.ServiceClient
}

// NewClient returns a client for the socket at path.
func NewClient(path string) *Client {
	return &Client{service: service.NewServiceClient(path)}
}

// Status fetches daemon status.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var response StatusResponse
	err := c.service.Call(ctx, ActionStatus, nil, &response)
	return response, err
}

// Snapshot fetches the current records.
func (c *Client) Snapshot(ctx context.Context) (SnapshotResponse, error) {
	var response SnapshotResponse
	err := c.service.Call(ctx, ActionSnapshot, nil, &response)
	return response, err
}

// Publish asks the daemon to deliver a snapshot now.
func (c *Client) Publish(ctx context.Context) (PublishResponse, error) {
	var response PublishResponse
	err := c.service.Call(ctx, ActionPublish, nil, &response)
	return response, err
}

// IsDaemonError reports whether err came from the daemon rather than
// the transport.
func IsDaemonError(err error) bool {
	var serviceErr *service.ServiceError
	return errors.As(err, &serviceErr)
}
