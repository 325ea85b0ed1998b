// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/tidwall/gjson"

	"github.com/bureau-foundation/presenced/activity"
)

// Protocol violations. Both terminate the connection.
var (
	ErrHandshakeNotReceived = errors.New("first frame was not a handshake")
	ErrMalformedCommand     = errors.New("malformed command frame")
)

// ConnState is the lifecycle position of one connection.
type ConnState int32

const (
	StateAwaitingHandshake ConnState = iota
	StateActive
	StateTerminated
)

func (s ConnState) String() string {
	switch s {
	case StateAwaitingHandshake:
		return "awaiting-handshake"
	case StateActive:
		return "active"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("ConnState(%d)", int32(s))
	}
}

// readyPayload is the fixed handshake acknowledgement. Clients wait
// for a DISPATCH/READY before sending anything else; the user object
// only needs to be present.
var readyPayload = json.RawMessage(`{"cmd":"DISPATCH","evt":"READY","data":{"user":{"id":"1"}}}`)

// ConnConfig holds the collaborators shared by every connection.
type ConnConfig struct {
	// Store receives the connection's activity. Required.
	Store *activity.Store

	// Logger is scoped further with the client identity once the
	// handshake arrives. Defaults to slog.Default().
	Logger *slog.Logger

	// Observer is notified of connection events. May be nil.
	Observer Observer
}

// Conn drives one accepted stream through handshake, command dispatch,
// and teardown.
type Conn struct {
	stream   io.ReadWriteCloser
	store    *activity.Store
	logger   *slog.Logger
	observer Observer

	state    atomic.Int32
	identity string
}

// NewConn wraps an accepted stream. The returned Conn owns the stream
// and closes it when Serve returns.
func NewConn(stream io.ReadWriteCloser, config ConnConfig) *Conn {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := config.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	return &Conn{
		stream:   stream,
		store:    config.Store,
		logger:   logger,
		observer: observer,
	}
}

// State returns the connection's current lifecycle state.
func (c *Conn) State() ConnState {
	return ConnState(c.state.Load())
}

// Serve runs the connection until the client disconnects, sends
// something fatal, or ctx is cancelled. It returns nil when the client
// closed the stream cleanly between frames, ctx.Err() when the daemon
// is shutting down, and the terminating error otherwise.
//
// On every return path the stream is closed, and if the handshake had
// completed, the client's store entry is removed.
func (c *Conn) Serve(ctx context.Context) error {
	defer c.stream.Close()

	// A blocked ReadFrame only returns when the stream closes.
	stop := context.AfterFunc(ctx, func() { c.stream.Close() })
	defer stop()

	c.observer.ConnectionOpened()
	err := c.run()
	c.state.Store(int32(StateTerminated))
	c.observer.ConnectionClosed(err)

	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, io.EOF):
		return nil
	default:
		return err
	}
}

func (c *Conn) run() error {
	frame, err := ReadFrame(c.stream)
	if err != nil {
		return fmt.Errorf("awaiting handshake: %w", err)
	}
	c.observer.FrameReceived(frame.Opcode)
	if frame.Opcode != OpcodeHandshake {
		return fmt.Errorf("%w: got opcode %d", ErrHandshakeNotReceived, frame.Opcode)
	}

	// A missing or non-string client_id is the empty identity.
	// Clients in the wild send all sorts of things here.
	clientID := gjson.GetBytes(frame.Payload, "client_id")
	if clientID.Type == gjson.String {
		c.identity = clientID.String()
	}
	c.state.Store(int32(StateActive))
	defer c.store.Remove(c.identity)

	c.logger = c.logger.With("client_id", c.identity)
	c.logger.Debug("handshake received")

	if err := WriteFrame(c.stream, Frame{Opcode: OpcodeFrame, Payload: readyPayload}); err != nil {
		return fmt.Errorf("sending ready: %w", err)
	}

	for {
		frame, err := ReadFrame(c.stream)
		if err != nil {
			return err
		}
		c.observer.FrameReceived(frame.Opcode)

		if frame.Opcode != OpcodeFrame {
			c.logger.Warn("ignoring frame with unexpected opcode", "opcode", frame.Opcode)
			continue
		}
		if err := c.dispatch(frame.Payload); err != nil {
			return err
		}
	}
}

func (c *Conn) dispatch(payload json.RawMessage) error {
	var command commandFrame
	if err := json.Unmarshal(payload, &command); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}

	switch command.Command {
	case CommandSetActivity:
		record := command.Args.Activity.record()
		c.store.Upsert(c.identity, record)
		c.observer.ActivityUpdated()
		c.logger.Debug("activity updated",
			"state", record.State,
			"details", record.Details,
		)
	default:
		c.observer.CommandIgnored(command.Command)
		c.logger.Warn("ignoring unrecognized command", "cmd", command.Command)
	}
	return nil
}

// commandFrame is the shape of an opcode 1 payload. Absent fields
// decode as zero values; a field of the wrong JSON type fails the
// whole decode. Timestamps are kept raw because clients send them as
// numbers, strings, and nulls interchangeably.
type commandFrame struct {
	Command string `json:"cmd"`
	Args    struct {
		Activity activityArgs `json:"activity"`
	} `json:"args"`
}

type activityArgs struct {
	State   string `json:"state"`
	Details string `json:"details"`
	Assets  struct {
		LargeText  string `json:"large_text"`
		SmallText  string `json:"small_text"`
		LargeImage string `json:"large_image"`
		SmallImage string `json:"small_image"`
	} `json:"assets"`
	Timestamps struct {
		Start json.RawMessage `json:"start"`
		End   json.RawMessage `json:"end"`
	} `json:"timestamps"`
	Buttons []struct {
		Label string `json:"label"`
		URL   string `json:"url"`
	} `json:"buttons"`
}

func (a activityArgs) record() activity.Record {
	return activity.Record{
		LargeText: a.Assets.LargeText,
		SmallText: a.Assets.SmallText,
		State:     a.State,
		Details:   a.Details,
		StartTime: activity.NormalizeTimestamp(a.Timestamps.Start),
		EndTime:   activity.NormalizeTimestamp(a.Timestamps.End),
	}
}
