// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/tidwall/gjson"
)

// Client is the connecting side of the protocol. It speaks to this
// package's server and to any other implementation of the same wire
// format.
type Client struct {
	conn net.Conn

	writeMu sync.Mutex
	nonce   uint64
}

// Activity is what a client publishes with SetActivity. Empty strings
// and nil timestamps are omitted from the frame.
type Activity struct {
	State      string           `json:"state,omitempty"`
	Details    string           `json:"details,omitempty"`
	Assets     *Assets          `json:"assets,omitempty"`
	Timestamps *Timestamps      `json:"timestamps,omitempty"`
	Buttons    []ActivityButton `json:"buttons,omitempty"`
}

// Assets carries image keys and their hover texts.
type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Timestamps are Unix times. The server accepts either seconds or
// milliseconds and infers the unit from the magnitude.
type Timestamps struct {
	Start *int64 `json:"start,omitempty"`
	End   *int64 `json:"end,omitempty"`
}

// ActivityButton is a labelled link shown under the activity.
type ActivityButton struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Dial connects to the presence socket at path.
func Dial(ctx context.Context, path string) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", path, err)
	}
	return &Client{conn: conn}, nil
}

// Handshake sends the handshake frame and waits for the READY
// dispatch. Any other reply is an error.
func (c *Client) Handshake(ctx context.Context, clientID string) error {
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	if err := c.write(OpcodeHandshake, map[string]any{"v": 1, "client_id": clientID}); err != nil {
		return fmt.Errorf("sending handshake: %w", err)
	}
	frame, err := ReadFrame(c.conn)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("reading handshake reply: %w", err)
	}
	reply := gjson.ParseBytes(frame.Payload)
	if frame.Opcode != OpcodeFrame ||
		reply.Get("cmd").String() != CommandDispatch ||
		reply.Get("evt").String() != EventReady {
		return fmt.Errorf("unexpected handshake reply (opcode %d): %s", frame.Opcode, frame.Payload)
	}
	return nil
}

// SetActivity publishes activity for this connection, replacing any
// previous one. The server does not reply.
func (c *Client) SetActivity(activity Activity) error {
	c.writeMu.Lock()
	c.nonce++
	nonce := strconv.FormatUint(c.nonce, 10)
	c.writeMu.Unlock()

	command := map[string]any{
		"cmd":   CommandSetActivity,
		"nonce": nonce,
		"args": map[string]any{
			"pid":      os.Getpid(),
			"activity": activity,
		},
	}
	if err := c.write(OpcodeFrame, command); err != nil {
		return fmt.Errorf("sending activity: %w", err)
	}
	return nil
}

// Wait blocks until the server closes the connection or ctx is
// cancelled, discarding any frames the server sends. It returns nil
// for a clean close.
func (c *Client) Wait(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()
	for {
		if _, err := ReadFrame(c.conn); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Close closes the connection. The server drops this client's
// activity when it sees the close.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) write(opcode uint32, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteFrame(c.conn, Frame{Opcode: opcode, Payload: data})
}
