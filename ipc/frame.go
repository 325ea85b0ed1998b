// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Opcodes understood by the server. Any other opcode after the
// handshake is logged and ignored.
const (
	// OpcodeHandshake must be the first frame on every connection.
	// Payload: {"v": 1, "client_id": "..."}.
	OpcodeHandshake uint32 = 0

	// OpcodeFrame carries a command in either direction.
	OpcodeFrame uint32 = 1
)

// MaxPayloadLength is the largest payload a frame may carry, in bytes.
const MaxPayloadLength = 1_000_000

// frameHeaderLength is 4 bytes opcode + 4 bytes payload length, both
// little-endian.
const frameHeaderLength = 8

// Command and event names.
const (
	CommandSetActivity = "SET_ACTIVITY"
	CommandDispatch    = "DISPATCH"
	EventReady         = "READY"
)

// Frame decode and encode failures. Each is fatal to the connection
// that produced it; the stream is never resynchronized.
var (
	ErrTruncated       = errors.New("frame truncated")
	ErrPayloadTooLarge = errors.New("frame payload too large")
	ErrInvalidUTF8     = errors.New("frame payload is not valid UTF-8")
	ErrInvalidJSON     = errors.New("frame payload is not valid JSON")
	ErrIO              = errors.New("frame I/O failed")
)

// Frame is one protocol message.
type Frame struct {
	Opcode  uint32
	Payload json.RawMessage
}

// NewFrame marshals payload to JSON and wraps it in a frame.
func NewFrame(opcode uint32, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("marshaling frame payload: %w", err)
	}
	return Frame{Opcode: opcode, Payload: data}, nil
}

// ReadFrame reads one frame from r.
//
// A stream that ends before the first header byte returns io.EOF
// unwrapped, so callers can tell a graceful close from a broken one.
// A stream that ends anywhere later returns ErrTruncated. The declared
// length is checked against MaxPayloadLength before any payload byte
// is read.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [frameHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return Frame{}, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return Frame{}, fmt.Errorf("%w: reading frame header: %w", ErrTruncated, err)
		default:
			return Frame{}, fmt.Errorf("%w: reading frame header: %w", ErrIO, err)
		}
	}

	opcode := binary.LittleEndian.Uint32(header[0:4])
	length := binary.LittleEndian.Uint32(header[4:8])
	if length > MaxPayloadLength {
		return Frame{}, fmt.Errorf("%w: declared length %d exceeds %d", ErrPayloadTooLarge, length, MaxPayloadLength)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, fmt.Errorf("%w: reading %d-byte payload: %w", ErrTruncated, length, err)
		}
		return Frame{}, fmt.Errorf("%w: reading frame payload: %w", ErrIO, err)
	}

	if !utf8.Valid(payload) {
		return Frame{}, ErrInvalidUTF8
	}
	if !json.Valid(payload) {
		return Frame{}, ErrInvalidJSON
	}
	return Frame{Opcode: opcode, Payload: payload}, nil
}

// WriteFrame writes f to w as a single Write call, so concurrent
// writers to one stream never interleave partial frames.
func WriteFrame(w io.Writer, f Frame) error {
	if len(f.Payload) > MaxPayloadLength {
		return fmt.Errorf("%w: payload is %d bytes, limit %d", ErrPayloadTooLarge, len(f.Payload), MaxPayloadLength)
	}
	buffer := make([]byte, frameHeaderLength+len(f.Payload))
	binary.LittleEndian.PutUint32(buffer[0:4], f.Opcode)
	binary.LittleEndian.PutUint32(buffer[4:8], uint32(len(f.Payload)))
	copy(buffer[frameHeaderLength:], f.Payload)
	if _, err := w.Write(buffer); err != nil {
		return fmt.Errorf("%w: writing frame: %w", ErrIO, err)
	}
	return nil
}
