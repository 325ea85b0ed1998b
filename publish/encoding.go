// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Body encodings for snapshot uploads, as sent in Content-Encoding.
// Identity is what the reference sink expects; the others need a sink
// that decodes them, which presence-http does.
const (
	EncodingIdentity = "identity"
	EncodingGzip     = "gzip"
	EncodingZstd     = "zstd"
	EncodingLZ4      = "lz4"
)

// EncodeBody compresses data with the named encoding. The empty
// string is identity.
func EncodeBody(encoding string, data []byte) ([]byte, error) {
	switch encoding {
	case "", EncodingIdentity:
		return data, nil
	case EncodingGzip:
		var buffer bytes.Buffer
		writer := gzip.NewWriter(&buffer)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return buffer.Bytes(), nil
	case EncodingZstd:
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer encoder.Close()
		return encoder.EncodeAll(data, nil), nil
	case EncodingLZ4:
		var buffer bytes.Buffer
		writer := lz4.NewWriter(&buffer)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		return buffer.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported body encoding %q", encoding)
	}
}

// DecodeBody wraps r to undo the named encoding. The caller closes
// the returned reader.
func DecodeBody(encoding string, r io.Reader) (io.ReadCloser, error) {
	switch encoding {
	case "", EncodingIdentity:
		return io.NopCloser(r), nil
	case EncodingGzip:
		reader, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return reader, nil
	case EncodingZstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return decoder.IOReadCloser(), nil
	case EncodingLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unsupported body encoding %q", encoding)
	}
}
