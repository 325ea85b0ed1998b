// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/bureau-foundation/presenced/lib/netutil"
)

// DeliveryError is a non-2xx reply from the sink.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sink responded %d", e.StatusCode)
	}
	return fmt.Sprintf("sink responded %d: %s", e.StatusCode, e.Body)
}

// HTTPSinkConfig holds the parameters for NewHTTPSink.
type HTTPSinkConfig struct {
	// Upstream is the sink's base URL. Snapshots go to
	// <Upstream>/state. Required.
	Upstream string

	// Token is sent with every snapshot.
	Token string

	// Timeout bounds each delivery. Default: 5s.
	Timeout time.Duration

	// Encoding compresses request bodies. Default: identity.
	Encoding string

	// Client overrides the HTTP client, for tests.
	Client *http.Client
}

// HTTPSink POSTs snapshots to a presence-http server.
type HTTPSink struct {
	endpoint string
	token    string
	timeout  time.Duration
	encoding string
	client   *http.Client
}

// NewHTTPSink validates config and returns a sink.
func NewHTTPSink(config HTTPSinkConfig) (*HTTPSink, error) {
	base, err := url.Parse(config.Upstream)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("upstream %q is not an absolute URL", config.Upstream)
	}
	if _, err := EncodeBody(config.Encoding, nil); err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := config.Client
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
		client.Timeout = timeout
	}
	encoding := config.Encoding
	if encoding == "" {
		encoding = EncodingIdentity
	}

	return &HTTPSink{
		endpoint: strings.TrimRight(config.Upstream, "/") + "/state",
		token:    config.Token,
		timeout:  timeout,
		encoding: encoding,
		client:   client,
	}, nil
}

// Endpoint returns the URL snapshots are posted to.
func (s *HTTPSink) Endpoint() string { return s.endpoint }

// Deliver posts one snapshot. A non-2xx reply is a *DeliveryError.
func (s *HTTPSink) Deliver(ctx context.Context, states []PresenceState) error {
	if states == nil {
		states = []PresenceState{}
	}
	payload, err := json.Marshal(StateUpdate{Token: s.token, State: states})
	if err != nil {
		return fmt.Errorf("marshaling state update: %w", err)
	}
	body, err := EncodeBody(s.encoding, payload)
	if err != nil {
		return fmt.Errorf("encoding state update: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if s.encoding != EncodingIdentity {
		request.Header.Set("Content-Encoding", s.encoding)
	}

	response, err := s.client.Do(request)
	if err != nil {
		return fmt.Errorf("posting to %s: %w", s.endpoint, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return &DeliveryError{
			StatusCode: response.StatusCode,
			Body:       strings.TrimSpace(netutil.ErrorBody(response.Body)),
		}
	}
	// Drain so the connection returns to the pool.
	io.Copy(io.Discard, io.LimitReader(response.Body, netutil.MaxBodySize))
	return nil
}
