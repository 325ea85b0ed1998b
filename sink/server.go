// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/presenced/lib/metrics"
	"github.com/bureau-foundation/presenced/lib/netutil"
	"github.com/bureau-foundation/presenced/publish"
)

// Config holds the parameters for New.
type Config struct {
	// State holds the snapshot. POST /state writes it; the views
	// read it. Required.
	State *publish.MemorySink

	// Token must match every update. Required unless ReadOnly.
	Token string

	// ConstantTimeToken compares tokens in constant time.
	ConstantTimeToken bool

	// ReadOnly omits POST /state. The snapshot is then fed in
	// process.
	ReadOnly bool

	// Metrics adds GET /metrics and counts updates. May be nil.
	Metrics *metrics.Metrics

	// Logger receives request logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server is an http.Handler serving the sink routes.
type Server struct {
	echo    *echo.Echo
	state   *publish.MemorySink
	view    *view
	token   []byte
	compare func(got, want []byte) bool
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds the router.
func New(config Config) (*Server, error) {
	if config.State == nil {
		return nil, errors.New("sink: State is required")
	}
	if !config.ReadOnly && config.Token == "" {
		return nil, errors.New("sink: Token is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	view, err := newView()
	if err != nil {
		return nil, fmt.Errorf("compiling view template: %w", err)
	}

	server := &Server{
		echo:    echo.New(),
		state:   config.State,
		view:    view,
		token:   []byte(config.Token),
		compare: plainEqual,
		metrics: config.Metrics,
		logger:  logger.With("component", "sink"),
	}
	if config.ConstantTimeToken {
		server.compare = constantTimeEqual
	}

	e := server.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(slogecho.New(server.logger))
	e.Use(middleware.Recover())

	e.GET("/", server.handleIndex)
	e.GET("/state.json", server.handleStateJSON)
	e.GET("/_health", server.handleHealth)
	if !config.ReadOnly {
		e.POST("/state", server.handleUpdate)
	}
	if config.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(config.Metrics.Handler()))
	}
	return server, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) handleIndex(c echo.Context) error {
	states, lastUpdated := s.state.Load()
	body, err := s.view.render(states, lastUpdated)
	if err != nil {
		return fmt.Errorf("rendering view: %w", err)
	}

	sum := blake3.Sum256(body)
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`
	c.Response().Header().Set("ETag", etag)
	c.Response().Header().Set("Cache-Control", "no-cache")
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}
	return c.HTMLBlob(http.StatusOK, body)
}

// stateDocument is the body of GET /state.json.
type stateDocument struct {
	LastUpdated string                  `json:"last_updated"`
	State       []publish.PresenceState `json:"state"`
}

func (s *Server) handleStateJSON(c echo.Context) error {
	states, lastUpdated := s.state.Load()
	return c.JSON(http.StatusOK, stateDocument{
		LastUpdated: lastUpdated.Local().Format(time.RFC3339Nano),
		State:       states,
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpdate(c echo.Context) error {
	request := c.Request()
	body, err := publish.DecodeBody(request.Header.Get("Content-Encoding"), request.Body)
	if err != nil {
		s.metrics.SinkUpdate("invalid")
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	}
	defer body.Close()

	data, err := netutil.ReadBody(body)
	if err != nil {
		s.metrics.SinkUpdate("invalid")
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("reading body: %v", err))
	}
	var update publish.StateUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		s.metrics.SinkUpdate("invalid")
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("decoding state update: %v", err))
	}

	if !s.compare([]byte(update.Token), s.token) {
		s.metrics.SinkUpdate("unauthorized")
		s.logger.Warn("rejected state update with wrong token", "remote", c.RealIP())
		return c.NoContent(http.StatusUnauthorized)
	}

	if err := s.state.Deliver(request.Context(), update.State); err != nil {
		return err
	}
	s.metrics.SinkUpdate("ok")
	return c.NoContent(http.StatusOK)
}

func plainEqual(got, want []byte) bool {
	return string(got) == string(want)
}

func constantTimeEqual(got, want []byte) bool {
	return subtle.ConstantTimeCompare(got, want) == 1
}
