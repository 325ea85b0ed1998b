// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics holds the Prometheus collectors shared by the
// presenced daemon and the presence-http sink.
//
// Collectors are registered on a caller-supplied registry rather than
// the global default, so tests can build as many independent sets as
// they like. Every method is safe on a nil *Metrics, which lets
// callers that do not export metrics pass nil.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the full collector set.
type Metrics struct {
	registry *prometheus.Registry

	connectionsActive prometheus.Gauge
	connectionsTotal  *prometheus.CounterVec
	framesReceived    *prometheus.CounterVec
	activityUpdates   prometheus.Counter
	commandsIgnored   prometheus.Counter

	publishes        *prometheus.CounterVec
	publishedRecords prometheus.Gauge

	sinkUpdates *prometheus.CounterVec
}

// New registers every collector on a fresh registry, along with the
// Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "presenced_connections_active",
			Help: "IPC connections currently being served",
		}),
		connectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "presenced_connections_total",
			Help: "IPC connections served to completion, by how they ended",
		}, []string{"result"}),
		framesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "presenced_frames_received_total",
			Help: "Frames decoded from IPC clients, by opcode class",
		}, []string{"opcode"}),
		activityUpdates: factory.NewCounter(prometheus.CounterOpts{
			Name: "presenced_activity_updates_total",
			Help: "SET_ACTIVITY commands applied to the store",
		}),
		commandsIgnored: factory.NewCounter(prometheus.CounterOpts{
			Name: "presenced_commands_ignored_total",
			Help: "Command frames with an unrecognized cmd",
		}),
		publishes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "presenced_publishes_total",
			Help: "Snapshot deliveries to the sink, by result",
		}, []string{"result"}),
		publishedRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "presenced_published_records",
			Help: "Records in the most recent snapshot delivered",
		}),
		sinkUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_sink_updates_total",
			Help: "State updates received by the HTTP sink, by result",
		}, []string{"result"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ConnectionOpened implements ipc.Observer.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connectionsActive.Inc()
}

// ConnectionClosed implements ipc.Observer.
func (m *Metrics) ConnectionClosed(err error) {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
	result := "error"
	if err == nil {
		result = "clean"
	}
	m.connectionsTotal.WithLabelValues(result).Inc()
}

// FrameReceived implements ipc.Observer. Opcodes are bucketed so a
// misbehaving client cannot mint label values.
func (m *Metrics) FrameReceived(opcode uint32) {
	if m == nil {
		return
	}
	class := "other"
	switch opcode {
	case 0:
		class = "handshake"
	case 1:
		class = "frame"
	}
	m.framesReceived.WithLabelValues(class).Inc()
}

// ActivityUpdated implements ipc.Observer.
func (m *Metrics) ActivityUpdated() {
	if m == nil {
		return
	}
	m.activityUpdates.Inc()
}

// CommandIgnored implements ipc.Observer.
func (m *Metrics) CommandIgnored(string) {
	if m == nil {
		return
	}
	m.commandsIgnored.Inc()
}

// PublishSucceeded records a delivered snapshot of n records.
func (m *Metrics) PublishSucceeded(records int) {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues("ok").Inc()
	m.publishedRecords.Set(float64(records))
}

// PublishFailed records a dropped snapshot.
func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues("failed").Inc()
}

// SinkUpdate records a state update received by the sink. result is
// one of "ok", "unauthorized", or "invalid".
func (m *Metrics) SinkUpdate(result string) {
	if m == nil {
		return
	}
	m.sinkUpdates.WithLabelValues(result).Inc()
}
