// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes relay and assembly counters in the
// Prometheus format.
//
// Each Metrics value owns its registry, so tests and multiple relays in
// one process do not collide on the global default registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/titlepack/titlepack/lib/bundle"
)

const namespace = "titlepack"

// Metrics holds the relay's collectors. It implements bundle.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	entries         *prometheus.CounterVec
	entryBytes      *prometheus.CounterVec
	ticketsMissing  prometheus.Counter
	assemblies      *prometheus.CounterVec
	inFlight        prometheus.Gauge
	rateLimited     prometheus.Counter
}

var _ bundle.Recorder = (*Metrics)(nil)

// New creates and registers every collector, plus the Go runtime and
// process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		}, []string{"endpoint", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time from request arrival to the last response byte.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 900},
		}, []string{"endpoint"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_entries_total",
			Help:      "Archive entries written, by kind.",
		}, []string{"kind"}),
		entryBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_entry_bytes_total",
			Help:      "Entry bytes written into archives, by kind.",
		}, []string{"kind"}),
		ticketsMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_missing_total",
			Help:      "Archives assembled without a ticket.",
		}),
		assemblies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assemblies_total",
			Help:      "Archive assemblies by outcome.",
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "assemblies_in_flight",
			Help:      "Archives currently being streamed.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests refused by the per-client rate limiter.",
		}),
	}
	registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.entries,
		m.entryBytes,
		m.ticketsMissing,
		m.assemblies,
		m.inFlight,
		m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// EntryWritten implements bundle.Recorder.
func (m *Metrics) EntryWritten(kind bundle.EntryKind, bytes int64) {
	m.entries.WithLabelValues(string(kind)).Inc()
	m.entryBytes.WithLabelValues(string(kind)).Add(float64(bytes))
}

// TicketMissing implements bundle.Recorder.
func (m *Metrics) TicketMissing() {
	m.ticketsMissing.Inc()
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(endpoint string, code int, elapsed time.Duration) {
	m.requests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// AssemblyStarted increments the in-flight gauge and returns a function
// that records the outcome ("ok", "aborted", or "rejected") and
// decrements it.
func (m *Metrics) AssemblyStarted() func(outcome string) {
	m.inFlight.Inc()
	return func(outcome string) {
		m.inFlight.Dec()
		m.assemblies.WithLabelValues(outcome).Inc()
	}
}

// RateLimited records a refused request.
func (m *Metrics) RateLimited() {
	m.rateLimited.Inc()
}
