// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package metrics provides Prometheus instrumentation for mqtt-tbot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for mqtt-tbot.
type Metrics struct {
	// Command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Publisher backend metrics
	PublisherRequestsTotal *prometheus.CounterVec
	PublisherDuration      prometheus.Histogram

	// Auth metrics
	AuthAttempts prometheus.Counter
	AuthFailures prometheus.Counter

	// Session metrics
	ActiveSessions prometheus.Gauge

	// Rate limiter metrics
	RateLimitedMessages prometheus.Counter
}

// New creates a new Metrics instance with all counters, gauges, and histograms.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "mqtt_tbot"
	}

	return &Metrics{
		CommandsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Total number of chat commands processed",
			},
			[]string{"kind", "status"},
		),
		CommandDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Command handling duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		PublisherRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publisher_requests_total",
				Help:      "Total number of publisher round trips",
			},
			[]string{"status"},
		),
		PublisherDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "publisher_duration_seconds",
				Help:      "Publisher round trip duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		AuthAttempts: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_attempts_total",
				Help:      "Total number of authentication attempts",
			},
		),
		AuthFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_failures_total",
				Help:      "Total number of failed authentication attempts",
			},
		),
		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Number of sessions in the store",
			},
		),
		RateLimitedMessages: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_messages_total",
				Help:      "Total number of messages dropped by the per-chat rate limiter",
			},
		),
	}
}
