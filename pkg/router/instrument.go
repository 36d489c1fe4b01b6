// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"time"

	"github.com/BalalaykaJazz/mqtt-tbot/pkg/metrics"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/session"
)

// Instrumented wraps an Executor with Prometheus instrumentation.
type Instrumented struct {
	next     Executor
	sessions *session.Store
	metrics  *metrics.Metrics
}

var _ Executor = (*Instrumented)(nil)

// NewInstrumented creates a metrics-recording Executor decorator.
func NewInstrumented(next Executor, sessions *session.Store, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: next, sessions: sessions, metrics: m}
}

// Execute implements Executor.
func (i *Instrumented) Execute(ctx context.Context, chatID, text string) string {
	kind := Classify(text)
	start := time.Now()

	reply := i.next.Execute(ctx, chatID, text)

	i.metrics.CommandsTotal.WithLabelValues(kind, statusLabel(kind, reply)).Inc()
	i.metrics.CommandDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	i.metrics.ActiveSessions.Set(float64(i.sessions.Len()))

	if kind == KindAuth {
		i.metrics.AuthAttempts.Inc()
		if reply != MsgOK {
			i.metrics.AuthFailures.Inc()
		}
	}

	return reply
}

// statusLabel folds a reply into a bounded label set. Replies outside
// the fixed message table (raw publisher replies, sh output) count as
// success.
func statusLabel(kind, reply string) string {
	switch reply {
	case MsgFailed, MsgAuthFormat, MsgUnknownUser, MsgSignInFirst, MsgNoDevice:
		return "rejected"
	case MsgUnavailable:
		return "unavailable"
	case MsgTimeout:
		return "timeout"
	case MsgUnknownCommand:
		if kind == KindUnknown || kind == KindShow {
			return "unknown_command"
		}
		return "success"
	default:
		return "success"
	}
}
