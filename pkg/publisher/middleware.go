// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package publisher

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/BalalaykaJazz/mqtt-tbot/pkg/breaker"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/errors"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/metrics"
)

// BreakerClient guards a Deliverer with a circuit breaker. An open
// circuit is reported as errors.ErrUnavailable, so callers show the
// same service-unavailable reply without hammering a dead publisher.
type BreakerClient struct {
	next Deliverer
	cb   *breaker.CircuitBreaker
}

var _ Deliverer = (*BreakerClient)(nil)

// WithBreaker wraps a Deliverer with the given circuit breaker.
func WithBreaker(next Deliverer, cb *breaker.CircuitBreaker) *BreakerClient {
	return &BreakerClient{next: next, cb: cb}
}

// Deliver implements Deliverer.
func (b *BreakerClient) Deliver(ctx context.Context, payload []byte) (string, error) {
	var reply string
	err := b.cb.Call(func() error {
		var callErr error
		reply, callErr = b.next.Deliver(ctx, payload)
		return callErr
	})
	if stderrors.Is(err, breaker.ErrCircuitOpen) {
		return "", errors.Wrap(errors.ErrUnavailable, err.Error())
	}
	return reply, err
}

// InstrumentedClient records Prometheus metrics for publisher calls.
type InstrumentedClient struct {
	next    Deliverer
	metrics *metrics.Metrics
}

var _ Deliverer = (*InstrumentedClient)(nil)

// WithMetrics wraps a Deliverer with metrics instrumentation.
func WithMetrics(next Deliverer, m *metrics.Metrics) *InstrumentedClient {
	return &InstrumentedClient{next: next, metrics: m}
}

// Deliver implements Deliverer.
func (i *InstrumentedClient) Deliver(ctx context.Context, payload []byte) (string, error) {
	start := time.Now()

	reply, err := i.next.Deliver(ctx, payload)

	status := "success"
	switch {
	case stderrors.Is(err, errors.ErrTimeout):
		status = "timeout"
	case err != nil:
		status = "unavailable"
	}
	i.metrics.PublisherRequestsTotal.WithLabelValues(status).Inc()
	i.metrics.PublisherDuration.Observe(time.Since(start).Seconds())

	return reply, err
}
