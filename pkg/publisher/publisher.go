// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package publisher implements the line-protocol client for the mqtt
// publisher service. Each call opens a fresh connection, writes one
// payload, reads one reply and closes the connection. Call volume is
// bounded by human typing speed, so there is no pooling or reuse.
package publisher

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/BalalaykaJazz/mqtt-tbot/pkg/errors"
)

// replyBufferSize bounds a single publisher reply.
const replyBufferSize = 1024

// Deliverer performs one request/response round trip with the publisher.
type Deliverer interface {
	// Deliver writes the payload and returns the publisher's reply.
	// Connection failures map to errors.ErrUnavailable, exceeded
	// deadlines to errors.ErrTimeout.
	Deliver(ctx context.Context, payload []byte) (string, error)
}

// Config holds the publisher client configuration.
type Config struct {
	// Address is the publisher service address (host:port).
	Address string

	// TLSConfig is optional TLS configuration for outbound connections.
	TLSConfig *tls.Config

	// Timeout bounds the whole round trip: connect, write and read.
	Timeout time.Duration

	// Logger for transport events
	Logger *slog.Logger
}

// Client is the stateless publisher transport client.
type Client struct {
	config Config
}

var _ Deliverer = (*Client)(nil)

// New creates a new publisher client with the given configuration.
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{config: cfg}
}

// Deliver opens a connection, sends the payload as one write and reads
// one reply. The connection is closed on every exit path.
func (c *Client) Deliver(ctx context.Context, payload []byte) (string, error) {
	dialer := &net.Dialer{Timeout: c.config.Timeout}

	conn, err := dialer.DialContext(ctx, "tcp", c.config.Address)
	if err != nil {
		return "", errors.NewDelivery("dial", c.config.Address, classify(err))
	}
	defer conn.Close()

	deadline := time.Now().Add(c.config.Timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return "", errors.NewDelivery("deadline", c.config.Address, err)
	}

	if c.config.TLSConfig != nil {
		tlsConn := tls.Client(conn, c.config.TLSConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return "", errors.NewDelivery("handshake", c.config.Address, classify(err))
		}
		conn = tlsConn
	}

	if _, err := conn.Write(payload); err != nil {
		return "", errors.NewDelivery("write", c.config.Address, classify(err))
	}

	buf := make([]byte, replyBufferSize)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		return "", errors.NewDelivery("read", c.config.Address, classify(err))
	}

	reply := strings.TrimRight(string(buf[:n]), "\r\n")
	c.config.Logger.Debug("publisher round trip",
		slog.String("address", c.config.Address),
		slog.Int("request_bytes", len(payload)),
		slog.Int("reply_bytes", n))

	return reply, nil
}

// classify maps transport errors to the package error kinds. Deadline
// errors become ErrTimeout, everything else (refused connections,
// unreachable hosts, resets) becomes ErrUnavailable.
func classify(err error) error {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrap(errors.ErrTimeout, err.Error())
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrTimeout, err.Error())
	}
	return errors.Wrap(errors.ErrUnavailable, err.Error())
}
