// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package mqtttbot provides configuration for the chat-to-MQTT relay bot.
package mqtttbot

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the service configuration, loaded from the environment.
type Config struct {
	// PublisherHost is the host of the mqtt publisher service.
	PublisherHost string `env:"PUBLISHER_HOST" envDefault:"127.0.0.1"`

	// PublisherPort is the port of the mqtt publisher service.
	PublisherPort string `env:"PUBLISHER_PORT" envDefault:"5000"`

	// UseTLS enables TLS for publisher connections.
	UseTLS bool `env:"USE_TLS" envDefault:"false"`

	// CACertFile is the PEM trust anchor used when UseTLS is set.
	CACertFile string `env:"CA_CERT_FILE" envDefault:"settings/server_cert.pem"`

	// DeliverTimeout bounds one publisher round trip (connect + read).
	DeliverTimeout time.Duration `env:"DELIVER_TIMEOUT" envDefault:"30s"`

	// BotName is a free-form name for the Telegram bot.
	BotName string `env:"BOT_NAME" envDefault:"unknown bot"`

	// BotToken is the Telegram bot credential. Required.
	BotToken string `env:"BOT_TOKEN"`

	// PollTimeout is the Telegram long-poll timeout.
	PollTimeout time.Duration `env:"POLL_TIMEOUT" envDefault:"30s"`

	// DBURL is the time-series database address used by "sh online".
	// Reporting is disabled when empty.
	DBURL string `env:"DB_URL"`

	// DBToken is the time-series database access token.
	DBToken string `env:"DB_TOKEN"`

	// DBOrg is the organization owning the time-series database.
	DBOrg string `env:"DB_ORG"`

	// HTTPAddress is the listen address for health and metrics endpoints.
	HTTPAddress string `env:"HTTP_ADDRESS" envDefault:":8091"`

	// RateLimitBurst is the per-chat command burst size.
	RateLimitBurst int64 `env:"RATE_LIMIT_BURST" envDefault:"5"`

	// RateLimitRate is the per-chat refill rate in commands per second.
	RateLimitRate int64 `env:"RATE_LIMIT_RATE" envDefault:"1"`

	// TLSConfig is built from CACertFile when UseTLS is set.
	TLSConfig *tls.Config `env:"-"`
}

// NewConfig loads configuration from the environment with the given options.
func NewConfig(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.BotToken == "" {
		return Config{}, fmt.Errorf("bot token is not configured")
	}

	if cfg.UseTLS {
		pem, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read CA certificate %s: %w", cfg.CACertFile, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return Config{}, fmt.Errorf("no valid certificates in %s", cfg.CACertFile)
		}
		cfg.TLSConfig = &tls.Config{RootCAs: pool}
	}

	return cfg, nil
}

// PublisherAddress returns the publisher host:port.
func (c Config) PublisherAddress() string {
	return net.JoinHostPort(c.PublisherHost, c.PublisherPort)
}
