// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	mqtttbot "github.com/BalalaykaJazz/mqtt-tbot"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/auth"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/bot"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/breaker"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/health"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/metrics"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/publisher"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/ratelimit"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/report"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/router"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/session"
)

const envPrefix = "MQTT_TBOT_"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	logger := slog.New(logHandler)

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file found, using environment variables")
	}

	cfg, err := mqtttbot.NewConfig(env.Options{Prefix: envPrefix})
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	m := metrics.New("mqtt_tbot")

	// Publisher transport: plain client, circuit breaker, metrics.
	client := publisher.New(publisher.Config{
		Address:   cfg.PublisherAddress(),
		TLSConfig: cfg.TLSConfig,
		Timeout:   cfg.DeliverTimeout,
		Logger:    logger,
	})
	cb := breaker.New(breaker.Config{})
	cb.OnStateChange(func(from, to breaker.State) {
		logger.Warn("publisher circuit state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()))
	})
	deliverer := publisher.WithMetrics(publisher.WithBreaker(client, cb), m)

	store := session.NewStore()
	authn := auth.New(deliverer, logger)

	var sampler *report.InfluxSampler
	var reporter *report.Reporter
	if cfg.DBURL != "" {
		sampler = report.NewInfluxSampler(cfg.DBURL, cfg.DBToken, cfg.DBOrg)
		defer sampler.Close()
		reporter = report.New(sampler, logger)
	} else {
		logger.Warn("time-series database not configured, sh online disabled")
		reporter = report.New(nil, logger)
	}

	r := router.New(router.Config{Logger: logger}, store, authn, deliverer, reporter)
	exec := router.NewInstrumented(r, store, m)

	limiter := ratelimit.NewLimiter(cfg.RateLimitBurst, cfg.RateLimitRate)

	b, err := bot.New(bot.Config{
		Token:       cfg.BotToken,
		PollTimeout: cfg.PollTimeout,
		Logger:      logger,
	}, exec, limiter, m)
	if err != nil {
		logger.Error("failed to connect to telegram", slog.String("error", err.Error()))
		os.Exit(1)
	}

	g.Go(func() error {
		return b.Run(ctx)
	})

	g.Go(func() error {
		return serveHTTP(ctx, cfg, sampler, logger)
	})

	g.Go(func() error {
		return StopSignalHandler(ctx, cancel, logger)
	})

	logger.Info("service started", slog.String("bot", cfg.BotName))

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("mqtt-tbot service terminated with error: %s", err))
	} else {
		logger.Info("mqtt-tbot service stopped")
	}
}

// serveHTTP exposes health probes and Prometheus metrics.
func serveHTTP(ctx context.Context, cfg mqtttbot.Config, sampler *report.InfluxSampler, logger *slog.Logger) error {
	checker := health.NewChecker(10 * time.Second)
	checker.Register("publisher", health.DialCheck(cfg.PublisherAddress(), 5*time.Second))
	if sampler != nil {
		checker.Register("influxdb", sampler.Ping)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", checker.HTTPHandler())
	mux.HandleFunc("/live", health.LivenessHandler())
	mux.HandleFunc("/ready", checker.ReadinessHandler())

	srv := &http.Server{Addr: cfg.HTTPAddress, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown failed", slog.String("error", err.Error()))
		}
	}()

	logger.Info("http server started", slog.String("address", cfg.HTTPAddress))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func StopSignalHandler(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger) error {
	c := make(chan os.Signal, 2)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-c:
		logger.Info("received shutdown signal")
		cancel()
		return nil
	case <-ctx.Done():
		return nil
	}
}
