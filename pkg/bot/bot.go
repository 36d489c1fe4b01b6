// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package bot adapts Telegram long polling to the command router:
// receive text from a chat, execute, deliver the reply text back.
package bot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/BalalaykaJazz/mqtt-tbot/pkg/metrics"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/ratelimit"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/router"
)

const welcome = `Available commands:
auth <user>:<password> - sign in
set dev <device> - choose the target device
sh <topic|dev|user|auth|online> - show session state
send <text> - deliver a message to the selected device`

// Config holds the bot configuration.
type Config struct {
	// Token is the Telegram bot credential.
	Token string

	// PollTimeout is the long-poll timeout.
	PollTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for in-flight
	// commands to drain after the context is cancelled.
	ShutdownTimeout time.Duration

	// Logger for transport events
	Logger *slog.Logger
}

// Bot is the Telegram chat transport.
type Bot struct {
	config  Config
	api     *tgbotapi.BotAPI
	exec    router.Executor
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

// New creates a new Bot. The limiter and metrics may be nil.
func New(cfg Config, exec router.Executor, limiter *ratelimit.Limiter, m *metrics.Metrics) (*Bot, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	return &Bot{
		config:  cfg,
		api:     api,
		exec:    exec,
		limiter: limiter,
		metrics: m,
	}, nil
}

// Run polls Telegram for updates until the context is cancelled. Each
// message is handled in its own goroutine: different chats run in
// parallel, while commands for the same chat serialize on the session
// lock inside the router.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(b.config.PollTimeout.Seconds())
	updates := b.api.GetUpdatesChan(u)

	b.config.Logger.Info("bot started", slog.String("account", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return b.drain()

		case update, ok := <-updates:
			if !ok {
				return b.drain()
			}
			msg := update.Message
			if msg == nil || msg.Text == "" {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handle(ctx, msg)
			}(msg)
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg *tgbotapi.Message) {
	eventID := uuid.New().String()
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	text := strings.TrimSpace(msg.Text)

	if text == "/start" || text == "/help" {
		b.reply(msg.Chat.ID, welcome)
		return
	}

	if b.limiter != nil && !b.limiter.Allow(chatID) {
		if b.metrics != nil {
			b.metrics.RateLimitedMessages.Inc()
		}
		b.config.Logger.Warn("rate limited",
			slog.String("event", eventID),
			slog.String("chat", chatID))
		b.reply(msg.Chat.ID, router.MsgTooManyRequests)
		return
	}

	b.config.Logger.Debug("command received",
		slog.String("event", eventID),
		slog.String("chat", chatID))

	reply := b.exec.Execute(ctx, chatID, text)
	b.reply(msg.Chat.ID, reply)
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.config.Logger.Error("failed to send reply",
			slog.Int64("chat", chatID),
			slog.String("error", err.Error()))
	}
}

// drain waits for in-flight commands to finish, bounded by the
// configured shutdown timeout.
func (b *Bot) drain() error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.config.Logger.Info("all commands finished")
		return nil
	case <-time.After(b.config.ShutdownTimeout):
		b.config.Logger.Warn("shutdown timeout exceeded, abandoning in-flight commands")
		return nil
	}
}
