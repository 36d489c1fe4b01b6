// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit provides per-chat flood control using token buckets.
package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket implements the token bucket algorithm.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   int64
	tokens     int64
	refillRate int64 // tokens per second
	lastRefill time.Time
}

// NewTokenBucket creates a new token bucket with the given capacity and
// refill rate in tokens per second.
func NewTokenBucket(capacity, refillRate int64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow reports whether one more request should be allowed.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()

	add := int64(elapsed * float64(tb.refillRate))
	if add > 0 {
		tb.tokens += add
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastRefill = now
	}
}

// Limiter tracks one token bucket per chat. Chats are bounded by the
// number of humans talking to the bot, so buckets are kept for the
// process lifetime like sessions are.
type Limiter struct {
	mu         sync.RWMutex
	buckets    map[string]*TokenBucket
	capacity   int64
	refillRate int64
}

// NewLimiter creates a per-chat rate limiter.
func NewLimiter(capacity, refillRate int64) *Limiter {
	return &Limiter{
		buckets:    make(map[string]*TokenBucket),
		capacity:   capacity,
		refillRate: refillRate,
	}
}

// Allow reports whether a message from the given chat should be handled.
func (l *Limiter) Allow(chatID string) bool {
	l.mu.RLock()
	tb, ok := l.buckets[chatID]
	l.mu.RUnlock()

	if !ok {
		l.mu.Lock()
		// Double-check after acquiring the write lock
		tb, ok = l.buckets[chatID]
		if !ok {
			tb = NewTokenBucket(l.capacity, l.refillRate)
			l.buckets[chatID] = tb
		}
		l.mu.Unlock()
	}

	return tb.Allow()
}
