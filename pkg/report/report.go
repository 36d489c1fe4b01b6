// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package report answers the "sh online" command from the time-series
// database.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// timeLayout renders the last-seen timestamp.
	timeLayout = "02.01.2006 15:04:05"

	// displayOffset shifts reported timestamps into the operators'
	// wall-clock zone.
	displayOffset = 3 * time.Hour
)

// Sample is one reported device identity with its sample time.
type Sample struct {
	Name string
	At   time.Time
}

// Sampler is the time-series collaborator. Implementations query the
// database for devices seen within the fixed lookback window.
type Sampler interface {
	LastSeen(ctx context.Context, subject string) ([]Sample, error)
}

// Reporter formats online-device listings for chat replies.
type Reporter struct {
	db     Sampler
	logger *slog.Logger
}

// New creates a new Reporter. The sampler may be nil, in which case
// every listing is empty.
func New(db Sampler, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{db: db, logger: logger}
}

// ListOnline returns one formatted line per device seen in the lookback
// window, keeping the single most recent sample per device. A missing
// subject, a collaborator error or an empty result all yield an empty
// list, never an error.
func (r *Reporter) ListOnline(ctx context.Context, subject string) []string {
	if subject == "" || r.db == nil {
		return nil
	}

	samples, err := r.db.LastSeen(ctx, subject)
	if err != nil {
		r.logger.Info("online lookup failed",
			slog.String("subject", subject),
			slog.String("error", err.Error()))
		return nil
	}

	latest := make(map[string]time.Time, len(samples))
	order := make([]string, 0, len(samples))
	for _, s := range samples {
		if s.Name == "" {
			continue
		}
		prev, seen := latest[s.Name]
		if !seen {
			order = append(order, s.Name)
		}
		if !seen || s.At.After(prev) {
			latest[s.Name] = s.At
		}
	}

	lines := make([]string, 0, len(order))
	for _, name := range order {
		ts := latest[name].Add(displayOffset).Format(timeLayout)
		lines = append(lines, fmt.Sprintf("device: %s, last time: %s", name, ts))
	}
	return lines
}
