// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

const (
	// lookback is the fixed reporting window.
	lookback = "-24h"

	// measurement carries the device heartbeat samples.
	measurement = "sys_online"
)

// InfluxSampler queries InfluxDB for device heartbeats. The bucket name
// is the reporting subject (the authenticated user).
type InfluxSampler struct {
	client influxdb2.Client
	org    string
}

var _ Sampler = (*InfluxSampler)(nil)

// NewInfluxSampler creates a sampler against the given InfluxDB server.
func NewInfluxSampler(url, token, org string) *InfluxSampler {
	return &InfluxSampler{
		client: influxdb2.NewClient(url, token),
		org:    org,
	}
}

// LastSeen implements Sampler. It returns the last sample per reported
// identity within the lookback window.
func (s *InfluxSampler) LastSeen(ctx context.Context, subject string) ([]Sample, error) {
	query := fmt.Sprintf(`from(bucket:%q)
|> range(start: %s)
|> filter(fn: (r) => r._measurement == %q)
|> group(columns: ["_value"], mode: "by")
|> last()`, subject, lookback, measurement)

	result, err := s.client.QueryAPI(s.org).Query(ctx, query)
	if err != nil {
		return nil, err
	}

	var samples []Sample
	for result.Next() {
		record := result.Record()
		name, _ := record.Value().(string)
		samples = append(samples, Sample{Name: name, At: record.Time()})
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// Ping reports whether the database is reachable.
func (s *InfluxSampler) Ping(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("influxdb did not respond to ping")
	}
	return nil
}

// Close releases the underlying client resources.
func (s *InfluxSampler) Close() {
	s.client.Close()
}
