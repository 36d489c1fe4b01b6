// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealth(t *testing.T) {
	checker := NewChecker(time.Minute)
	checker.Register("ok", func(ctx context.Context) error { return nil })

	status, checks := checker.Health(context.Background())
	if status != StatusHealthy {
		t.Errorf("status = %v, want healthy", status)
	}
	if len(checks) != 1 || checks[0].Status != StatusHealthy {
		t.Errorf("checks = %+v", checks)
	}
}

func TestHealth_Degraded(t *testing.T) {
	checker := NewChecker(time.Minute)
	checker.Register("ok", func(ctx context.Context) error { return nil })
	checker.Register("bad", func(ctx context.Context) error { return errors.New("down") })

	status, checks := checker.Health(context.Background())
	if status != StatusDegraded {
		t.Errorf("status = %v, want degraded", status)
	}
	if len(checks) != 2 {
		t.Errorf("checks = %d, want 2", len(checks))
	}
}

func TestHealth_CachesResults(t *testing.T) {
	calls := 0
	checker := NewChecker(time.Minute)
	checker.Register("counted", func(ctx context.Context) error {
		calls++
		return nil
	})

	checker.Health(context.Background())
	checker.Health(context.Background())

	if calls != 1 {
		t.Errorf("check ran %d times within the cache TTL, want 1", calls)
	}
}

func TestReadinessHandler(t *testing.T) {
	checker := NewChecker(time.Minute)
	checker.Register("bad", func(ctx context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestDialCheck(t *testing.T) {
	listener, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	check := DialCheck(listener.Addr().String(), time.Second)
	if err := check(context.Background()); err != nil {
		t.Errorf("check against a live listener failed: %v", err)
	}

	// Grab a port with nothing listening on it
	dead, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}
	addr := dead.Addr().String()
	dead.Close()

	check = DialCheck(addr, time.Second)
	if err := check(context.Background()); err == nil {
		t.Error("check against a closed port succeeded")
	}
}
