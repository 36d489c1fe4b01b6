// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package topic

import "testing"

func TestDerive(t *testing.T) {
	tests := []struct {
		name   string
		user   string
		device string
		want   string
	}{
		{
			name:   "both parts set",
			user:   "alice",
			device: "sensor1",
			want:   "/alice/sensor1/in/params",
		},
		{
			name:   "empty user",
			user:   "",
			device: "sensor1",
			want:   "",
		},
		{
			name:   "empty device",
			user:   "alice",
			device: "",
			want:   "",
		},
		{
			name:   "both empty",
			user:   "",
			device: "",
			want:   "",
		},
		{
			name:   "case preserved as given",
			user:   "Alice",
			device: "Sensor1",
			want:   "/Alice/Sensor1/in/params",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Derive(tt.user, tt.device); got != tt.want {
				t.Errorf("Derive(%q, %q) = %q, want %q", tt.user, tt.device, got, tt.want)
			}
		})
	}
}

func TestDeviceFrom(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		want  string
	}{
		{
			name:  "canonical topic",
			topic: "/alice/sensor1/in/params",
			want:  "sensor1",
		},
		{
			name:  "manually entered short topic",
			topic: "/alice/sensor1",
			want:  "sensor1",
		},
		{
			name:  "too few segments",
			topic: "/alice",
			want:  "",
		},
		{
			name:  "empty topic",
			topic: "",
			want:  "",
		},
		{
			name:  "no leading slash shifts segments",
			topic: "alice/sensor1/in",
			want:  "in",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeviceFrom(tt.topic); got != tt.want {
				t.Errorf("DeviceFrom(%q) = %q, want %q", tt.topic, got, tt.want)
			}
		})
	}
}

func TestDeriveRoundTrip(t *testing.T) {
	pairs := []struct{ user, device string }{
		{"alice", "sensor1"},
		{"bob", "d"},
		{"u", "dev_42"},
	}

	for _, p := range pairs {
		if got := DeviceFrom(Derive(p.user, p.device)); got != p.device {
			t.Errorf("round trip for (%q, %q) = %q, want %q", p.user, p.device, got, p.device)
		}
	}
}
