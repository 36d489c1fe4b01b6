// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package topic maps session state to MQTT topic strings.
package topic

import "strings"

// Derive returns the canonical topic for a user/device pair, exactly
// "/{user}/{device}/in/params". It returns the empty string unless both
// parts are non-empty. Inputs are used as given, case is not normalized.
func Derive(user, device string) string {
	if user == "" || device == "" {
		return ""
	}
	return "/" + user + "/" + device + "/in/params"
}

// DeviceFrom extracts the device segment from a manually entered topic.
// Extraction is positional: splitting "/u/d/in/params" on "/" yields an
// empty segment 0 before the leading slash, so the device sits at
// index 2. Returns the empty string for topics with fewer segments.
func DeviceFrom(t string) string {
	parts := strings.Split(t, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}
