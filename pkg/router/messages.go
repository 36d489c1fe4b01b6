// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package router

// Fixed user-facing replies.
const (
	// MsgOK is the generic success reply, also the publisher's literal
	// success marker.
	MsgOK = "OK"

	// MsgFailed is the generic failure reply.
	MsgFailed = "Failed"

	// MsgUnknownCommand answers text that matches no grammar row.
	MsgUnknownCommand = "unknown command"

	// MsgNoData answers "sh" requests for empty session fields.
	MsgNoData = "no data"

	// MsgNotSignedIn answers auth checks with no cached credentials.
	MsgNotSignedIn = "not signed in"

	// MsgAuthFormat corrects a malformed auth command.
	MsgAuthFormat = "invalid auth command format\nrequired format: auth user:password"

	// MsgUnknownUser answers a get_salt exchange with an empty reply.
	MsgUnknownUser = "unknown user, cannot hash password"

	// MsgUnavailable is shown when the publisher refuses connections.
	MsgUnavailable = "mqtt publisher service is not running"

	// MsgTimeout is shown when a publisher round trip times out.
	MsgTimeout = "response timed out"

	// MsgSignInFirst guards send for unauthenticated sessions.
	MsgSignInFirst = "sign in before sending messages"

	// MsgNoDevice guards send when no target device is set.
	MsgNoDevice = "cannot send the message: no target device set"

	// MsgTooManyRequests is shown when the per-chat rate limit trips.
	MsgTooManyRequests = "too many requests, slow down"
)
