// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package router classifies free-form chat text against the command
// grammar and dispatches to the matching handler.
//
// # Architecture Overview
//
// The router sits between the chat transport and the publisher-facing
// collaborators. Each incoming chat event resolves its session from the
// store, takes the session lock for the whole command, and runs exactly
// one handler:
//
//	Chat transport -> Router (classify) -> handler
//	                      |                   |
//	                 Session store    Auth / Publisher / Reporter
//
// # Grammar
//
// Commands are matched case-insensitively against the start of the
// trimmed message, in table order:
//
//	auth <user>:<password>  sign in (two-step salt/check exchange)
//	set dev <device>        choose the target device
//	sh <field>              show topic, dev, user, auth or online
//	send <text>             deliver a message to the current topic
//
// auth is checked before the others because its argument block could
// otherwise be mis-tokenized. Anything that matches no row is answered
// with a fixed unknown-command reply and logged as a warning.
//
// Sub-arguments are located by keyword-prefixed pattern search within
// the argument block, not positional splitting, mirroring how manually
// entered commands have always been parsed.
//
// # Concurrency
//
// Events for different chats run in parallel. Events for the same chat
// may also arrive concurrently; the session lock serializes them, so a
// blocking publisher round trip suspends only its own chat.
package router
