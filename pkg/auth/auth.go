// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package auth implements the two-step challenge/response exchange with
// the mqtt publisher: fetch a salt for the username, then submit the
// derived token for verification.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"log/slog"

	"golang.org/x/crypto/pbkdf2"

	"github.com/BalalaykaJazz/mqtt-tbot/pkg/errors"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/publisher"
)

const (
	actionGetSalt   = "/get_salt"
	actionCheckAuth = "/check_auth"

	// successMarker is the literal reply the publisher sends on a
	// positive check_auth.
	successMarker = "OK"

	kdfIterations = 100000
	kdfKeyLen     = 32
)

// Status is the outcome of an authentication or verification exchange.
type Status int

const (
	// StatusOK means the publisher accepted the credentials.
	StatusOK Status = iota

	// StatusDenied means the publisher rejected the credentials.
	StatusDenied

	// StatusUnknownUser means the publisher has no salt for the user.
	StatusUnknownUser

	// StatusNotSignedIn means no credentials are cached; no network
	// call was made.
	StatusNotSignedIn

	// StatusUnavailable means the publisher service is not reachable.
	StatusUnavailable

	// StatusTimeout means the publisher did not reply in time.
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDenied:
		return "denied"
	case StatusUnknownUser:
		return "unknown_user"
	case StatusNotSignedIn:
		return "not_signed_in"
	case StatusUnavailable:
		return "unavailable"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Result is the outcome of Authenticate. Token is set only on StatusOK.
type Result struct {
	Status Status
	Token  string
}

// request is the wire payload for auth exchanges, a newline-free JSON
// object sent as one write.
type request struct {
	Action   string `json:"action"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
}

// Authenticator runs the auth protocol over a publisher Deliverer.
type Authenticator struct {
	client publisher.Deliverer
	logger *slog.Logger
}

// New creates a new Authenticator.
func New(client publisher.Deliverer, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{client: client, logger: logger}
}

// Authenticate verifies a plaintext password against the publisher.
// It fetches the salt for the user, derives the token and submits it
// for verification. An empty salt reply is a terminal unknown-user
// failure; the second step never runs.
func (a *Authenticator) Authenticate(ctx context.Context, user, password string) Result {
	salt, err := a.roundTrip(ctx, request{Action: actionGetSalt, User: user})
	if err != nil {
		a.logger.Warn("get_salt failed",
			slog.String("user", user),
			slog.String("error", err.Error()))
		return Result{Status: statusFromErr(err)}
	}
	if salt == "" {
		return Result{Status: StatusUnknownUser}
	}

	token := EncodeToken(password, salt)

	reply, err := a.roundTrip(ctx, request{Action: actionCheckAuth, User: user, Password: token})
	if err != nil {
		a.logger.Warn("check_auth failed",
			slog.String("user", user),
			slog.String("error", err.Error()))
		return Result{Status: statusFromErr(err)}
	}
	if reply != successMarker {
		return Result{Status: StatusDenied}
	}

	return Result{Status: StatusOK, Token: token}
}

// Check verifies a cached token without re-salting. It is idempotent
// and tolerates empty credentials: with an empty user or token it
// returns StatusNotSignedIn without any network call.
func (a *Authenticator) Check(ctx context.Context, user, token string) Status {
	if user == "" || token == "" {
		return StatusNotSignedIn
	}

	reply, err := a.roundTrip(ctx, request{Action: actionCheckAuth, User: user, Password: token})
	if err != nil {
		return statusFromErr(err)
	}
	if reply != successMarker {
		return StatusDenied
	}
	return StatusOK
}

func (a *Authenticator) roundTrip(ctx context.Context, req request) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode request")
	}
	return a.client.Deliver(ctx, payload)
}

func statusFromErr(err error) Status {
	if stderrors.Is(err, errors.ErrTimeout) {
		return StatusTimeout
	}
	return StatusUnavailable
}

// EncodeToken derives the password-verification token from a plaintext
// password and a publisher-issued salt: the salt concatenated with the
// hex PBKDF2-HMAC-SHA256 of the password (100000 iterations). This is
// the only form of the password ever transmitted after this step.
func EncodeToken(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), kdfIterations, kdfKeyLen, sha256.New)
	return salt + hex.EncodeToString(key)
}
