// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package errors provides structured error handling for mqtt-tbot.
package errors

import (
	"errors"
	"fmt"
)

// Common error types
var (
	// ErrUnavailable indicates the publisher service refused the connection
	// or could not be reached.
	ErrUnavailable = errors.New("publisher service unavailable")

	// ErrTimeout indicates a publisher round trip exceeded its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrNotSignedIn indicates the session has no cached credentials.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrBadFormat indicates malformed user input.
	ErrBadFormat = errors.New("malformed command")
)

// DeliveryError wraps a publisher transport error with call context.
type DeliveryError struct {
	Op   string // Operation that failed (dial, write, read)
	Addr string // Publisher address
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

// Unwrap returns the underlying error.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// NewDelivery creates a new DeliveryError.
func NewDelivery(op, addr string, err error) error {
	if err == nil {
		return nil
	}
	return &DeliveryError{
		Op:   op,
		Addr: addr,
		Err:  err,
	}
}

// Wrap wraps an error with context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
