// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package session holds the mutable per-conversation state and the
// concurrency-safe store that owns it.
package session

import (
	"sync"

	"github.com/BalalaykaJazz/mqtt-tbot/pkg/topic"
)

// State is the mutable state of one conversation.
//
// Topic is always either empty or exactly "/{user}/{device}/in/params";
// it is recomputed from User and Device whenever either changes and is
// never partially updated.
type State struct {
	// User is the authenticated username, empty if not signed in.
	User string

	// Token is the hashed credential returned by the publisher on
	// successful verification. Empty means not authenticated. The
	// plaintext password is never stored.
	Token string

	// Device is the last device identifier set via command.
	Device string

	// Topic is the last fully resolved MQTT topic, or empty.
	Topic string
}

// SetDevice stores a new target device and recomputes the topic.
func (st *State) SetDevice(device string) {
	st.Device = device
	st.refreshTopic()
}

// SetCredentials stores the authenticated user and token and recomputes
// the topic from the current device.
func (st *State) SetCredentials(user, token string) {
	st.User = user
	st.Token = token
	st.refreshTopic()
}

// ResetAuth clears the authenticated user and token.
func (st *State) ResetAuth() {
	st.User = ""
	st.Token = ""
	st.refreshTopic()
}

// ResetTopic clears the resolved topic only, for composing new messages.
func (st *State) ResetTopic() {
	st.Topic = ""
}

// RefreshTopic recomputes the topic from the current user and device.
func (st *State) RefreshTopic() {
	st.refreshTopic()
}

func (st *State) refreshTopic() {
	st.Topic = topic.Derive(st.User, st.Device)
}

// Session is the state of one conversation together with the lock that
// serializes commands touching it. The chat transport gives no ordering
// guarantee, so two events for the same chat may run concurrently;
// handlers hold the session lock for the whole command, including any
// publisher round trip, so a slow delivery blocks only its own chat.
type Session struct {
	sync.Mutex
	State
}

// Store maps conversation keys to sessions. Sessions are created lazily
// on first access and live for the process lifetime; there is no
// eviction.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for the given key, creating a fresh one on
// first reference. It never returns nil.
func (s *Store) Get(key string) *Session {
	s.mu.RLock()
	sess, ok := s.sessions[key]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Double-check after acquiring the write lock
	if sess, ok := s.sessions[key]; ok {
		return sess
	}
	sess = &Session{}
	s.sessions[key] = sess
	return sess
}

// Len returns the number of sessions in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
