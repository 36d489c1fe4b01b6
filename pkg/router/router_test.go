// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/BalalaykaJazz/mqtt-tbot/pkg/auth"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/errors"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/session"
)

type mockVerifier struct {
	authResult  auth.Result
	checkStatus auth.Status
	authCalls   int
	checkCalls  int
	lastUser    string
	lastSecret  string
}

func (m *mockVerifier) Authenticate(ctx context.Context, user, password string) auth.Result {
	m.authCalls++
	m.lastUser = user
	m.lastSecret = password
	return m.authResult
}

func (m *mockVerifier) Check(ctx context.Context, user, token string) auth.Status {
	m.checkCalls++
	if user == "" || token == "" {
		return auth.StatusNotSignedIn
	}
	return m.checkStatus
}

type mockDeliverer struct {
	reply    string
	err      error
	payloads [][]byte
}

func (m *mockDeliverer) Deliver(ctx context.Context, payload []byte) (string, error) {
	m.payloads = append(m.payloads, payload)
	return m.reply, m.err
}

type mockLister struct {
	lines   []string
	subject string
}

func (m *mockLister) ListOnline(ctx context.Context, subject string) []string {
	m.subject = subject
	return m.lines
}

// countHandler swallows records and counts warnings.
type countHandler struct {
	warns *int
}

func (h countHandler) Enabled(ctx context.Context, level slog.Level) bool { return true }

func (h countHandler) Handle(ctx context.Context, rec slog.Record) error {
	if rec.Level == slog.LevelWarn {
		*h.warns++
	}
	return nil
}

func (h countHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }

func (h countHandler) WithGroup(name string) slog.Handler { return h }

func newRouter(verifier Verifier, client *mockDeliverer, reporter OnlineLister) (*Router, *session.Store) {
	store := session.NewStore()
	r := New(Config{}, store, verifier, client, reporter)
	return r, store
}

func signIn(store *session.Store, chatID, user, token string) {
	sess := store.Get(chatID)
	sess.SetCredentials(user, token)
}

func TestExecute_Auth(t *testing.T) {
	verifier := &mockVerifier{authResult: auth.Result{Status: auth.StatusOK, Token: "s1hash"}}
	r, store := newRouter(verifier, &mockDeliverer{}, nil)

	reply := r.Execute(context.Background(), "chat-1", "auth alice:secret")
	if reply != MsgOK {
		t.Fatalf("reply = %q, want %q", reply, MsgOK)
	}
	if verifier.lastUser != "alice" || verifier.lastSecret != "secret" {
		t.Errorf("verifier got (%q, %q), want (alice, secret)", verifier.lastUser, verifier.lastSecret)
	}

	sess := store.Get("chat-1")
	if sess.User != "alice" || sess.Token != "s1hash" {
		t.Errorf("session holds (%q, %q), want (alice, s1hash)", sess.User, sess.Token)
	}
}

func TestExecute_AuthSpacingAndCase(t *testing.T) {
	tests := []string{
		"auth alice:secret",
		"auth alice : secret",
		"AUTH alice:secret",
		"  auth alice:secret  ",
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			verifier := &mockVerifier{authResult: auth.Result{Status: auth.StatusOK, Token: "tok"}}
			r, _ := newRouter(verifier, &mockDeliverer{}, nil)

			if reply := r.Execute(context.Background(), "chat-1", text); reply != MsgOK {
				t.Errorf("reply = %q, want %q", reply, MsgOK)
			}
			if verifier.lastUser != "alice" || verifier.lastSecret != "secret" {
				t.Errorf("parsed (%q, %q), want (alice, secret)", verifier.lastUser, verifier.lastSecret)
			}
		})
	}
}

func TestExecute_AuthBadFormat(t *testing.T) {
	verifier := &mockVerifier{}
	r, _ := newRouter(verifier, &mockDeliverer{}, nil)

	for _, text := range []string{"auth alice", "auth :secret", "auth "} {
		if reply := r.Execute(context.Background(), "chat-1", text); reply != MsgAuthFormat {
			t.Errorf("Execute(%q) = %q, want format error", text, reply)
		}
	}
	if verifier.authCalls != 0 {
		t.Errorf("authenticate calls = %d, want 0", verifier.authCalls)
	}
}

func TestExecute_AuthFailureResetsSession(t *testing.T) {
	verifier := &mockVerifier{authResult: auth.Result{Status: auth.StatusDenied}}
	r, store := newRouter(verifier, &mockDeliverer{}, nil)
	signIn(store, "chat-1", "alice", "oldtoken")

	if reply := r.Execute(context.Background(), "chat-1", "auth alice:wrong"); reply != MsgFailed {
		t.Fatalf("reply = %q, want %q", reply, MsgFailed)
	}

	// A failed attempt drops the previous sign-in too
	sess := store.Get("chat-1")
	if sess.User != "" || sess.Token != "" {
		t.Errorf("session kept stale credentials: (%q, %q)", sess.User, sess.Token)
	}
}

func TestExecute_AuthStatusReplies(t *testing.T) {
	tests := []struct {
		name   string
		status auth.Status
		want   string
	}{
		{"unknown user", auth.StatusUnknownUser, MsgUnknownUser},
		{"unavailable", auth.StatusUnavailable, MsgUnavailable},
		{"timeout", auth.StatusTimeout, MsgTimeout},
		{"denied", auth.StatusDenied, MsgFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &mockVerifier{authResult: auth.Result{Status: tt.status}}
			r, _ := newRouter(verifier, &mockDeliverer{}, nil)

			if reply := r.Execute(context.Background(), "chat-1", "auth alice:secret"); reply != tt.want {
				t.Errorf("reply = %q, want %q", reply, tt.want)
			}
		})
	}
}

func TestExecute_SetDevice(t *testing.T) {
	r, store := newRouter(&mockVerifier{}, &mockDeliverer{}, nil)
	signIn(store, "chat-1", "alice", "tok")

	if reply := r.Execute(context.Background(), "chat-1", "set dev sensor1"); reply != MsgOK {
		t.Fatalf("reply = %q, want %q", reply, MsgOK)
	}

	sess := store.Get("chat-1")
	if sess.Device != "sensor1" {
		t.Errorf("Device = %q, want sensor1", sess.Device)
	}
	if sess.Topic != "/alice/sensor1/in/params" {
		t.Errorf("Topic = %q, want /alice/sensor1/in/params", sess.Topic)
	}
}

func TestExecute_SetDeviceBeforeAuth(t *testing.T) {
	r, store := newRouter(&mockVerifier{}, &mockDeliverer{}, nil)

	// Setting a device without a user is allowed, the topic stays empty
	if reply := r.Execute(context.Background(), "chat-1", "set dev sensor1"); reply != MsgOK {
		t.Fatalf("reply = %q, want %q", reply, MsgOK)
	}

	sess := store.Get("chat-1")
	if sess.Device != "sensor1" {
		t.Errorf("Device = %q, want sensor1", sess.Device)
	}
	if sess.Topic != "" {
		t.Errorf("Topic = %q, want empty", sess.Topic)
	}
}

func TestExecute_SetBadArgument(t *testing.T) {
	r, _ := newRouter(&mockVerifier{}, &mockDeliverer{}, nil)

	if reply := r.Execute(context.Background(), "chat-1", "set gizmo sensor1"); reply != MsgFailed {
		t.Errorf("reply = %q, want %q", reply, MsgFailed)
	}
}

func TestExecute_Show(t *testing.T) {
	verifier := &mockVerifier{checkStatus: auth.StatusOK}
	lister := &mockLister{lines: []string{"device: dev1, last time: 01.01.2026 12:00:00"}}
	r, store := newRouter(verifier, &mockDeliverer{}, lister)
	signIn(store, "chat-1", "alice", "tok")
	store.Get("chat-1").SetDevice("sensor1")

	tests := []struct {
		text string
		want string
	}{
		{"sh topic", "/alice/sensor1/in/params"},
		{"sh dev", "sensor1"},
		{"sh user", "alice"},
		{"sh auth", MsgOK},
		{"sh online", "device: dev1, last time: 01.01.2026 12:00:00"},
		{"sh gizmo", MsgUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := r.Execute(context.Background(), "chat-1", tt.text); got != tt.want {
				t.Errorf("Execute(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}

	if lister.subject != "alice" {
		t.Errorf("online listing queried for %q, want alice", lister.subject)
	}
}

func TestExecute_ShowEmptyFields(t *testing.T) {
	r, _ := newRouter(&mockVerifier{}, &mockDeliverer{}, nil)

	// Fresh session: every field is empty, auth is not signed in
	tests := []struct {
		text string
		want string
	}{
		{"sh topic", MsgNoData},
		{"sh dev", MsgNoData},
		{"sh user", MsgNoData},
		{"sh auth", MsgNotSignedIn},
		{"sh online", MsgNoData},
	}

	for _, tt := range tests {
		if got := r.Execute(context.Background(), "chat-1", tt.text); got != tt.want {
			t.Errorf("Execute(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestExecute_Send(t *testing.T) {
	verifier := &mockVerifier{checkStatus: auth.StatusOK}
	client := &mockDeliverer{reply: "OK"}
	r, store := newRouter(verifier, client, nil)
	signIn(store, "chat-1", "alice", "s1hash")
	store.Get("chat-1").SetDevice("sensor1")

	reply := r.Execute(context.Background(), "chat-1", "send 42")
	if reply != "OK" {
		t.Fatalf("reply = %q, want the raw publisher reply OK", reply)
	}

	if len(client.payloads) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(client.payloads))
	}
	var got outbound
	if err := json.Unmarshal(client.payloads[0], &got); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	want := outbound{
		Topic:    "/alice/sensor1/in/params",
		Message:  "42",
		User:     "alice",
		Password: "s1hash",
	}
	if got != want {
		t.Errorf("payload = %+v, want %+v", got, want)
	}
}

func TestExecute_SendMultiWordBody(t *testing.T) {
	verifier := &mockVerifier{checkStatus: auth.StatusOK}
	client := &mockDeliverer{reply: "OK"}
	r, store := newRouter(verifier, client, nil)
	signIn(store, "chat-1", "alice", "tok")
	store.Get("chat-1").SetDevice("sensor1")

	r.Execute(context.Background(), "chat-1", "send hello world")

	var got outbound
	if err := json.Unmarshal(client.payloads[0], &got); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if got.Message != "hello world" {
		t.Errorf("Message = %q, want %q", got.Message, "hello world")
	}
}

func TestExecute_SendNotSignedIn(t *testing.T) {
	client := &mockDeliverer{reply: "OK"}
	r, _ := newRouter(&mockVerifier{}, client, nil)

	if reply := r.Execute(context.Background(), "chat-1", "send 42"); reply != MsgSignInFirst {
		t.Fatalf("reply = %q, want %q", reply, MsgSignInFirst)
	}
	if len(client.payloads) != 0 {
		t.Errorf("deliveries = %d, want 0", len(client.payloads))
	}
}

func TestExecute_SendNoDevice(t *testing.T) {
	verifier := &mockVerifier{checkStatus: auth.StatusOK}
	client := &mockDeliverer{reply: "OK"}
	r, store := newRouter(verifier, client, nil)
	signIn(store, "chat-1", "alice", "tok")

	if reply := r.Execute(context.Background(), "chat-1", "send 42"); reply != MsgNoDevice {
		t.Fatalf("reply = %q, want %q", reply, MsgNoDevice)
	}
	if len(client.payloads) != 0 {
		t.Errorf("deliveries = %d, want 0", len(client.payloads))
	}
}

func TestExecute_SendDeliveryErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unavailable", errors.ErrUnavailable, MsgUnavailable},
		{"timeout", errors.ErrTimeout, MsgTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &mockVerifier{checkStatus: auth.StatusOK}
			client := &mockDeliverer{err: tt.err}
			r, store := newRouter(verifier, client, nil)
			signIn(store, "chat-1", "alice", "tok")
			store.Get("chat-1").SetDevice("sensor1")

			if reply := r.Execute(context.Background(), "chat-1", "send 42"); reply != tt.want {
				t.Errorf("reply = %q, want %q", reply, tt.want)
			}
		})
	}
}

func TestExecute_SendCheckUnavailable(t *testing.T) {
	verifier := &mockVerifier{checkStatus: auth.StatusUnavailable}
	client := &mockDeliverer{reply: "OK"}
	r, store := newRouter(verifier, client, nil)
	signIn(store, "chat-1", "alice", "tok")
	store.Get("chat-1").SetDevice("sensor1")

	if reply := r.Execute(context.Background(), "chat-1", "send 42"); reply != MsgUnavailable {
		t.Errorf("reply = %q, want %q", reply, MsgUnavailable)
	}
	if len(client.payloads) != 0 {
		t.Errorf("deliveries = %d, want 0", len(client.payloads))
	}
}

func TestExecute_Unknown(t *testing.T) {
	warns := 0
	logger := slog.New(countHandler{warns: &warns})

	r := New(Config{Logger: logger}, session.NewStore(), &mockVerifier{}, &mockDeliverer{}, nil)

	for _, text := range []string{"foobar", "", "authalice:secret", "sendx"} {
		if reply := r.Execute(context.Background(), "chat-1", text); reply != MsgUnknownCommand {
			t.Errorf("Execute(%q) = %q, want %q", text, reply, MsgUnknownCommand)
		}
	}
	if warns != 4 {
		t.Errorf("warnings logged = %d, want 4", warns)
	}
}

func TestExecute_SessionsAreIsolated(t *testing.T) {
	verifier := &mockVerifier{authResult: auth.Result{Status: auth.StatusOK, Token: "tok"}}
	r, store := newRouter(verifier, &mockDeliverer{}, nil)

	r.Execute(context.Background(), "chat-1", "auth alice:secret")
	r.Execute(context.Background(), "chat-2", "set dev sensor1")

	if store.Get("chat-1").Device != "" {
		t.Error("device leaked into another chat's session")
	}
	if store.Get("chat-2").User != "" {
		t.Error("credentials leaked into another chat's session")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"auth alice:secret", KindAuth},
		{"set dev sensor1", KindSet},
		{"sh topic", KindShow},
		{"send 42", KindSend},
		{"SEND 42", KindSend},
		{"foobar", KindUnknown},
		{"", KindUnknown},
	}

	for _, tt := range tests {
		if got := Classify(tt.text); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
