// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/BalalaykaJazz/mqtt-tbot/pkg/auth"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/errors"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/publisher"
	"github.com/BalalaykaJazz/mqtt-tbot/pkg/session"
)

// Command prefix matchers, anchored at the start of the trimmed text.
// auth must be tried before the others.
var (
	reAuth = regexp.MustCompile(`(?i)^auth\s+`)
	reSet  = regexp.MustCompile(`(?i)^set\s+`)
	reShow = regexp.MustCompile(`(?i)^sh\s+`)
	reSend = regexp.MustCompile(`(?i)^send\s+`)

	// Sub-argument extractors, keyword-prefixed search within the
	// argument block rather than positional splitting.
	reAuthUser     = regexp.MustCompile(`(?i)auth\s+(\w+)\s*:\s*\w+`)
	reAuthPassword = regexp.MustCompile(`(?i)auth\s+\w+\s*:\s*(\w+)`)
	reSetDevice    = regexp.MustCompile(`(?i)dev\s+(\w+)`)
)

// Executor handles one chat event and produces the reply text.
type Executor interface {
	Execute(ctx context.Context, chatID, text string) string
}

// Verifier is the auth protocol collaborator.
type Verifier interface {
	Authenticate(ctx context.Context, user, password string) auth.Result
	Check(ctx context.Context, user, token string) auth.Status
}

// OnlineLister is the reporting collaborator behind "sh online".
type OnlineLister interface {
	ListOnline(ctx context.Context, subject string) []string
}

// outbound is the wire payload for send, a newline-free JSON object.
// The password field carries the hashed token, never the plaintext.
type outbound struct {
	Topic    string `json:"topic"`
	Message  string `json:"message"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// Config holds the router configuration.
type Config struct {
	// Logger for command events
	Logger *slog.Logger
}

// Router dispatches chat commands against a fixed grammar table.
type Router struct {
	config   Config
	sessions *session.Store
	verifier Verifier
	client   publisher.Deliverer
	reporter OnlineLister
	routes   []route
}

type route struct {
	match  *regexp.Regexp
	handle func(ctx context.Context, sess *session.Session, text string) string
}

var _ Executor = (*Router)(nil)

// New creates a new Router over the given collaborators. The reporter
// may be nil, in which case "sh online" reports no data.
func New(cfg Config, sessions *session.Store, verifier Verifier, client publisher.Deliverer, reporter OnlineLister) *Router {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &Router{
		config:   cfg,
		sessions: sessions,
		verifier: verifier,
		client:   client,
		reporter: reporter,
	}
	r.routes = []route{
		{match: reAuth, handle: r.handleAuth},
		{match: reSet, handle: r.handleSet},
		{match: reShow, handle: r.handleShow},
		{match: reSend, handle: r.handleSend},
	}
	return r
}

// Command kinds, used for classification and metrics labels.
const (
	KindAuth    = "auth"
	KindSet     = "set"
	KindShow    = "show"
	KindSend    = "send"
	KindUnknown = "unknown"
)

// Classify returns the command kind the text would dispatch to.
func Classify(text string) string {
	text = strings.TrimSpace(text)
	switch {
	case reAuth.MatchString(text):
		return KindAuth
	case reSet.MatchString(text):
		return KindSet
	case reShow.MatchString(text):
		return KindShow
	case reSend.MatchString(text):
		return KindSend
	default:
		return KindUnknown
	}
}

// Execute classifies the text, resolves the chat's session and runs the
// matching handler under the session lock. It always returns a reply.
func (r *Router) Execute(ctx context.Context, chatID, text string) string {
	text = strings.TrimSpace(text)

	sess := r.sessions.Get(chatID)
	sess.Lock()
	defer sess.Unlock()

	for _, rt := range r.routes {
		if rt.match.MatchString(text) {
			return rt.handle(ctx, sess, text)
		}
	}

	r.config.Logger.Warn("unknown command",
		slog.String("chat", chatID),
		slog.String("text", text))
	return MsgUnknownCommand
}

// handleAuth signs the user in. The session's auth fields are reset
// first, so a failed attempt always leaves the session unauthenticated.
func (r *Router) handleAuth(ctx context.Context, sess *session.Session, text string) string {
	sess.ResetAuth()

	user := firstGroup(reAuthUser, text)
	password := firstGroup(reAuthPassword, text)
	if user == "" || password == "" {
		return MsgAuthFormat
	}

	res := r.verifier.Authenticate(ctx, user, password)
	switch res.Status {
	case auth.StatusOK:
		sess.SetCredentials(user, res.Token)
		return MsgOK
	case auth.StatusUnknownUser:
		return MsgUnknownUser
	case auth.StatusUnavailable:
		return MsgUnavailable
	case auth.StatusTimeout:
		return MsgTimeout
	default:
		return MsgFailed
	}
}

func (r *Router) handleSet(ctx context.Context, sess *session.Session, text string) string {
	device := firstGroup(reSetDevice, text)
	if device == "" {
		return MsgFailed
	}

	sess.SetDevice(device)
	return MsgOK
}

func (r *Router) handleShow(ctx context.Context, sess *session.Session, text string) string {
	field := strings.ToLower(strings.TrimSpace(reShow.ReplaceAllString(text, "")))

	var reply string
	switch field {
	case "topic":
		reply = sess.Topic
	case "dev":
		reply = sess.Device
	case "user":
		reply = sess.User
	case "auth":
		reply = r.statusText(r.verifier.Check(ctx, sess.User, sess.Token))
	case "online":
		if r.reporter != nil {
			reply = strings.Join(r.reporter.ListOnline(ctx, sess.User), "\n")
		}
	default:
		return MsgUnknownCommand
	}

	if reply == "" {
		reply = MsgNoData
	}
	return reply
}

// handleSend delivers a message to the current topic. It re-verifies
// the cached token (no re-salting) and requires a device; the topic is
// recomputed from the session immediately before building the payload.
func (r *Router) handleSend(ctx context.Context, sess *session.Session, text string) string {
	switch r.verifier.Check(ctx, sess.User, sess.Token) {
	case auth.StatusOK:
	case auth.StatusUnavailable:
		return MsgUnavailable
	case auth.StatusTimeout:
		return MsgTimeout
	default:
		return MsgSignInFirst
	}

	if sess.Device == "" {
		return MsgNoDevice
	}

	sess.RefreshTopic()
	body := strings.TrimSpace(reSend.ReplaceAllString(text, ""))

	payload, err := json.Marshal(outbound{
		Topic:    sess.Topic,
		Message:  body,
		User:     sess.User,
		Password: sess.Token,
	})
	if err != nil {
		return MsgFailed
	}

	reply, err := r.client.Deliver(ctx, payload)
	if err != nil {
		return r.deliveryText(err)
	}
	return reply
}

func (r *Router) statusText(st auth.Status) string {
	switch st {
	case auth.StatusOK:
		return MsgOK
	case auth.StatusNotSignedIn:
		return MsgNotSignedIn
	case auth.StatusUnavailable:
		return MsgUnavailable
	case auth.StatusTimeout:
		return MsgTimeout
	default:
		return MsgFailed
	}
}

func (r *Router) deliveryText(err error) string {
	if stderrors.Is(err, errors.ErrTimeout) {
		return MsgTimeout
	}
	return MsgUnavailable
}

// firstGroup returns the first capture group of the first match, or "".
func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
