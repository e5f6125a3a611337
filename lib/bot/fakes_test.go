// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"sync"
	"time"

	"github.com/aadu-bot/aadu/lib/handler"
	"github.com/aadu-bot/aadu/lib/ref"
	"github.com/aadu-bot/aadu/lib/secret"
	"github.com/aadu-bot/aadu/lib/testutil"
	"github.com/aadu-bot/aadu/messaging"
)

var (
	botUser   = ref.MustParseUserID("@aadu:example.org")
	aliceUser = ref.MustParseUserID("@alice:example.org")
	roomA     = ref.MustParseRoomID("!a:example.org")
	roomB     = ref.MustParseRoomID("!b:example.org")
)

const testTimeout = 5 * time.Second

func tableEntry(pattern, path string) handler.Entry {
	return handler.Entry{
		Pattern: regexp.MustCompile("(?i)" + pattern),
		Source:  pattern,
		Path:    path,
	}
}

func messageEvent(sender ref.UserID, roomID ref.RoomID, body string) messaging.Event {
	return messaging.Event{
		EventID: ref.MustParseEventID("$" + testutil.UniqueID(sender.Localpart())),
		Type:    ref.EventTypeRoomMessage,
		Sender:  sender,
		RoomID:  roomID,
		Content: map[string]any{"msgtype": "m.text", "body": body},
	}
}

type invocation struct {
	path    string
	message string
}

// fakeInvoker replies per handler path. With block set, each call waits
// for block to close or its context to end.
type fakeInvoker struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	block   chan struct{}
	started chan invocation
	calls   []invocation
	ctxErrs []error
}

func (f *fakeInvoker) Invoke(ctx context.Context, path, message string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, invocation{path, message})
	block, started := f.block, f.started
	f.mu.Unlock()

	if started != nil {
		started <- invocation{path, message}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			f.mu.Lock()
			f.ctxErrs = append(f.ctxErrs, ctx.Err())
			f.mu.Unlock()
			return "", ctx.Err()
		}
	}
	if err := f.errs[path]; err != nil {
		return "", err
	}
	return f.replies[path], nil
}

func (f *fakeInvoker) invocations() []invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeInvoker) cancellations() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.ctxErrs)
}

type publication struct {
	roomID ref.RoomID
	text   string
}

type fakePublisher struct {
	published chan publication
	err       error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{published: make(chan publication, 16)}
}

func (p *fakePublisher) Publish(ctx context.Context, roomID ref.RoomID, text string) error {
	if p.err != nil {
		return p.err
	}
	p.published <- publication{roomID, text}
	return nil
}

// fakeRegistry returns a fixed table or error.
type fakeRegistry struct {
	table *handler.Table
	err   error
}

func (r fakeRegistry) Build(context.Context) (*handler.Table, error) {
	return r.table, r.err
}

// fakeClient is a scripted ChatClient. Events sent on events are
// handed to the subscribed handler from Listen, on Listen's goroutine.
type fakeClient struct {
	mu sync.Mutex

	loginErr     error
	joined       []ref.RoomID
	joinedErr    error
	joinErrs     map[ref.RoomID]error
	listenErr    error
	logoutErr    error
	displayNames map[ref.UserID]string

	loggedIn      bool
	password      string
	joinCalls     []ref.RoomID
	subscriptions [][]ref.RoomID
	handler       messaging.EventHandler
	listenCalls   int
	logoutCalls   int
	journal       []string

	events    chan messaging.Event
	published chan publication
	listening chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		events:    make(chan messaging.Event),
		published: make(chan publication, 16),
		listening: make(chan struct{}),
	}
}

func (c *fakeClient) record(entry string) {
	c.journal = append(c.journal, entry)
}

func (c *fakeClient) Login(ctx context.Context, user string, password *secret.Buffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("login")
	if c.loginErr != nil {
		return c.loginErr
	}
	c.password = password.String()
	c.loggedIn = true
	return nil
}

func (c *fakeClient) JoinedRooms(context.Context) ([]ref.RoomID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.joined), c.joinedErr
}

func (c *fakeClient) JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joinCalls = append(c.joinCalls, roomID)
	if err := c.joinErrs[roomID]; err != nil {
		return ref.RoomID{}, err
	}
	return roomID, nil
}

func (c *fakeClient) Subscribe(rooms []ref.RoomID, handler messaging.EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions = append(c.subscriptions, slices.Clone(rooms))
	c.handler = handler
}

func (c *fakeClient) Listen(ctx context.Context, interval time.Duration) error {
	c.mu.Lock()
	c.listenCalls++
	handler, listenErr := c.handler, c.listenErr
	c.mu.Unlock()
	close(c.listening)

	if listenErr != nil {
		return listenErr
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-c.events:
			handler(ctx, event)
		}
	}
}

func (c *fakeClient) Publish(ctx context.Context, roomID ref.RoomID, text string) error {
	c.mu.Lock()
	c.record("publish " + text)
	c.mu.Unlock()
	c.published <- publication{roomID, text}
	return nil
}

func (c *fakeClient) DisplayName(ctx context.Context, userID ref.UserID) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.displayNames[userID]
	if !ok {
		return "", errors.New("no display name")
	}
	return name, nil
}

func (c *fakeClient) Logout(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("logout")
	c.logoutCalls++
	c.loggedIn = false
	return c.logoutErr
}

func (c *fakeClient) IsLoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn
}

func (c *fakeClient) UserID() ref.UserID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loggedIn {
		return ref.UserID{}
	}
	return botUser
}

// snapshot returns copies of the recorded calls.
func (c *fakeClient) snapshot() (joinCalls []ref.RoomID, subscriptions [][]ref.RoomID, listenCalls, logoutCalls int, journal []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.joinCalls), slices.Clone(c.subscriptions), c.listenCalls, c.logoutCalls, slices.Clone(c.journal)
}
