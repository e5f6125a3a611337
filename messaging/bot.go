// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aadu-bot/aadu/lib/clock"
	"github.com/aadu-bot/aadu/lib/ref"
	"github.com/aadu-bot/aadu/lib/secret"
)

const (
	// defaultSyncTimeout is the long-poll hold when BotConfig leaves
	// SyncTimeout unset.
	defaultSyncTimeout = 30 * time.Second

	// syncRequestSlack is added to the long-poll hold to form the
	// client-side deadline of each /sync request, so a dead connection
	// is noticed instead of blocking forever.
	syncRequestSlack = 30 * time.Second

	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// EventHandler receives each timeline event from a subscribed room, in
// timeline order. It runs on the listen goroutine.
type EventHandler func(ctx context.Context, event Event)

// BotConfig configures a Bot.
type BotConfig struct {
	// Client is the homeserver client to log in with. Required.
	Client *Client
	// SyncTimeout is how long the server may hold each /sync. Default 30s.
	SyncTimeout time.Duration
	// Clock times retries and poll spacing. Default clock.Real().
	Clock clock.Clock
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Bot is a single-account chat session over the Matrix client-server
// API: login, room discovery and joins, a filtered /sync listen loop
// that delivers events to one handler, message publishing, and logout.
//
// Subscribe may be called before or during Listen; the next /sync uses
// the new filter.
type Bot struct {
	client      *Client
	syncTimeout time.Duration
	clock       clock.Clock
	logger      *slog.Logger

	mu      sync.Mutex
	session *DirectSession
	rooms   []ref.RoomID
	filter  string
	handler EventHandler
}

// NewBot returns a logged-out Bot.
func NewBot(config BotConfig) (*Bot, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("messaging: BotConfig.Client is required")
	}
	syncTimeout := config.SyncTimeout
	if syncTimeout <= 0 {
		syncTimeout = defaultSyncTimeout
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		client:      config.Client,
		syncTimeout: syncTimeout,
		clock:       clk,
		logger:      logger,
		filter:      buildRoomFilter(nil),
	}, nil
}

// Login authenticates and stores the session. Logging in while already
// logged in is an error.
func (b *Bot) Login(ctx context.Context, user string, password *secret.Buffer) error {
	if b.IsLoggedIn() {
		return fmt.Errorf("messaging: already logged in as %s", b.UserID())
	}
	session, err := b.client.Login(ctx, user, password)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.session = session
	b.mu.Unlock()
	return nil
}

// IsLoggedIn reports whether the Bot holds a session.
func (b *Bot) IsLoggedIn() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session != nil
}

// UserID returns the logged-in user ID, or the zero UserID.
func (b *Bot) UserID() ref.UserID {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return ref.UserID{}
	}
	return b.session.UserID()
}

func (b *Bot) currentSession() (*DirectSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil, ErrNotLoggedIn
	}
	return b.session, nil
}

// JoinedRooms returns the rooms the account has already joined.
func (b *Bot) JoinedRooms(ctx context.Context) ([]ref.RoomID, error) {
	session, err := b.currentSession()
	if err != nil {
		return nil, err
	}
	return session.JoinedRooms(ctx)
}

// JoinRoom joins roomID.
func (b *Bot) JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error) {
	session, err := b.currentSession()
	if err != nil {
		return ref.RoomID{}, err
	}
	return session.JoinRoom(ctx, roomID)
}

// Subscribe replaces the set of rooms whose events reach handler. The
// sync filter is rebuilt from the full set.
func (b *Bot) Subscribe(rooms []ref.RoomID, handler EventHandler) {
	tracked := slices.Clone(rooms)
	filter := buildRoomFilter(tracked)

	b.mu.Lock()
	b.rooms = tracked
	b.filter = filter
	b.handler = handler
	b.mu.Unlock()

	b.logger.Debug("sync filter updated", "rooms", len(tracked))
}

func (b *Bot) subscription() (string, EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filter, b.handler
}

// Publish sends text to roomID as an m.text message.
func (b *Bot) Publish(ctx context.Context, roomID ref.RoomID, text string) error {
	session, err := b.currentSession()
	if err != nil {
		return err
	}
	eventID, err := session.SendMessage(ctx, roomID, NewTextMessage(text))
	if err != nil {
		return err
	}
	b.logger.Debug("message sent", "room_id", roomID, "event_id", eventID)
	return nil
}

// DisplayName returns userID's profile display name.
func (b *Bot) DisplayName(ctx context.Context, userID ref.UserID) (string, error) {
	session, err := b.currentSession()
	if err != nil {
		return "", err
	}
	return session.GetDisplayName(ctx, userID)
}

// Logout invalidates the access token on the server and releases the
// session. The Bot is logged out afterwards even if the server call
// fails.
func (b *Bot) Logout(ctx context.Context) error {
	b.mu.Lock()
	session := b.session
	b.session = nil
	b.mu.Unlock()

	if session == nil {
		return ErrNotLoggedIn
	}
	logoutErr := session.Logout(ctx)
	closeErr := session.Close()
	return errors.Join(logoutErr, closeErr)
}

// Listen runs the /sync loop until ctx is cancelled, delivering every
// timeline event of the subscribed rooms to the handler.
//
// The first sync returns immediately and only establishes the stream
// position; events already in the rooms are not delivered. Later syncs
// long-poll. Consecutive polls start at least interval apart. Transient
// failures are retried with exponential backoff; a revoked access token
// ends the loop with an error.
//
// Listen returns nil when ctx is cancelled.
func (b *Bot) Listen(ctx context.Context, interval time.Duration) error {
	session, err := b.currentSession()
	if err != nil {
		return err
	}

	var since string
	primed := false
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return nil
		}

		filter, handler := b.subscription()
		options := SyncOptions{
			Since:      since,
			SetTimeout: true,
			Filter:     filter,
		}
		if primed {
			options.Timeout = int(b.syncTimeout.Milliseconds())
		}

		started := b.clock.Now()
		requestContext, cancel := context.WithTimeout(ctx, b.syncTimeout+syncRequestSlack)
		response, err := session.Sync(requestContext, options)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if IsMatrixError(err, ErrCodeUnknownToken) {
				return fmt.Errorf("messaging: session revoked: %w", err)
			}

			wait := backoff
			var matrixErr *MatrixError
			if errors.As(err, &matrixErr) {
				wait = max(wait, matrixErr.RetryAfter())
			} else {
				b.client.CloseIdleConnections()
			}
			b.logger.Warn("sync failed, retrying", "error", err, "backoff", wait)
			if !b.sleep(ctx, wait) {
				return nil
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = initialBackoff
		since = response.NextBatch
		if !primed {
			primed = true
			b.logger.Info("listening for events", "since", since)
			continue
		}

		b.deliver(ctx, response, handler)

		if elapsed := b.clock.Now().Sub(started); elapsed < interval {
			if !b.sleep(ctx, interval-elapsed) {
				return nil
			}
		}
	}
}

// deliver hands each joined room's timeline to handler. Rooms are
// visited in ID order so delivery is deterministic. Delivery stops as
// soon as ctx ends; the rest of the batch is dropped.
func (b *Bot) deliver(ctx context.Context, response *SyncResponse, handler EventHandler) {
	if handler == nil {
		return
	}
	roomIDs := make([]ref.RoomID, 0, len(response.Rooms.Join))
	for roomID := range response.Rooms.Join {
		roomIDs = append(roomIDs, roomID)
	}
	slices.SortFunc(roomIDs, func(left, right ref.RoomID) int {
		return strings.Compare(left.String(), right.String())
	})

	for _, roomID := range roomIDs {
		for _, event := range response.Rooms.Join[roomID].Timeline.Events {
			if ctx.Err() != nil {
				return
			}
			event.RoomID = roomID
			b.handleEvent(ctx, handler, event)
		}
	}
}

// handleEvent isolates the loop from a panicking handler.
func (b *Bot) handleEvent(ctx context.Context, handler EventHandler, event Event) {
	defer func() {
		if recovered := recover(); recovered != nil {
			b.logger.Error("event handler panicked",
				"room_id", event.RoomID,
				"event_id", event.EventID,
				"panic", recovered,
			)
		}
	}()
	handler(ctx, event)
}

// sleep waits for d or ctx. It reports false if ctx ended first.
func (b *Bot) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-b.clock.After(d):
		return true
	}
}
