// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"time"

	"github.com/aadu-bot/aadu/lib/ref"
	"github.com/aadu-bot/aadu/lib/secret"
	"github.com/aadu-bot/aadu/messaging"
)

// ChatClient is the chat-protocol session the bot runs on.
type ChatClient interface {
	// Login authenticates. The password buffer stays owned by the caller.
	Login(ctx context.Context, user string, password *secret.Buffer) error
	// JoinedRooms lists rooms the account is already in.
	JoinedRooms(ctx context.Context) ([]ref.RoomID, error)
	// JoinRoom joins a room and returns its canonical ID.
	JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error)
	// Subscribe replaces the tracked room set and the event callback.
	Subscribe(rooms []ref.RoomID, handler messaging.EventHandler)
	// Listen delivers events until ctx is cancelled (returning nil) or
	// the session fails.
	Listen(ctx context.Context, interval time.Duration) error
	// Publish sends a text message to a room.
	Publish(ctx context.Context, roomID ref.RoomID, text string) error
	// DisplayName looks up a user's display name.
	DisplayName(ctx context.Context, userID ref.UserID) (string, error)
	// Logout ends the session. The client is logged out afterwards
	// whether or not the call succeeds.
	Logout(ctx context.Context) error
	// IsLoggedIn reports whether a session is active.
	IsLoggedIn() bool
	// UserID is the logged-in account, or the zero UserID.
	UserID() ref.UserID
}

var _ ChatClient = (*messaging.Bot)(nil)
