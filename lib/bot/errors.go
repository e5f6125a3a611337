// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"errors"
	"fmt"

	"github.com/aadu-bot/aadu/lib/handler"
	"github.com/aadu-bot/aadu/lib/ref"
)

var (
	// ErrAuth wraps a login failure.
	ErrAuth = errors.New("authentication failed")

	// ErrNoHandlersConfigured means the scripts directory yielded no
	// usable handler.
	ErrNoHandlersConfigured = handler.ErrNoHandlersConfigured

	// ErrNoRoomsAvailable means every configured room failed to join.
	ErrNoRoomsAvailable = errors.New("no rooms available")

	// ErrAlreadyStarted is returned by a second call to Run.
	ErrAlreadyStarted = errors.New("session already started")
)

// RoomJoinError reports one configured room that could not be joined.
type RoomJoinError struct {
	RoomID ref.RoomID
	Err    error
}

func (e *RoomJoinError) Error() string {
	return fmt.Sprintf("joining room %s: %v", e.RoomID, e.Err)
}

func (e *RoomJoinError) Unwrap() error { return e.Err }
