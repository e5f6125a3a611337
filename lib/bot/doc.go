// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

// Package bot is the bot runtime: the session lifecycle and the message
// dispatch engine.
//
// [SessionManager] drives one session through
//
//	Unauthenticated → LoggingIn → DiscoveringRooms → Listening → ShuttingDown → LoggedOut
//
// building the handler table before it logs in, joining the configured
// rooms (skipping any that fail, unless all do), subscribing the
// [Router] to the tracked rooms, and blocking in the chat client's
// listen loop until its context is cancelled or [SessionManager.Shutdown]
// is called. Shutdown drains running handlers for a grace period and
// logs out exactly once.
//
// [Router] classifies each incoming event: membership joins are logged,
// messages not sent by the bot itself go to the [Dispatcher], anything
// else is dropped. The Dispatcher picks the first matching handler on
// the caller's goroutine and runs it, then publishes its output, on a
// bounded worker pool.
//
// The chat protocol is reached only through [ChatClient], which
// messaging.Bot implements.
package bot
