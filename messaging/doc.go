// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging is the bot's binding to the Matrix client-server
// API.
//
// [Client] is unauthenticated: a homeserver URL and an HTTP transport.
// [Client.Login] performs password login and returns a [DirectSession],
// which holds the access token in mmap-backed secret memory and issues
// the authenticated calls the bot needs: joined-room discovery, room
// joins, /sync, message sends, display-name lookup, and logout.
//
// [Bot] layers the bot's session model on top: one account, a
// subscription (tracked rooms plus one [EventHandler]) rendered into an
// inline /sync filter, a blocking [Bot.Listen] loop with exponential
// backoff, and publish/logout. Bot satisfies the chat-client interface
// consumed by lib/bot.
//
// All API errors are [*MatrixError] values carrying the Matrix error
// code and HTTP status; [IsMatrixError] tests for a code.
package messaging
