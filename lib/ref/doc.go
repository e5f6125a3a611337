// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable references to Matrix
// identifiers: room IDs, user IDs, event IDs, and event types.
//
// Identifiers arrive as raw strings from two places: the configuration
// file (room IDs the bot should listen in) and homeserver responses
// (senders, joined rooms, event IDs). Both are parsed into these types
// at the boundary so that the rest of the bot never handles an
// unvalidated identifier, and so that a user ID cannot be passed where
// a room ID is expected.
//
// All value types implement encoding.TextMarshaler and
// encoding.TextUnmarshaler, which makes them usable as JSON object keys
// (the /sync response keys joined rooms by room ID) and as YAML scalars.
// The zero value of each type is "unset"; use IsZero to check.
package ref
