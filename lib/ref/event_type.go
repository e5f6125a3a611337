// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// EventType identifies a Matrix state or timeline event type
// (e.g., "m.room.message"). It is a named string type rather than a
// struct wrapper: event types are opaque and need no validation. The
// type exists for compile-time safety when event types and state keys
// travel through the same call.
type EventType string

// Standard Matrix event types the bot reads or writes.
const (
	EventTypeRoomMessage EventType = "m.room.message"
	EventTypeRoomMember  EventType = "m.room.member"
)

// String returns the event type string (e.g., "m.room.message").
func (t EventType) String() string { return string(t) }
