// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"time"

	"github.com/aadu-bot/aadu/lib/ref"
	"github.com/aadu-bot/aadu/messaging"
)

// EventKind classifies an incoming event.
type EventKind int

const (
	EventOther EventKind = iota
	EventMembership
	EventMessage
)

func (k EventKind) String() string {
	switch k {
	case EventMembership:
		return "membership"
	case EventMessage:
		return "message"
	default:
		return "other"
	}
}

// IncomingEvent is the bot's view of a room event.
type IncomingEvent struct {
	Kind    EventKind
	EventID ref.EventID
	Sender  ref.UserID
	RoomID  ref.RoomID

	// Body is the message text (EventMessage).
	Body string

	// Membership and DisplayName describe a membership change
	// (EventMembership). DisplayName falls back to the member's user ID.
	Membership  string
	DisplayName string

	// Timestamp is the origin server time, or zero if absent.
	Timestamp time.Time
}

// Classify converts a protocol event. m.room.member becomes
// EventMembership, m.room.message with a string body becomes
// EventMessage, and everything else is EventOther.
func Classify(event messaging.Event) IncomingEvent {
	incoming := IncomingEvent{
		Kind:    EventOther,
		EventID: event.EventID,
		Sender:  event.Sender,
		RoomID:  event.RoomID,
	}
	if event.OriginServerTS > 0 {
		incoming.Timestamp = time.UnixMilli(event.OriginServerTS)
	}

	switch event.Type {
	case ref.EventTypeRoomMember:
		incoming.Kind = EventMembership
		incoming.Membership, _ = event.ContentString("membership")
		incoming.DisplayName, _ = event.ContentString("displayname")
		if incoming.DisplayName == "" {
			if event.StateKey != nil && *event.StateKey != "" {
				incoming.DisplayName = *event.StateKey
			} else {
				incoming.DisplayName = event.Sender.String()
			}
		}
	case ref.EventTypeRoomMessage:
		if body, ok := event.ContentString("body"); ok {
			incoming.Kind = EventMessage
			incoming.Body = body
		}
	}
	return incoming
}
