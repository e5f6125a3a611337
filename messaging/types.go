// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"github.com/aadu-bot/aadu/lib/ref"
)

// LoginRequest is the body of POST /login for password login.
type LoginRequest struct {
	Type                     string `json:"type"`
	User                     string `json:"user"`
	Password                 string `json:"password"`
	InitialDeviceDisplayName string `json:"initial_device_display_name,omitempty"`
}

// AuthResponse is the body of a successful login.
type AuthResponse struct {
	UserID      ref.UserID `json:"user_id"`
	AccessToken string     `json:"access_token"`
	DeviceID    string     `json:"device_id"`
}

// MessageContent is the content of an m.room.message event the bot
// sends.
type MessageContent struct {
	MsgType string `json:"msgtype"`
	Body    string `json:"body"`
}

// NewTextMessage returns plain m.text content.
func NewTextMessage(body string) MessageContent {
	return MessageContent{MsgType: "m.text", Body: body}
}

// Event is a room event as delivered by /sync.
type Event struct {
	EventID        ref.EventID    `json:"event_id"`
	Type           ref.EventType  `json:"type"`
	Sender         ref.UserID     `json:"sender"`
	OriginServerTS int64          `json:"origin_server_ts"`
	Content        map[string]any `json:"content"`
	StateKey       *string        `json:"state_key,omitempty"`

	// RoomID is absent from /sync timeline events on the wire; the
	// listen loop fills it in from the enclosing rooms.join key.
	RoomID ref.RoomID `json:"room_id,omitempty"`
}

// ContentString returns content[key] if it is a string.
func (e Event) ContentString(key string) (string, bool) {
	value, ok := e.Content[key].(string)
	return value, ok
}

// SyncOptions are the query parameters of one /sync call.
type SyncOptions struct {
	// Since is the next_batch token of the previous response; empty
	// for the first sync.
	Since string
	// Timeout is the long-poll hold in milliseconds.
	Timeout int
	// SetTimeout sends Timeout even when it is zero.
	SetTimeout bool
	// Filter is an inline JSON filter.
	Filter string
}

// SyncResponse is the subset of a /sync response the bot reads.
type SyncResponse struct {
	NextBatch string       `json:"next_batch"`
	Rooms     RoomsSection `json:"rooms"`
}

// RoomsSection holds per-room updates keyed by room ID.
type RoomsSection struct {
	Join map[ref.RoomID]JoinedRoom `json:"join,omitempty"`
}

// JoinedRoom is the update for one joined room.
type JoinedRoom struct {
	Timeline TimelineSection `json:"timeline"`
	State    StateSection    `json:"state"`
}

// TimelineSection holds a room's new timeline events, oldest first.
type TimelineSection struct {
	Events    []Event `json:"events"`
	PrevBatch string  `json:"prev_batch"`
	Limited   bool    `json:"limited"`
}

// StateSection holds state events preceding the timeline.
type StateSection struct {
	Events []Event `json:"events"`
}

// SendEventResponse is the body of a successful send.
type SendEventResponse struct {
	EventID ref.EventID `json:"event_id"`
}

// JoinedRoomsResponse is the body of GET /joined_rooms.
type JoinedRoomsResponse struct {
	JoinedRooms []ref.RoomID `json:"joined_rooms"`
}

// JoinRoomResponse is the body of a successful join.
type JoinRoomResponse struct {
	RoomID ref.RoomID `json:"room_id"`
}

// DisplayNameResponse is the body of GET /profile/{userId}/displayname.
type DisplayNameResponse struct {
	DisplayName string `json:"displayname"`
}
