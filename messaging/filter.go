// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"

	"github.com/aadu-bot/aadu/lib/ref"
)

// buildRoomFilter returns the inline /sync filter for the tracked rooms.
// The timeline carries messages and membership changes; room state is
// limited to lazily-loaded members; presence, account data, and
// ephemeral events are suppressed.
func buildRoomFilter(rooms []ref.RoomID) string {
	roomIDs := make([]string, len(rooms))
	for index, room := range rooms {
		roomIDs[index] = room.String()
	}
	none := map[string]any{"types": []string{}}

	filter := map[string]any{
		"presence":     none,
		"account_data": none,
		"room": map[string]any{
			"rooms":        roomIDs,
			"ephemeral":    none,
			"account_data": none,
			"state": map[string]any{
				"types":             []string{ref.EventTypeRoomMember.String()},
				"lazy_load_members": true,
			},
			"timeline": map[string]any{
				"types": []string{
					ref.EventTypeRoomMessage.String(),
					ref.EventTypeRoomMember.String(),
				},
			},
		},
	}

	data, _ := json.Marshal(filter)
	return string(data)
}
