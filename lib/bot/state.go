// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import "fmt"

// State is a SessionManager lifecycle state. States only move forward.
type State int32

const (
	Unauthenticated State = iota
	LoggingIn
	DiscoveringRooms
	Listening
	ShuttingDown
	LoggedOut
)

var stateNames = [...]string{
	Unauthenticated:  "unauthenticated",
	LoggingIn:        "logging_in",
	DiscoveringRooms: "discovering_rooms",
	Listening:        "listening",
	ShuttingDown:     "shutting_down",
	LoggedOut:        "logged_out",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}
