// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the bot's injectable source of time.
//
// The listen loop waits between sync retries and the event router
// stamps membership log lines with the local wall time. Both take a
// [Clock] so tests can run them under [Fake] and advance time by hand:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC))
//	go loop(c)
//	c.WaitForTimers(1)       // loop is now blocked in After
//	c.Advance(2 * time.Second)
package clock
