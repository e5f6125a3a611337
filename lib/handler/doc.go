// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

// Package handler discovers and runs the bot's handler programs.
//
// A handler is any executable in the scripts directory. It speaks a
// two-mode protocol:
//
//   - Run with CONFIG=1 in the environment and no arguments, it prints
//     one line, the regular expression of messages it answers, and
//     exits zero.
//   - Run with a message as its single argument, it prints the reply
//     and exits zero. Non-zero exit means failure.
//
// [Registry.Build] probes every handler once and assembles a [Table]
// of case-insensitive patterns in directory-listing order. When two
// handlers print the same pattern the later one replaces the earlier,
// keeping the earlier one's position. [Table.Match] returns the first
// entry whose pattern occurs anywhere in the message.
//
// [Invoker] runs handlers with an argument vector (no shell), a
// per-run timeout, and its own process group so a timed-out handler
// and anything it spawned are killed together.
package handler
