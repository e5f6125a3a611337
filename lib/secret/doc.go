// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds the bot's credentials (account password and
// Matrix access token) outside the Go heap.
//
// [Buffer] allocates memory via mmap(MAP_ANONYMOUS), locks it into RAM
// with mlock so it is never swapped, and marks it MADV_DONTDUMP so it
// does not appear in core dumps. Close zeroes, unlocks, and unmaps the
// region. The garbage collector never sees the region and so never
// leaves stray copies behind.
//
// Credentials still become Go strings at the HTTP boundary (JSON login
// body, Authorization header). Those copies are short-lived; the
// Buffer is the durable copy.
//
// Depends on golang.org/x/sys/unix.
package secret
