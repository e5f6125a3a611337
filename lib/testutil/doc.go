// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the
// select-with-timeout pattern so tests that wait on goroutines fail
// with a message instead of hanging.
//
// [UniqueID] returns process-unique strings for event and transaction
// IDs.
package testutil
