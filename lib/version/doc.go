// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build version of the aadu binary.
//
// [GitCommit], [GitDirty], [BuildTime] and [Version] are injected with
// -ldflags:
//
//	go build -ldflags "-X github.com/aadu-bot/aadu/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/aadu
//
// Development builds report "0.1.0-dev (unknown, unknown)".
package version
