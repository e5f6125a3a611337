// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the exit path for the aadu binary. Fatal is
// the one place that writes to stderr outside the structured logger,
// for errors that occur before the logger exists or after it is torn
// down.
package process
