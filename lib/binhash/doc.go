// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash fingerprints handler executables.
//
// The registry logs a BLAKE3 digest next to every handler it loads, so
// an operator reading the logs can tell exactly which build of a
// script answered a message after scripts are edited in place.
//
//   - [HashFile] streams a file through BLAKE3 with constant memory
//   - [Digest.String] is the lowercase hex form used in log output
//   - [Digest.Short] is its first twelve hex characters
package binhash
