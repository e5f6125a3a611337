// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the bot's YAML configuration file.
//
// The file has six required keys (homeserver_url, user, password,
// room_ids, scripts_path, debug) and four optional tuning keys
// (handler_timeout, handler_workers, shutdown_grace, sync_timeout).
// Decoding is strict: an unknown key or a missing required key is an
// error, reported before the bot contacts the homeserver.
//
// ${VAR} and ${VAR:-default} references in homeserver_url, user,
// password, and scripts_path are expanded from the process environment
// after decoding, so credentials can stay out of the file. [LoadEnvFile]
// seeds the environment from a dotenv file first.
//
// A loaded [Config] is never mutated. Its [Config.LogValue] omits the
// password so the value can be logged directly.
package config
