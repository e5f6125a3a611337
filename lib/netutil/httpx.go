// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil bounds HTTP response reads for the Matrix client.
//
// Every JSON response body the bot reads from a homeserver goes through
// ReadResponse, DecodeResponse, or ErrorBody, which stop after
// MaxResponseSize bytes. A /sync response for a handful of rooms is a
// few kilobytes; the bound only exists to stop a broken or hostile
// server from exhausting memory.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxResponseSize caps JSON response body reads at 64 MiB.
const MaxResponseSize int64 = 64 << 20

// ReadResponse reads at most MaxResponseSize bytes of body.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a bounded response body and unmarshals it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// ErrorBody returns a bounded response body as a string for use in
// error messages. Read errors yield whatever was read so far.
func ErrorBody(body io.Reader) string {
	data, _ := ReadResponse(body)
	return string(data)
}
