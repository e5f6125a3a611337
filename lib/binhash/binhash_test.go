// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/blake3"
)

func writeHandler(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestHashFile(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"script", []byte("#!/bin/sh\necho pong\n")},
		{"empty", nil},
		{"large", func() []byte {
			content := make([]byte, 256*1024)
			for i := range content {
				content[i] = byte(i % 251)
			}
			return content
		}()},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := writeHandler(t, "handler", test.content)
			got, err := HashFile(path)
			if err != nil {
				t.Fatalf("HashFile: %v", err)
			}
			if want := Digest(blake3.Sum256(test.content)); got != want {
				t.Errorf("HashFile = %s, want %s", got, want)
			}
		})
	}
}

func TestHashFileDistinguishesContent(t *testing.T) {
	first, err := HashFile(writeHandler(t, "a", []byte("#!/bin/sh\necho a\n")))
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	second, err := HashFile(writeHandler(t, "b", []byte("#!/bin/sh\necho b\n")))
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if first == second {
		t.Error("different files produced the same digest")
	}
}

func TestHashFileNonexistent(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("HashFile should fail for a nonexistent file")
	}
}

func TestDigestFormatting(t *testing.T) {
	digest := Digest(blake3.Sum256([]byte("ping")))
	if length := len(digest.String()); length != 64 {
		t.Errorf("String() length = %d, want 64", length)
	}
	if digest.Short() != digest.String()[:12] {
		t.Errorf("Short() = %q, want prefix of %q", digest.Short(), digest.String())
	}
	if digest.IsZero() || !(Digest{}).IsZero() {
		t.Error("IsZero mismatch")
	}
}
