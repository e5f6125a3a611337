// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	saved := [4]string{Version, GitCommit, GitDirty, BuildTime}
	t.Cleanup(func() {
		Version, GitCommit, GitDirty, BuildTime = saved[0], saved[1], saved[2], saved[3]
	})

	tests := []struct {
		name  string
		dirty string
		want  string
	}{
		{"clean", "false", "1.2.0 (abc1234, 2026-10-01T00:00:00Z)"},
		{"dirty", "true", "1.2.0 (abc1234-dirty, 2026-10-01T00:00:00Z)"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			Version, GitCommit, GitDirty, BuildTime = "1.2.0", "abc1234", test.dirty, "2026-10-01T00:00:00Z"
			if got := Info(); got != test.want {
				t.Errorf("Info() = %q, want %q", got, test.want)
			}
		})
	}
}

func TestFullIncludesInfo(t *testing.T) {
	full := Full()
	if !strings.HasPrefix(full, Info()) {
		t.Errorf("Full() = %q, want prefix %q", full, Info())
	}
	if !strings.Contains(full, "go=") {
		t.Errorf("Full() = %q, missing go version", full)
	}
}
