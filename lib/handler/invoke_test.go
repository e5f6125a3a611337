// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInvokePassesMessageVerbatim(t *testing.T) {
	script := writeScript(t, t.TempDir(), "echo", `printf '%s' "$1"`)
	invoker := NewInvoker(InvokerConfig{})

	messages := []string{
		"hello",
		`weather in "Tallinn"`,
		"$(touch /tmp/aadu-pwned); rm -rf ~ `id` | cat > x",
		"multi\nline",
	}
	for _, message := range messages {
		output, err := invoker.Invoke(context.Background(), script, message)
		if err != nil {
			t.Fatalf("Invoke(%q) failed: %v", message, err)
		}
		if output != message {
			t.Errorf("Invoke(%q) = %q, argument must reach the handler unmodified", message, output)
		}
	}
}

func TestInvokeTrimsOutput(t *testing.T) {
	script := writeScript(t, t.TempDir(), "padded", `printf '\n\n  pong  \n\n'`)
	output, err := NewInvoker(InvokerConfig{}).Invoke(context.Background(), script, "ping")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if output != "pong" {
		t.Errorf("output = %q, want %q", output, "pong")
	}
}

func TestInvokeCapsOutput(t *testing.T) {
	script := writeScript(t, t.TempDir(), "chatty", `head -c 200000 /dev/zero | tr '\0' 'a'`)
	output, err := NewInvoker(InvokerConfig{}).Invoke(context.Background(), script, "talk")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if len(output) != MaxOutput {
		t.Errorf("output is %d bytes, want %d", len(output), MaxOutput)
	}
	if strings.Trim(output, "a") != "" {
		t.Error("output must be a prefix of what the handler wrote")
	}
}

func TestCappedBuffer(t *testing.T) {
	buffer := &cappedBuffer{limit: 5}
	for _, chunk := range []string{"ab", "cdef", "gh"} {
		written, err := buffer.Write([]byte(chunk))
		if err != nil || written != len(chunk) {
			t.Fatalf("Write(%q) = %d, %v", chunk, written, err)
		}
	}
	if got := buffer.String(); got != "abcde" {
		t.Errorf("String() = %q, want %q", got, "abcde")
	}
	if buffer.dropped != 3 {
		t.Errorf("dropped = %d, want 3", buffer.dropped)
	}

	split := &cappedBuffer{limit: 2}
	split.Write([]byte("aé"))
	if got := split.String(); got != "a" {
		t.Errorf("String() = %q, want the split character removed", got)
	}
}

func TestInvokeNonZeroExit(t *testing.T) {
	script := writeScript(t, t.TempDir(), "broken", `echo "partial"; echo "upstream API returned 503" >&2; exit 3`)

	output, err := NewInvoker(InvokerConfig{}).Invoke(context.Background(), script, "ping")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if output != "" {
		t.Errorf("output = %q, failed runs must not return output", output)
	}

	var invocationErr *InvocationError
	if !errors.As(err, &invocationErr) {
		t.Fatalf("expected *InvocationError, got %T: %v", err, err)
	}
	if invocationErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", invocationErr.ExitCode)
	}
	if invocationErr.Path != script {
		t.Errorf("Path = %q, want %q", invocationErr.Path, script)
	}
	if invocationErr.Stderr != "upstream API returned 503" {
		t.Errorf("Stderr = %q", invocationErr.Stderr)
	}
	if !strings.Contains(err.Error(), "upstream API returned 503") {
		t.Errorf("error message should include stderr: %v", err)
	}
}

func TestInvokeSpawnFailure(t *testing.T) {
	directory := t.TempDir()
	notExecutable := filepath.Join(directory, "readme.txt")
	if err := os.WriteFile(notExecutable, []byte("not a program"), 0o644); err != nil {
		t.Fatal(err)
	}

	for name, path := range map[string]string{
		"not executable": notExecutable,
		"missing":        filepath.Join(directory, "missing"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewInvoker(InvokerConfig{}).Invoke(context.Background(), path, "ping")
			var invocationErr *InvocationError
			if !errors.As(err, &invocationErr) {
				t.Fatalf("expected *InvocationError, got %v", err)
			}
			if invocationErr.ExitCode != -1 {
				t.Errorf("ExitCode = %d, want -1", invocationErr.ExitCode)
			}
		})
	}
}

func TestInvokeTimeoutKillsProcessGroup(t *testing.T) {
	directory := t.TempDir()
	marker := filepath.Join(directory, "child-survived")
	// The background child would create the marker if it outlived the kill.
	script := writeScript(t, directory, "slow", `(sleep 1; touch '`+marker+`') &
sleep 30`)

	invoker := NewInvoker(InvokerConfig{Timeout: 200 * time.Millisecond})
	started := time.Now()
	_, err := invoker.Invoke(context.Background(), script, "ping")
	elapsed := time.Since(started)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed > 10*time.Second {
		t.Errorf("Invoke took %v, timeout was not enforced", elapsed)
	}

	time.Sleep(1500 * time.Millisecond)
	if _, statErr := os.Stat(marker); statErr == nil {
		t.Error("handler child survived the process-group kill")
	}
}

func TestInvokeCancellation(t *testing.T) {
	script := writeScript(t, t.TempDir(), "slow", "sleep 30")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewInvoker(InvokerConfig{}).Invoke(ctx, script, "ping")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConfigureSetsConfigMode(t *testing.T) {
	script := writeScript(t, t.TempDir(), "ping", `if [ "$CONFIG" = "1" ]; then
  [ $# -eq 0 ] || { echo "unexpected arguments: $*" >&2; exit 2; }
  echo '^!ping'
else
  echo "normal:$1"
fi`)
	invoker := NewInvoker(InvokerConfig{})

	pattern, err := invoker.Configure(context.Background(), script)
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if pattern != "^!ping" {
		t.Errorf("Configure = %q, want %q", pattern, "^!ping")
	}

	// An inherited CONFIG must not leak into normal runs.
	t.Setenv("CONFIG", "1")
	output, err := invoker.Invoke(context.Background(), script, "!ping")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if output != "normal:!ping" {
		t.Errorf("Invoke = %q, want normal mode", output)
	}
}

func TestInvocationErrorFormatting(t *testing.T) {
	err := &InvocationError{Path: "/srv/scripts/weather", ExitCode: 1, Stderr: "boom", Err: errors.New("exit status 1")}
	want := "handler /srv/scripts/weather failed (exit 1): exit status 1 (stderr: boom)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	long := strings.Repeat("x", maxStderr+10)
	if got := truncate(long, maxStderr); !strings.HasSuffix(got, "…") || len(got) != maxStderr+len("…") {
		t.Errorf("truncate produced %d bytes", len(got))
	}
}
