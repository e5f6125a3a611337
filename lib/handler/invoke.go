// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// configEnvironment marks a configuration-mode probe.
	configEnvironment = "CONFIG"

	// DefaultTimeout bounds a handler run when InvokerConfig leaves
	// Timeout unset.
	DefaultTimeout = 30 * time.Second

	// waitDelay bounds how long Wait keeps draining pipes after the
	// process group has been killed. A grandchild that escaped the
	// group could otherwise hold stdout open indefinitely.
	waitDelay = 2 * time.Second

	// maxStderr caps the stderr carried in an InvocationError.
	maxStderr = 4 << 10

	// MaxOutput caps the handler output kept for a reply. Bytes past it
	// are discarded; homeservers reject events over 64 KiB.
	MaxOutput = 60 << 10
)

// InvocationError reports a handler run that did not exit zero.
type InvocationError struct {
	// Path is the handler executable.
	Path string
	// ExitCode is the process exit status, or -1 if the handler could
	// not be started or was killed.
	ExitCode int
	// Stderr is the trimmed, possibly truncated, standard error output.
	Stderr string
	// Err is the underlying error. context.DeadlineExceeded when the
	// handler ran out of time.
	Err error
}

func (e *InvocationError) Error() string {
	message := fmt.Sprintf("handler %s failed (exit %d): %v", e.Path, e.ExitCode, e.Err)
	if e.Stderr != "" {
		message += " (stderr: " + e.Stderr + ")"
	}
	return message
}

func (e *InvocationError) Unwrap() error { return e.Err }

// InvokerConfig configures an Invoker.
type InvokerConfig struct {
	// Timeout bounds each run. Default DefaultTimeout.
	Timeout time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Invoker runs handler executables as subprocesses. Safe for concurrent
// use.
type Invoker struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewInvoker returns an Invoker.
func NewInvoker(config InvokerConfig) *Invoker {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{timeout: timeout, logger: logger}
}

// Invoke runs the handler at path with message as its only argument and
// returns its trimmed standard output.
func (i *Invoker) Invoke(ctx context.Context, path, message string) (string, error) {
	return i.run(ctx, path, []string{message}, handlerEnvironment(false))
}

// Configure runs the handler at path in configuration mode and returns
// its trimmed standard output, the pattern it registers.
func (i *Invoker) Configure(ctx context.Context, path string) (string, error) {
	return i.run(ctx, path, nil, handlerEnvironment(true))
}

func (i *Invoker) run(ctx context.Context, path string, args, environment []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	command := exec.CommandContext(ctx, path, args...)
	command.Env = environment

	stdout := &cappedBuffer{limit: MaxOutput}
	stderr := &cappedBuffer{limit: maxStderr + 1}
	command.Stdout = stdout
	command.Stderr = stderr

	// Own process group, so cancellation reaches the handler's
	// children as well.
	command.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	command.Cancel = func() error {
		return unix.Kill(-command.Process.Pid, unix.SIGKILL)
	}
	command.WaitDelay = waitDelay

	started := time.Now()
	err := command.Run()
	i.logger.Debug("handler finished",
		"path", path,
		"configure", args == nil,
		"duration", time.Since(started),
		"error", err,
	)
	if err == nil {
		if stdout.dropped > 0 {
			i.logger.Warn("handler output truncated",
				"path", path,
				"limit", MaxOutput,
				"dropped_bytes", stdout.dropped,
			)
		}
		return strings.TrimSpace(stdout.String()), nil
	}

	invocationErr := &InvocationError{
		Path:     path,
		ExitCode: -1,
		Stderr:   truncate(strings.TrimSpace(stderr.String()), maxStderr),
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		invocationErr.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		invocationErr.Err = ctxErr
	}
	return "", invocationErr
}

// handlerEnvironment returns the parent environment without any
// inherited CONFIG, plus CONFIG=1 for configuration mode.
func handlerEnvironment(configure bool) []string {
	parent := os.Environ()
	environment := make([]string, 0, len(parent)+1)
	for _, entry := range parent {
		if strings.HasPrefix(entry, configEnvironment+"=") {
			continue
		}
		environment = append(environment, entry)
	}
	if configure {
		environment = append(environment, configEnvironment+"=1")
	}
	return environment
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "…"
}

// cappedBuffer keeps the first limit bytes written to it and counts the
// rest. Writes never fail, so a chatty handler is not stalled on a full
// pipe.
type cappedBuffer struct {
	buffer  bytes.Buffer
	limit   int
	dropped int64
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buffer.Len()
	if room < 0 {
		room = 0
	}
	if len(p) <= room {
		return b.buffer.Write(p)
	}
	b.buffer.Write(p[:room])
	b.dropped += int64(len(p) - room)
	return len(p), nil
}

// String returns the kept bytes. A multi-byte character split by the
// limit is dropped.
func (b *cappedBuffer) String() string {
	if b.dropped == 0 {
		return b.buffer.String()
	}
	return strings.ToValidUTF8(b.buffer.String(), "")
}
