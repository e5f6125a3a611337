// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aadu-bot/aadu/lib/handler"
	"github.com/aadu-bot/aadu/lib/ref"
)

// DefaultWorkers bounds concurrent handler runs when DispatcherConfig
// leaves Workers unset.
const DefaultWorkers = 4

// Invoker runs one handler script for one message.
type Invoker interface {
	Invoke(ctx context.Context, path, message string) (string, error)
}

// Publisher sends a handler's reply.
type Publisher interface {
	Publish(ctx context.Context, roomID ref.RoomID, text string) error
}

// DispatcherConfig holds the parameters for NewDispatcher.
type DispatcherConfig struct {
	Table     *handler.Table
	Invoker   Invoker
	Publisher Publisher

	// Workers bounds concurrent handler runs. Defaults to DefaultWorkers.
	Workers int

	Logger *slog.Logger
}

// Dispatcher matches messages against the handler table and runs the
// winning handler on a bounded worker pool. Matching happens on the
// caller's goroutine, so the listen loop sees each message matched in
// delivery order. Replies are published in completion order.
type Dispatcher struct {
	table     *handler.Table
	invoker   Invoker
	publisher Publisher
	logger    *slog.Logger

	group *errgroup.Group
	// slots holds one token per running handler.
	slots chan struct{}

	// work outlives the listen loop so handlers can finish during the
	// shutdown grace period. Wait cancels it.
	work       context.Context
	cancelWork context.CancelFunc

	closed atomic.Bool
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(config DispatcherConfig) (*Dispatcher, error) {
	if config.Table == nil {
		return nil, errors.New("dispatcher requires a handler table")
	}
	if config.Invoker == nil {
		return nil, errors.New("dispatcher requires an invoker")
	}
	if config.Publisher == nil {
		return nil, errors.New("dispatcher requires a publisher")
	}
	workers := config.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	work, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		table:      config.Table,
		invoker:    config.Invoker,
		publisher:  config.Publisher,
		logger:     logger,
		group:      new(errgroup.Group),
		slots:      make(chan struct{}, workers),
		work:       work,
		cancelWork: cancel,
	}, nil
}

// Dispatch handles one message. The body is trimmed before matching;
// blank and unmatched messages are dropped. When every worker is busy
// Dispatch blocks until one frees or ctx ends, in which case the message
// is dropped. Dispatch must not be called concurrently with Wait.
func (d *Dispatcher) Dispatch(ctx context.Context, event IncomingEvent) {
	if d.closed.Load() || ctx.Err() != nil {
		d.logger.Debug("dispatcher stopping, dropping message", "event_id", event.EventID)
		return
	}
	body := strings.TrimSpace(event.Body)
	if body == "" {
		return
	}
	entry, ok := d.table.Match(body)
	if !ok {
		d.logger.Debug("no handler matched", "event_id", event.EventID, "room_id", event.RoomID)
		return
	}

	logger := d.logger.With(
		"dispatch_id", uuid.NewString(),
		"event_id", event.EventID,
		"room_id", event.RoomID,
		"handler", entry.Path,
	)

	select {
	case d.slots <- struct{}{}:
	case <-ctx.Done():
		logger.Info("shutting down, dropping message waiting for a worker")
		return
	}
	if ctx.Err() != nil {
		<-d.slots
		logger.Info("shutting down, dropping message waiting for a worker")
		return
	}
	logger.Debug("dispatching message", "pattern", entry.Source)

	roomID := event.RoomID
	d.group.Go(func() error {
		defer func() { <-d.slots }()
		d.run(logger, entry, roomID, body)
		return nil
	})
}

func (d *Dispatcher) run(logger *slog.Logger, entry handler.Entry, roomID ref.RoomID, body string) {
	output, err := d.invoker.Invoke(d.work, entry.Path, body)
	if err != nil {
		logger.Error("handler failed", "error", err)
		return
	}
	if output == "" {
		logger.Debug("handler produced no output")
		return
	}
	if err := d.publisher.Publish(d.work, roomID, output); err != nil {
		logger.Error("publishing handler reply failed", "error", err)
		return
	}
	logger.Debug("handler reply published", "bytes", len(output))
}

// Wait stops accepting messages and waits for running handlers. If ctx
// ends first, the handlers are cancelled (which kills their processes),
// Wait waits for them to exit, and returns ctx.Err().
func (d *Dispatcher) Wait(ctx context.Context) error {
	d.closed.Store(true)

	done := make(chan struct{})
	go func() {
		d.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancelWork()
		return nil
	case <-ctx.Done():
		d.cancelWork()
		<-done
		return ctx.Err()
	}
}
