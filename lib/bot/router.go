// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aadu-bot/aadu/lib/clock"
	"github.com/aadu-bot/aadu/lib/ref"
	"github.com/aadu-bot/aadu/messaging"
)

// NameResolver looks up display names for the debug message log.
type NameResolver interface {
	DisplayName(ctx context.Context, userID ref.UserID) (string, error)
}

// RouterConfig holds the parameters for NewRouter.
type RouterConfig struct {
	// Self is the bot's own account. Messages it sent are ignored.
	Self ref.UserID

	Dispatcher *Dispatcher

	// Names is optional. When set and debug logging is enabled, each
	// message is logged with the sender's display name.
	Names NameResolver

	Clock  clock.Clock
	Logger *slog.Logger
}

// Router classifies incoming events and sends messages to the
// Dispatcher. Its Handle method is the messaging.EventHandler the
// session subscribes with.
type Router struct {
	self       ref.UserID
	dispatcher *Dispatcher
	names      NameResolver
	clock      clock.Clock
	logger     *slog.Logger
}

// NewRouter creates a Router.
func NewRouter(config RouterConfig) (*Router, error) {
	if config.Dispatcher == nil {
		return nil, errors.New("router requires a dispatcher")
	}
	if config.Self.IsZero() {
		return nil, errors.New("router requires the bot's user ID")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Router{
		self:       config.Self,
		dispatcher: config.Dispatcher,
		names:      config.Names,
		clock:      config.Clock,
		logger:     config.Logger,
	}, nil
}

// Handle routes one event. It runs on the listen goroutine.
func (r *Router) Handle(ctx context.Context, event messaging.Event) {
	incoming := Classify(event)
	switch incoming.Kind {
	case EventMembership:
		if incoming.Membership == "join" {
			r.logger.Info(incoming.DisplayName+" joined.",
				"at", r.clock.Now().Format("15:04"),
				"room_id", incoming.RoomID,
			)
		}
	case EventMessage:
		if incoming.Sender == r.self {
			return
		}
		r.logMessage(ctx, incoming)
		r.dispatcher.Dispatch(ctx, incoming)
	}
}

func (r *Router) logMessage(ctx context.Context, incoming IncomingEvent) {
	if r.names == nil || !r.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	name, err := r.names.DisplayName(ctx, incoming.Sender)
	if err != nil || name == "" {
		name = incoming.Sender.String()
	}
	r.logger.Debug(name+" -> "+incoming.Body,
		"room_id", incoming.RoomID,
		"event_id", incoming.EventID,
	)
}
