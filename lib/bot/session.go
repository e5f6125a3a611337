// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aadu-bot/aadu/lib/clock"
	"github.com/aadu-bot/aadu/lib/handler"
	"github.com/aadu-bot/aadu/lib/ref"
	"github.com/aadu-bot/aadu/lib/secret"
)

const (
	// DefaultShutdownGrace is how long running handlers get to finish
	// once shutdown starts.
	DefaultShutdownGrace = 10 * time.Second

	// DefaultListenInterval is the minimum spacing between sync polls.
	DefaultListenInterval = time.Second

	// logoutTimeout bounds the logout request during shutdown.
	logoutTimeout = 10 * time.Second
)

// Registry builds the handler table.
type Registry interface {
	Build(ctx context.Context) (*handler.Table, error)
}

// SessionConfig holds the parameters for NewSessionManager.
type SessionConfig struct {
	Client   ChatClient
	Registry Registry
	Invoker  Invoker

	User     string
	Password string

	// Rooms are the configured rooms, in join order.
	Rooms []ref.RoomID

	// Workers bounds concurrent handler runs.
	Workers int

	// ShutdownGrace defaults to DefaultShutdownGrace.
	ShutdownGrace time.Duration

	// ListenInterval defaults to DefaultListenInterval.
	ListenInterval time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// SessionManager owns one bot session from login to logout. Run may be
// called once.
type SessionManager struct {
	client   ChatClient
	registry Registry
	invoker  Invoker
	user     string
	password string
	rooms    []ref.RoomID
	workers  int
	grace    time.Duration
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger

	state   atomic.Int32
	started atomic.Bool

	mu                sync.Mutex
	cancel            context.CancelFunc
	shutdownRequested bool
	tracked           []ref.RoomID

	logoutOnce sync.Once
}

// NewSessionManager validates config and creates a SessionManager.
func NewSessionManager(config SessionConfig) (*SessionManager, error) {
	var errs []error
	if config.Client == nil {
		errs = append(errs, errors.New("session requires a chat client"))
	}
	if config.Registry == nil {
		errs = append(errs, errors.New("session requires a handler registry"))
	}
	if config.Invoker == nil {
		errs = append(errs, errors.New("session requires a handler invoker"))
	}
	if config.User == "" {
		errs = append(errs, errors.New("session requires a user"))
	}
	if len(config.Rooms) == 0 {
		errs = append(errs, errors.New("session requires at least one room"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	grace := config.ShutdownGrace
	if grace <= 0 {
		grace = DefaultShutdownGrace
	}
	interval := config.ListenInterval
	if interval <= 0 {
		interval = DefaultListenInterval
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &SessionManager{
		client:   config.Client,
		registry: config.Registry,
		invoker:  config.Invoker,
		user:     config.User,
		password: config.Password,
		rooms:    slices.Clone(config.Rooms),
		workers:  config.Workers,
		grace:    grace,
		interval: interval,
		clock:    config.Clock,
		logger:   config.Logger,
	}, nil
}

// State returns the current lifecycle state.
func (m *SessionManager) State() State {
	return State(m.state.Load())
}

func (m *SessionManager) setState(state State) {
	previous := State(m.state.Swap(int32(state)))
	if previous != state {
		m.logger.Debug("session state changed", "from", previous, "to", state)
	}
}

// TrackedRooms returns the rooms joined so far.
func (m *SessionManager) TrackedRooms() []ref.RoomID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tracked)
}

// Shutdown asks Run to stop. It is safe to call at any time, from any
// goroutine, any number of times. Called before Run, it makes Run stop
// as soon as it starts.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownRequested = true
	if m.cancel != nil {
		m.cancel()
	}
}

// Run executes the session: build the handler table, log in, join the
// configured rooms, subscribe, and listen until ctx is cancelled or
// Shutdown is called. It always ends in LoggedOut, having logged out if
// a login succeeded. A clean stop returns nil.
func (m *SessionManager) Run(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.mu.Lock()
	m.cancel = cancel
	if m.shutdownRequested {
		cancel()
	}
	m.mu.Unlock()

	table, err := m.registry.Build(ctx)
	if err != nil {
		m.setState(LoggedOut)
		return fmt.Errorf("building handler table: %w", err)
	}
	m.logger.Info("handlers registered", "count", table.Len())

	dispatcher, err := NewDispatcher(DispatcherConfig{
		Table:     table,
		Invoker:   m.invoker,
		Publisher: m.client,
		Workers:   m.workers,
		Logger:    m.logger,
	})
	if err != nil {
		m.setState(LoggedOut)
		return err
	}

	m.setState(LoggingIn)
	if err := m.login(ctx); err != nil {
		m.shutdown(dispatcher)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrAuth, err)
	}

	router, err := NewRouter(RouterConfig{
		Self:       m.client.UserID(),
		Dispatcher: dispatcher,
		Names:      m.client,
		Clock:      m.clock,
		Logger:     m.logger,
	})
	if err != nil {
		m.shutdown(dispatcher)
		return err
	}

	m.setState(DiscoveringRooms)
	if err := m.discoverRooms(ctx, router); err != nil {
		m.shutdown(dispatcher)
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	m.setState(Listening)
	m.logger.Info("listening", "rooms", len(m.TrackedRooms()))
	listenErr := m.client.Listen(ctx, m.interval)
	if listenErr != nil && ctx.Err() == nil {
		m.logger.Error("listen loop failed", "error", listenErr)
	}
	m.shutdown(dispatcher)

	if listenErr != nil && ctx.Err() == nil {
		return fmt.Errorf("listening: %w", listenErr)
	}
	return nil
}

func (m *SessionManager) login(ctx context.Context) error {
	password, err := secret.NewFromString(m.password)
	if err != nil {
		return fmt.Errorf("protecting password: %w", err)
	}
	defer password.Close()

	if err := m.client.Login(ctx, m.user, password); err != nil {
		return err
	}
	m.logger.Info("logged in", "user_id", m.client.UserID())
	return nil
}

// discoverRooms joins every configured room not already joined and
// re-subscribes after each change. Join failures are logged and
// skipped. It fails only if no room could be tracked.
func (m *SessionManager) discoverRooms(ctx context.Context, router *Router) error {
	joined, err := m.client.JoinedRooms(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.logger.Warn("listing joined rooms failed, joining all configured rooms", "error", err)
	}
	alreadyJoined := make(map[ref.RoomID]bool, len(joined))
	for _, roomID := range joined {
		alreadyJoined[roomID] = true
	}

	var joinErrs []error
	for _, roomID := range m.rooms {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if alreadyJoined[roomID] {
			m.logger.Info("room already joined", "room_id", roomID)
			m.track(roomID, router)
			continue
		}
		canonical, err := m.client.JoinRoom(ctx, roomID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			joinErr := &RoomJoinError{RoomID: roomID, Err: err}
			m.logger.Warn("skipping room", "room_id", roomID, "error", err)
			joinErrs = append(joinErrs, joinErr)
			continue
		}
		m.logger.Info("joined room", "room_id", canonical)
		m.track(canonical, router)
	}

	if len(m.TrackedRooms()) == 0 {
		return fmt.Errorf("%w: %w", ErrNoRoomsAvailable, errors.Join(joinErrs...))
	}
	return nil
}

// track adds a room to the tracked set and re-applies the subscription.
func (m *SessionManager) track(roomID ref.RoomID, router *Router) {
	m.mu.Lock()
	if slices.Contains(m.tracked, roomID) {
		m.mu.Unlock()
		return
	}
	m.tracked = append(m.tracked, roomID)
	rooms := slices.Clone(m.tracked)
	m.mu.Unlock()

	m.client.Subscribe(rooms, router.Handle)
}

// shutdown drains handlers for the grace period and logs out once.
func (m *SessionManager) shutdown(dispatcher *Dispatcher) {
	m.setState(ShuttingDown)

	graceCtx, cancel := context.WithTimeout(context.Background(), m.grace)
	if err := dispatcher.Wait(graceCtx); err != nil {
		m.logger.Warn("handlers still running after grace period were stopped", "grace", m.grace)
	}
	cancel()

	m.logout()
	m.setState(LoggedOut)
}

func (m *SessionManager) logout() {
	m.logoutOnce.Do(func() {
		if !m.client.IsLoggedIn() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
		defer cancel()
		if err := m.client.Logout(ctx); err != nil {
			m.logger.Warn("logout failed", "error", err)
			return
		}
		m.logger.Info("logged out")
	})
}
