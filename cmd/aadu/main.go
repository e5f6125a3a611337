// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

// aadu is a Matrix chat bot whose behaviour lives in executable handler
// scripts. At startup every executable in scripts_path is run with
// CONFIG=1 and prints the pattern it answers to; afterwards each
// message in the configured rooms is given to the first handler whose
// pattern matches, and whatever the handler prints is posted back to
// the room.
//
// Usage:
//
//	aadu [--config config.yml] [--env-file .env]
//
// SIGINT or SIGTERM drains running handlers and logs the bot out.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/aadu-bot/aadu/lib/bot"
	"github.com/aadu-bot/aadu/lib/config"
	"github.com/aadu-bot/aadu/lib/handler"
	"github.com/aadu-bot/aadu/lib/process"
	"github.com/aadu-bot/aadu/lib/version"
	"github.com/aadu-bot/aadu/messaging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	var (
		configPath  string
		envFile     string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("aadu", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "config.yml", "path to the YAML configuration file")
	flagSet.StringVar(&envFile, "env-file", "", "dotenv file loaded into the environment before the config is read")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	if showVersion {
		fmt.Printf("aadu %s\n", version.Info())
		return nil
	}

	if envFile != "" {
		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}
	}
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.Debug)
	slog.SetDefault(logger)
	logger.Info("starting aadu", "version", version.Full(), "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.HomeserverURL,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("creating homeserver client: %w", err)
	}
	defer client.CloseIdleConnections()

	chat, err := messaging.NewBot(messaging.BotConfig{
		Client:      client,
		SyncTimeout: cfg.SyncTimeout,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	invoker := handler.NewInvoker(handler.InvokerConfig{
		Timeout: cfg.HandlerTimeout,
		Logger:  logger,
	})
	registry := handler.NewRegistry(handler.RegistryConfig{
		ScriptsPath: cfg.ScriptsPath,
		Prober:      invoker,
		Logger:      logger,
	})

	session, err := bot.NewSessionManager(bot.SessionConfig{
		Client:        chat,
		Registry:      registry,
		Invoker:       invoker,
		User:          cfg.User,
		Password:      cfg.Password,
		Rooms:         cfg.RoomIDs,
		Workers:       cfg.HandlerWorkers,
		ShutdownGrace: cfg.ShutdownGrace,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	if err := session.Run(ctx); err != nil {
		return err
	}
	logger.Info("aadu stopped")
	return nil
}

// newLogger writes human-readable text to a terminal and JSON lines
// anywhere else.
func newLogger(output *os.File, debug bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		options.Level = slog.LevelDebug
	}
	if term.IsTerminal(int(output.Fd())) {
		return slog.New(slog.NewTextHandler(output, options))
	}
	return slog.New(slog.NewJSONHandler(output, options))
}
