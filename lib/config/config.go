// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/aadu-bot/aadu/lib/ref"
)

// Config is the bot's settings, loaded once at startup.
type Config struct {
	// HomeserverURL is the base URL of the Matrix homeserver, for
	// example https://matrix.example.org.
	HomeserverURL string `yaml:"homeserver_url"`

	// User is the bot account's localpart or full Matrix user ID.
	User string `yaml:"user"`

	// Password is the bot account's password.
	Password string `yaml:"password"`

	// RoomIDs is the set of rooms to join and listen in. Duplicates
	// are removed on load; order is otherwise preserved.
	RoomIDs []ref.RoomID `yaml:"room_ids"`

	// ScriptsPath is the directory holding handler executables.
	ScriptsPath string `yaml:"scripts_path"`

	// Debug lowers the log level to debug.
	Debug bool `yaml:"debug"`

	// HandlerTimeout bounds each handler run, probe or message.
	// Default: 30s
	HandlerTimeout time.Duration `yaml:"handler_timeout"`

	// HandlerWorkers is the number of handlers that may run at once.
	// Default: 4
	HandlerWorkers int `yaml:"handler_workers"`

	// ShutdownGrace is how long shutdown waits for running handlers
	// before killing them. Default: 10s
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`

	// SyncTimeout is how long the homeserver may hold each /sync long
	// poll open. Default: 30s
	SyncTimeout time.Duration `yaml:"sync_timeout"`
}

// requiredKeys must appear at the top level of every config file.
var requiredKeys = []string{
	"homeserver_url",
	"user",
	"password",
	"room_ids",
	"scripts_path",
	"debug",
}

// Default returns a Config holding the defaults for the optional keys.
// The required keys are left empty.
func Default() *Config {
	return &Config{
		HandlerTimeout: 30 * time.Second,
		HandlerWorkers: 4,
		ShutdownGrace:  10 * time.Second,
		SyncTimeout:    30 * time.Second,
	}
}

// LoadFile reads, decodes, expands, and validates the config file at
// path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document into a validated Config. Defaults are
// applied first, then the document, then variable expansion.
func Parse(data []byte) (*Config, error) {
	if err := checkRequiredKeys(data); err != nil {
		return nil, err
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decoding: %w", err)
	}

	cfg.RoomIDs = dedupeRooms(cfg.RoomIDs)
	cfg.expandVariables(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile adds the variables in a dotenv file to the process
// environment. Variables already set are left alone.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// checkRequiredKeys reports every required key absent from the top-level
// mapping of the document.
func checkRequiredKeys(data []byte) error {
	var document yaml.Node
	if err := yaml.Unmarshal(data, &document); err != nil {
		return fmt.Errorf("decoding: %w", err)
	}
	if len(document.Content) == 0 {
		return errors.New("config file is empty")
	}
	root := document.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("config root must be a mapping, got line %d", root.Line)
	}

	present := make(map[string]bool, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		present[root.Content[i].Value] = true
	}

	var errs []error
	for _, key := range requiredKeys {
		if !present[key] {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}
	return errors.Join(errs...)
}

func dedupeRooms(rooms []ref.RoomID) []ref.RoomID {
	seen := make(map[ref.RoomID]bool, len(rooms))
	unique := rooms[:0]
	for _, room := range rooms {
		if seen[room] {
			continue
		}
		seen[room] = true
		unique = append(unique, room)
	}
	return unique
}

// expandVariables expands ${VAR} patterns in the fields that commonly
// carry deployment-specific values.
func (c *Config) expandVariables(getenv func(string) string) {
	c.HomeserverURL = expandVars(c.HomeserverURL, getenv)
	c.User = expandVars(c.User, getenv)
	c.Password = expandVars(c.Password, getenv)
	c.ScriptsPath = expandVars(c.ScriptsPath, getenv)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default}. An unset or empty
// variable yields the default, or "" when there is none.
func expandVars(s string, getenv func(string) string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.HomeserverURL == "" {
		errs = append(errs, errors.New("homeserver_url must not be empty"))
	} else if parsed, err := url.Parse(c.HomeserverURL); err != nil {
		errs = append(errs, fmt.Errorf("homeserver_url: %w", err))
	} else if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("homeserver_url %q must be an absolute http or https URL", c.HomeserverURL))
	}

	if c.User == "" {
		errs = append(errs, errors.New("user must not be empty"))
	}
	if c.Password == "" {
		errs = append(errs, errors.New("password must not be empty"))
	}
	if len(c.RoomIDs) == 0 {
		errs = append(errs, errors.New("room_ids must list at least one room"))
	}
	for index, room := range c.RoomIDs {
		if room.IsZero() {
			errs = append(errs, fmt.Errorf("room_ids[%d] is empty", index))
		}
	}
	if c.ScriptsPath == "" {
		errs = append(errs, errors.New("scripts_path must not be empty"))
	}

	if c.HandlerTimeout <= 0 {
		errs = append(errs, fmt.Errorf("handler_timeout must be positive, got %s", c.HandlerTimeout))
	}
	if c.HandlerWorkers < 1 {
		errs = append(errs, fmt.Errorf("handler_workers must be at least 1, got %d", c.HandlerWorkers))
	}
	if c.ShutdownGrace <= 0 {
		errs = append(errs, fmt.Errorf("shutdown_grace must be positive, got %s", c.ShutdownGrace))
	}
	if c.SyncTimeout <= 0 {
		errs = append(errs, fmt.Errorf("sync_timeout must be positive, got %s", c.SyncTimeout))
	}

	return errors.Join(errs...)
}

// LogValue renders the configuration for structured logs, leaving out
// the password.
func (c *Config) LogValue() slog.Value {
	rooms := make([]string, len(c.RoomIDs))
	for index, room := range c.RoomIDs {
		rooms[index] = room.String()
	}
	return slog.GroupValue(
		slog.String("homeserver_url", c.HomeserverURL),
		slog.String("user", c.User),
		slog.Any("room_ids", rooms),
		slog.String("scripts_path", c.ScriptsPath),
		slog.Bool("debug", c.Debug),
		slog.Duration("handler_timeout", c.HandlerTimeout),
		slog.Int("handler_workers", c.HandlerWorkers),
		slog.Duration("shutdown_grace", c.ShutdownGrace),
		slog.Duration("sync_timeout", c.SyncTimeout),
	)
}
