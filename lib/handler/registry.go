// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aadu-bot/aadu/lib/binhash"
)

// ErrNoHandlersConfigured is returned by Build when no handler in the
// scripts directory registered a usable pattern.
var ErrNoHandlersConfigured = errors.New("no handlers configured")

// defaultProbeConcurrency bounds concurrent configuration probes when
// RegistryConfig leaves Concurrency unset.
const defaultProbeConcurrency = 4

// Entry is one registered handler.
type Entry struct {
	// Pattern is the compiled, case-insensitive pattern.
	Pattern *regexp.Regexp
	// Source is the pattern exactly as the handler printed it.
	Source string
	// Path is the absolute path of the handler executable.
	Path string
	// Digest is the BLAKE3 hash of the executable at registration.
	Digest binhash.Digest
}

// Table is the ordered routing table produced by Build. It is never
// modified after Build returns and is safe for concurrent reads.
type Table struct {
	entries []Entry
}

// NewTable returns a table over entries in the given order. Build is
// the usual constructor; NewTable serves callers that assemble entries
// themselves.
func NewTable(entries ...Entry) *Table {
	return &Table{entries: append([]Entry(nil), entries...)}
}

// Match returns the first entry whose pattern matches anywhere in text.
func (t *Table) Match(text string) (Entry, bool) {
	for _, entry := range t.entries {
		if entry.Pattern.MatchString(text) {
			return entry, true
		}
	}
	return Entry{}, false
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns a copy of the entries in match order.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Prober runs a handler in configuration mode. *Invoker implements it.
type Prober interface {
	Configure(ctx context.Context, path string) (string, error)
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// ScriptsPath is the directory to scan. Required.
	ScriptsPath string
	// Prober runs configuration probes. Required.
	Prober Prober
	// Concurrency bounds simultaneous probes. Default 4.
	Concurrency int
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Registry builds the routing table from a scripts directory, once.
// A failed Build is not remembered; the next call scans again.
type Registry struct {
	scriptsPath string
	prober      Prober
	concurrency int
	logger      *slog.Logger

	mu    sync.Mutex
	table *Table
}

// NewRegistry returns a Registry that has not scanned yet.
func NewRegistry(config RegistryConfig) *Registry {
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = defaultProbeConcurrency
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		scriptsPath: config.ScriptsPath,
		prober:      config.Prober,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Build scans the scripts directory and returns the routing table.
// After the first successful scan every call returns that same table
// without rescanning. Concurrent calls are serialized.
func (r *Registry) Build(ctx context.Context) (*Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.table != nil {
		return r.table, nil
	}
	table, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}
	r.table = table
	return table, nil
}

// probeResult is the outcome of probing one handler.
type probeResult struct {
	path    string
	pattern string
	digest  binhash.Digest
	err     error
}

func (r *Registry) scan(ctx context.Context) (*Table, error) {
	if r.prober == nil {
		return nil, fmt.Errorf("handler registry: no prober configured")
	}
	directory, err := filepath.Abs(r.scriptsPath)
	if err != nil {
		return nil, fmt.Errorf("resolving scripts path %q: %w", r.scriptsPath, err)
	}
	listing, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("reading scripts directory: %w", err)
	}

	var paths []string
	for _, dirEntry := range listing {
		path := filepath.Join(directory, dirEntry.Name())
		info, err := os.Stat(path)
		if err != nil {
			r.logger.Warn("skipping unreadable handler", "path", path, "error", err)
			continue
		}
		if info.IsDir() {
			continue
		}
		paths = append(paths, path)
	}

	results := make([]probeResult, len(paths))
	var group errgroup.Group
	group.SetLimit(r.concurrency)
	for index, path := range paths {
		group.Go(func() error {
			results[index] = r.probe(ctx, path)
			return nil
		})
	}
	group.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scanning handlers: %w", err)
	}

	table := &Table{}
	slots := make(map[string]int)
	for _, result := range results {
		if result.err != nil {
			r.logger.Warn("skipping handler", "path", result.path, "error", result.err)
			continue
		}
		pattern, err := regexp.Compile("(?i)" + result.pattern)
		if err != nil {
			r.logger.Warn("skipping handler with invalid pattern",
				"path", result.path,
				"pattern", result.pattern,
				"error", err,
			)
			continue
		}
		entry := Entry{
			Pattern: pattern,
			Source:  result.pattern,
			Path:    result.path,
			Digest:  result.digest,
		}
		if slot, seen := slots[result.pattern]; seen {
			r.logger.Info("handler pattern overridden",
				"pattern", result.pattern,
				"previous_path", table.entries[slot].Path,
				"path", result.path,
			)
			table.entries[slot] = entry
			continue
		}
		slots[result.pattern] = len(table.entries)
		table.entries = append(table.entries, entry)
	}

	if table.Len() == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoHandlersConfigured, directory)
	}
	for _, entry := range table.entries {
		r.logger.Info("handler registered",
			"path", entry.Path,
			"pattern", entry.Source,
			"digest", entry.Digest.Short(),
		)
	}
	return table, nil
}

func (r *Registry) probe(ctx context.Context, path string) probeResult {
	result := probeResult{path: path}
	result.pattern, result.err = r.prober.Configure(ctx, path)
	if result.err != nil {
		return result
	}
	if result.pattern == "" {
		result.err = errors.New("configuration probe printed no pattern")
		return result
	}
	result.digest, result.err = binhash.HashFile(path)
	return result
}
