// Package watcher polls local desired-state files and reports changes.
//
// Changes are debounced so that an editor writing a file in several steps,
// or a deployment replacing many files at once, results in a single
// callback listing every changed file.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// ChangeFunc is called with the sorted paths that changed since the last call.
type ChangeFunc func(paths []string)

// Config holds watcher configuration.
type Config struct {
	// PollInterval is how often files are checked.
	// Default: 10 seconds
	PollInterval time.Duration

	// DebounceInterval is the time to wait for further changes before
	// calling back.
	// Default: 2 seconds
	DebounceInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:     10 * time.Second,
		DebounceInterval: 2 * time.Second,
	}
}

type fileState struct {
	exists  bool
	modTime time.Time
	size    int64
}

// Watcher polls files and calls back when they change.
type Watcher struct {
	paths    []string
	onChange ChangeFunc
	config   Config
	logger   *slog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	running  bool
	debounce *time.Timer
	seen     map[string]fileState
	pending  map[string]struct{}
}

// Option is a functional option for configuring the Watcher.
type Option func(*Watcher)

// WithConfig sets the watcher configuration.
func WithConfig(cfg Config) Option {
	return func(w *Watcher) {
		w.config = cfg
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a watcher for paths. Remote locations (containing "://")
// and duplicates are ignored.
func New(paths []string, onChange ChangeFunc, opts ...Option) *Watcher {
	w := &Watcher{
		onChange: onChange,
		config:   DefaultConfig(),
		logger:   slog.Default(),
		seen:     make(map[string]fileState),
		pending:  make(map[string]struct{}),
	}

	unique := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p == "" || strings.Contains(p, "://") {
			continue
		}
		if _, ok := unique[p]; ok {
			continue
		}
		unique[p] = struct{}{}
		w.paths = append(w.paths, p)
	}
	sort.Strings(w.paths)

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Paths returns the watched paths.
func (w *Watcher) Paths() []string {
	return w.paths
}

// Start records the current state of every file and begins polling.
// It does not block. Starting a watcher without paths is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running || len(w.paths) == 0 {
		w.mu.Unlock()
		return nil
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.running = true
	for _, p := range w.paths {
		w.seen[p] = stat(p)
	}
	w.mu.Unlock()

	go w.pollLoop(ctx)

	w.logger.Info("state file watcher started",
		slog.Int("files", len(w.paths)),
		slog.Duration("poll_interval", w.config.PollInterval),
		slog.Duration("debounce", w.config.DebounceInterval),
	)

	return nil
}

// Stop halts polling and drops pending changes.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.debounce != nil {
		w.debounce.Stop()
		w.debounce = nil
	}
	clear(w.pending)

	w.running = false
	w.logger.Info("state file watcher stopped")
}

// IsRunning returns whether the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	changed := false
	for _, p := range w.paths {
		cur := stat(p)
		if cur == w.seen[p] {
			continue
		}
		w.seen[p] = cur
		w.pending[p] = struct{}{}
		changed = true
		w.logger.Debug("state file changed",
			slog.String("path", p),
			slog.Bool("exists", cur.exists),
		)
	}
	if !changed {
		return
	}

	// Reset the timer on each change.
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.config.DebounceInterval, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.running || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	clear(w.pending)
	w.debounce = nil
	w.mu.Unlock()

	sort.Strings(paths)
	w.logger.Info("state files changed, triggering reconciliation", slog.Any("paths", paths))
	if w.onChange != nil {
		w.onChange(paths)
	}
}

func stat(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, modTime: info.ModTime(), size: info.Size()}
}
