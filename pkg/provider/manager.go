// Package provider contains the provider manager for graceful provider initialization.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// ManagerConfig holds configuration for the provider manager.
type ManagerConfig struct {
	// InitialRetryInterval is the first interval between retry attempts for failed providers.
	// Default: 5 seconds.
	InitialRetryInterval time.Duration

	// MaxRetryInterval caps the exponential backoff.
	// Default: 5 minutes.
	MaxRetryInterval time.Duration

	// PingTimeout bounds the connectivity check of each attempt.
	// Default: 10 seconds.
	PingTimeout time.Duration

	// PollInterval is how often the retry loop looks for providers that are due.
	// Default: 1 second.
	PollInterval time.Duration
}

// DefaultManagerConfig returns a ManagerConfig with sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		InitialRetryInterval: 5 * time.Second,
		MaxRetryInterval:     5 * time.Minute,
		PingTimeout:          10 * time.Second,
		PollInterval:         time.Second,
	}
}

// InstanceConfig describes one provider instance to create.
type InstanceConfig struct {
	Name   string
	Type   string
	Config map[string]string
}

// Validate checks the fields the manager itself depends on.
func (c InstanceConfig) Validate() error {
	if c.Name == "" {
		return ErrConfigMissing("name")
	}
	if c.Type == "" {
		return ErrConfigMissing("type")
	}
	return nil
}

// StatusFunc is notified whenever a provider becomes available or fails an attempt.
type StatusFunc func(name, typeName string, available bool)

// PendingProvider holds configuration and state for a provider that failed to initialize.
type PendingProvider struct {
	Config       InstanceConfig
	LastError    error
	LastAttempt  time.Time
	AttemptCount int
	NextRetryAt  time.Time

	backoff retry.Backoff
}

// Manager handles graceful provider initialization with retry logic.
// It wraps a Registry and provides:
//   - Non-fatal initialization: providers that fail to connect don't stop the service
//   - Background retry: failed providers are retried with exponential backoff
//   - Status reporting: tracks which providers are ready vs pending
type Manager struct {
	registry *Registry
	config   ManagerConfig
	logger   *slog.Logger
	onStatus StatusFunc

	mu      sync.RWMutex
	pending map[string]*PendingProvider
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// ManagerOption is a functional option for configuring the Manager.
type ManagerOption func(*Manager)

// WithManagerConfig sets the manager configuration.
func WithManagerConfig(cfg ManagerConfig) ManagerOption {
	return func(m *Manager) {
		m.config = cfg
	}
}

// WithManagerLogger sets a custom logger for the manager.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithStatusFunc registers a callback for availability changes.
func WithStatusFunc(fn StatusFunc) ManagerOption {
	return func(m *Manager) {
		m.onStatus = fn
	}
}

// NewManager creates a new provider manager wrapping the given registry.
func NewManager(registry *Registry, opts ...ManagerOption) *Manager {
	m := &Manager{
		registry: registry,
		config:   DefaultManagerConfig(),
		logger:   slog.Default(),
		onStatus: func(string, string, bool) {},
		pending:  make(map[string]*PendingProvider),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Manager) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(m.config.MaxRetryInterval, retry.NewExponential(m.config.InitialRetryInterval))
}

// InitializeProvider attempts to create a provider instance and verify connectivity.
// If creation or the connectivity check fails, the provider is queued for retry.
// Only returns an error if the configuration itself is invalid.
func (m *Manager) InitializeProvider(ctx context.Context, cfg InstanceConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid provider config %q: %w", cfg.Name, err)
	}

	err := m.attempt(ctx, cfg)
	if err == nil {
		m.logger.Info("provider initialized and connected",
			slog.String("provider", cfg.Name),
			slog.String("type", cfg.Type),
		)
		m.onStatus(cfg.Name, cfg.Type, true)
		return nil
	}

	backoff := m.newBackoff()
	wait, _ := backoff.Next()

	m.mu.Lock()
	m.pending[cfg.Name] = &PendingProvider{
		Config:       cfg,
		LastError:    err,
		LastAttempt:  time.Now(),
		AttemptCount: 1,
		NextRetryAt:  time.Now().Add(wait),
		backoff:      backoff,
	}
	m.mu.Unlock()

	m.onStatus(cfg.Name, cfg.Type, false)
	m.logger.Warn("provider initialization failed, will retry",
		slog.String("provider", cfg.Name),
		slog.String("type", cfg.Type),
		slog.String("error", err.Error()),
		slog.Duration("retry_in", wait),
	)
	return nil
}

// attempt creates the instance and pings it. A provider that is created but
// unreachable is removed again.
func (m *Manager) attempt(ctx context.Context, cfg InstanceConfig) error {
	if err := m.registry.CreateInstance(cfg.Name, cfg.Type, cfg.Config); err != nil {
		return err
	}
	p, ok := m.registry.Get(cfg.Name)
	if !ok {
		return fmt.Errorf("provider %s vanished after creation", cfg.Name)
	}

	pingCtx, cancel := context.WithTimeout(ctx, m.config.PingTimeout)
	defer cancel()
	if err := p.Ping(pingCtx); err != nil {
		m.registry.Remove(cfg.Name)
		return fmt.Errorf("connectivity check failed: %w", err)
	}
	return nil
}

// Start begins the background retry loop for pending providers.
// Call this after initializing all providers.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("provider manager already running")
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	go m.retryLoop(ctx)

	m.logger.Info("provider manager started",
		slog.Int("ready_providers", m.ReadyCount()),
		slog.Int("pending_providers", m.PendingCount()),
	)
	return nil
}

// Stop shuts down the background retry loop and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	<-m.doneCh
	m.logger.Info("provider manager stopped")
}

func (m *Manager) retryLoop(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.retryPendingProviders(ctx)
		}
	}
}

func (m *Manager) retryPendingProviders(ctx context.Context) {
	m.mu.Lock()
	var due []*PendingProvider
	now := time.Now()
	for _, p := range m.pending {
		if !now.Before(p.NextRetryAt) {
			due = append(due, p)
		}
	}
	m.mu.Unlock()

	for _, p := range due {
		m.retryProvider(ctx, p)
	}
}

func (m *Manager) retryProvider(ctx context.Context, pending *PendingProvider) {
	cfg := pending.Config

	m.logger.Debug("retrying provider initialization",
		slog.String("provider", cfg.Name),
		slog.Int("attempt", pending.AttemptCount+1),
	)

	err := m.attempt(ctx, cfg)

	if err == nil {
		m.onStatus(cfg.Name, cfg.Type, true)

		m.mu.Lock()
		delete(m.pending, cfg.Name)
		m.mu.Unlock()

		m.logger.Info("provider initialized and connected after retry",
			slog.String("provider", cfg.Name),
			slog.String("type", cfg.Type),
			slog.Int("attempts", pending.AttemptCount+1),
		)
		return
	}

	m.mu.Lock()
	wait, _ := pending.backoff.Next()
	pending.LastError = err
	pending.LastAttempt = time.Now()
	pending.AttemptCount++
	pending.NextRetryAt = time.Now().Add(wait)
	m.mu.Unlock()

	m.onStatus(cfg.Name, cfg.Type, false)
	m.logger.Warn("provider retry failed",
		slog.String("provider", cfg.Name),
		slog.String("error", err.Error()),
		slog.Int("attempt", pending.AttemptCount),
		slog.Duration("next_retry_in", wait),
	)
}

// Registry returns the underlying provider registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// PendingCount returns the number of providers pending initialization.
func (m *Manager) PendingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pending)
}

// ReadyCount returns the number of ready (initialized) providers.
func (m *Manager) ReadyCount() int {
	return m.registry.Count()
}

// IsFullyReady returns true if all configured providers are initialized.
func (m *Manager) IsFullyReady() bool {
	return m.PendingCount() == 0
}

// ProviderStatus represents the availability status of a provider for health checks.
type ProviderStatus struct {
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Available   bool      `json:"available"`
	Error       string    `json:"error,omitempty"`
	Attempts    int       `json:"attempts,omitempty"`
	NextRetryAt time.Time `json:"next_retry_at,omitzero"`
}

// AllProviderStatuses returns the status of all configured providers (ready and pending).
func (m *Manager) AllProviderStatuses() []ProviderStatus {
	statuses := make([]ProviderStatus, 0)

	for _, p := range m.registry.All() {
		statuses = append(statuses, ProviderStatus{
			Name:      p.Name(),
			Type:      p.Type(),
			Available: true,
		})
	}

	m.mu.RLock()
	for _, p := range m.pending {
		statuses = append(statuses, ProviderStatus{
			Name:        p.Config.Name,
			Type:        p.Config.Type,
			Available:   false,
			Error:       p.LastError.Error(),
			Attempts:    p.AttemptCount,
			NextRetryAt: p.NextRetryAt,
		})
	}
	m.mu.RUnlock()

	return statuses
}
