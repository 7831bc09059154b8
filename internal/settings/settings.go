// Package settings holds the live configuration and hands out consistent
// snapshots to concurrent readers.
package settings

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/streamvr/server/internal/config"
)

// Provider is the read side the driver consults on host threads.
type Provider interface {
	OptimizeRenderLatency() bool
}

// Manager owns the current config. Readers get the pointer under a read
// lock and must treat it as immutable; Reload swaps in a new one.
type Manager struct {
	mu    sync.RWMutex
	path  string
	cfg   *config.Config
	hooks []func(old, new *config.Config)
}

func NewManager(path string, cfg *config.Config) *Manager {
	return &Manager{path: path, cfg: cfg}
}

// Config returns the current configuration snapshot.
func (m *Manager) Config() *config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) OptimizeRenderLatency() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Video.OptimizeGameRenderLatency
}

// OnReload registers fn to run after every successful reload, outside the
// manager's lock.
func (m *Manager) OnReload(fn func(old, new *config.Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// Reload re-reads the config file. An invalid file leaves the current
// config in place.
func (m *Manager) Reload() error {
	cfg, err := config.LoadOrDefault(m.path)
	if err != nil {
		return fmt.Errorf("reloading %s: %w", m.path, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("reloading %s: %w", m.path, err)
	}
	m.Set(cfg)
	return nil
}

// Set replaces the current config and runs the reload hooks.
func (m *Manager) Set(cfg *config.Config) {
	m.mu.Lock()
	old := m.cfg
	m.cfg = cfg
	hooks := append(([]func(old, new *config.Config))(nil), m.hooks...)
	m.mu.Unlock()

	changes := config.Diff(old, cfg)
	if len(changes) == 0 {
		log.Info().Msg("Config reloaded, no changes")
	}
	for _, c := range changes {
		log.Info().Str("change", c).Msg("Config changed")
	}
	for _, fn := range hooks {
		fn(old, cfg)
	}
}
