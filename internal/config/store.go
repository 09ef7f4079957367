package config

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/womp-app/womp/internal/womperr"
)

// AutostartMirror registers or unregisters the application with the OS
// session startup mechanism.
type AutostartMirror interface {
	SetEnabled(enabled bool) error
}

// Store owns the single in-memory GlobalConfig. It is loaded once and every
// write goes through Set.
type Store struct {
	// writeMu orders whole Set calls, so the OS autostart registration
	// always matches the last stored value. mu only guards cfg.
	writeMu sync.Mutex
	mu      sync.RWMutex

	path   string
	cfg    GlobalConfig
	mirror AutostartMirror
	logger *zap.Logger
}

// NewStore loads the config at path. An unreadable or malformed file is
// logged and replaced by defaults so the daemon can still start; the file is
// rewritten on the next Set.
func NewStore(path string, mirror AutostartMirror, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := LoadFromPath(path)
	if err != nil {
		logger.Warn("global config unreadable, using defaults",
			zap.String("path", path), zap.Error(err))
	}
	return &Store{
		path:   path,
		cfg:    cfg,
		mirror: mirror,
		logger: logger,
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the current config.
func (s *Store) Get() GlobalConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Set replaces the config with cfg after normalization and returns the
// stored value. Persistence failures leave the previous config in place.
//
// The autostart flag is mirrored into the OS after the write is accepted. If
// that fails the new config stays stored and the returned error wraps
// womperr.ErrAutostartMismatch.
func (s *Store) Set(cfg GlobalConfig) (GlobalConfig, error) {
	cfg = cfg.Normalize()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := SaveToPath(s.path, cfg); err != nil {
		return s.Get(), fmt.Errorf("%w: %v", womperr.ErrPersistence, err)
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	if s.mirror == nil {
		return cfg, nil
	}
	if err := s.mirror.SetEnabled(cfg.Autostart); err != nil {
		s.logger.Warn("autostart registration failed",
			zap.Bool("autostart", cfg.Autostart), zap.Error(err))
		return cfg, fmt.Errorf("%w: %v", womperr.ErrAutostartMismatch, err)
	}
	return cfg, nil
}
