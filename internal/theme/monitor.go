package theme

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/womp-app/womp/internal/config"
)

// DefaultPollInterval is how often the monitor re-reads desktop colors.
const DefaultPollInterval = 5 * time.Second

// Monitor tracks the current palette and reports changes while color
// events are enabled.
type Monitor struct {
	src      Source
	themeFn  func() config.Theme
	onChange func(colors []string)
	interval time.Duration
	logger   *zap.Logger

	enabled atomic.Bool
	mu      sync.Mutex
	last    []string
}

// NewMonitor creates a monitor. themeFn returns the configured theme and
// onChange receives the nine color strings.
func NewMonitor(src Source, themeFn func() config.Theme, onChange func([]string), logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		src:      src,
		themeFn:  themeFn,
		onChange: onChange,
		interval: DefaultPollInterval,
		logger:   logger,
	}
}

// SetInterval overrides the poll interval. Call before Run.
func (m *Monitor) SetInterval(d time.Duration) {
	if d > 0 {
		m.interval = d
	}
}

// Colors returns the current color strings.
func (m *Monitor) Colors() []string {
	return Resolve(m.src, m.themeFn()).Colors()
}

// SetEnabled turns change notifications on or off.
func (m *Monitor) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

// Enabled reports whether change notifications are on.
func (m *Monitor) Enabled() bool {
	return m.enabled.Load()
}

// Check re-reads the palette and notifies when it changed since the last
// check. It returns true when a notification was sent.
func (m *Monitor) Check() bool {
	colors := m.Colors()

	m.mu.Lock()
	changed := m.last != nil && !slices.Equal(m.last, colors)
	m.last = colors
	m.mu.Unlock()

	if !changed || !m.enabled.Load() || m.onChange == nil {
		return false
	}
	m.logger.Debug("system colors changed", zap.Strings("colors", colors))
	m.onChange(colors)
	return true
}

// Run polls until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Check()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check()
		}
	}
}
