//go:build linux

package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/womp-app/womp/internal/layout"
	"github.com/womp-app/womp/internal/x11"
)

// LinuxBackend drives outputs through X11 RandR and the optional fields
// through the session desktop settings.
type LinuxBackend struct {
	SessionDesktop

	mu     sync.Mutex
	conn   *x11.Connection
	logger *zap.Logger
}

var _ Backend = (*LinuxBackend)(nil)

// New returns the backend for this platform.
func New(logger *zap.Logger) (Backend, error) {
	return NewLinuxBackend(logger)
}

// NewLinuxBackend opens an X11 connection.
func NewLinuxBackend(logger *zap.Logger) (*LinuxBackend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn, logger: logger}, nil
}

// Close disconnects from the X server.
func (b *LinuxBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	return nil
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b.conn != nil {
		return b.conn, nil
	}
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to reconnect to X11: %w", err)
	}
	b.conn = conn
	return conn, nil
}

// snapshot retries once on a fresh connection in case the server restarted.
func (b *LinuxBackend) snapshot() (*x11.Connection, *x11.Snapshot, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, nil, err
	}
	snap, err := conn.Snapshot()
	if err == nil {
		return conn, snap, nil
	}

	b.logger.Debug("randr snapshot failed, reconnecting", zap.Error(err))
	conn.Close()
	b.conn = nil
	if conn, err = b.connection(); err != nil {
		return nil, nil, err
	}
	snap, err = conn.Snapshot()
	if err != nil {
		return nil, nil, err
	}
	return conn, snap, nil
}

// ReadLayout returns the connected outputs and the session settings.
func (b *LinuxBackend) ReadLayout(ctx context.Context) (layout.Layout, error) {
	b.mu.Lock()
	_, snap, err := b.snapshot()
	b.mu.Unlock()
	if err != nil {
		return layout.Layout{}, err
	}

	var out layout.Layout
	for _, o := range snap.Outputs {
		if !o.Connected {
			continue
		}
		out.Displays = append(out.Displays, layout.Display{
			ID:             o.Name,
			Name:           o.Name,
			Enabled:        o.Enabled(),
			Primary:        o.Primary,
			X:              o.X,
			Y:              o.Y,
			Width:          o.Width,
			Height:         o.Height,
			RefreshMilliHz: o.RefreshMilliHz,
			Rotation:       o.Rotation,
		})
	}

	b.readSessionFields(ctx, &out)
	return out, nil
}

func (b *LinuxBackend) readSessionFields(ctx context.Context, l *layout.Layout) {
	if scale, err := b.DPIScale(ctx); err == nil {
		for i := range l.Displays {
			if l.Displays[i].Enabled {
				v := scale
				l.Displays[i].DPIScale = &v
			}
		}
	} else {
		b.logger.Debug("dpi scale unavailable", zap.Error(err))
	}

	if wp, err := b.Wallpaper(ctx); err == nil {
		l.Wallpaper = &wp
	} else {
		b.logger.Debug("wallpaper unavailable", zap.Error(err))
	}

	if sink, err := b.AudioOutput(ctx); err == nil {
		l.AudioOutput = &sink
	} else {
		b.logger.Debug("audio output unavailable", zap.Error(err))
	}
}

func (b *LinuxBackend) plan(l layout.Layout) (*x11.Connection, *x11.Plan, error) {
	if err := layout.Validate(l); err != nil {
		return nil, nil, err
	}

	conn, snap, err := b.snapshot()
	if err != nil {
		return nil, nil, err
	}

	configs := make([]x11.OutputConfig, 0, len(l.Displays))
	for _, d := range l.Displays {
		configs = append(configs, x11.OutputConfig{
			Name:           d.ID,
			Enabled:        d.Enabled,
			Primary:        d.Primary,
			X:              d.X,
			Y:              d.Y,
			Width:          d.Width,
			Height:         d.Height,
			RefreshMilliHz: d.RefreshMilliHz,
			Rotation:       d.Rotation,
		})
	}

	width, height := layout.Bounds(l)
	plan, err := x11.PlanOutputs(snap, configs, width, height)
	if err != nil {
		if errors.Is(err, x11.ErrMissingOutput) {
			return nil, nil, fmt.Errorf("%w: %v", ErrOutputMissing, err)
		}
		return nil, nil, err
	}
	if err := conn.CheckScreenSize(plan); err != nil {
		return nil, nil, err
	}
	return conn, plan, nil
}

// Validate resolves modes and CRTCs for l without changing anything.
func (b *LinuxBackend) Validate(_ context.Context, l layout.Layout) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _, err := b.plan(l)
	return err
}

// ApplyTopology commits l with the X server grabbed.
func (b *LinuxBackend) ApplyTopology(_ context.Context, l layout.Layout) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, plan, err := b.plan(l)
	if err != nil {
		return err
	}
	return conn.Commit(plan)
}

// PowerOff forces DPMS off on every monitor.
func (b *LinuxBackend) PowerOff(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.ForceDisplaysOff()
}
