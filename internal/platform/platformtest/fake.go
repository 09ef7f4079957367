// Package platformtest provides an in-memory display backend for tests.
package platformtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/womp-app/womp/internal/layout"
	"github.com/womp-app/womp/internal/platform"
)

// Fake keeps a live layout in memory and records every mutating call.
type Fake struct {
	mu    sync.Mutex
	live  layout.Layout
	calls []string

	applying    int
	maxApplying int

	ReadErr     error
	ValidateErr error
	ApplyErr    error
	PowerErr    error
	// SetErr fails individual setters, keyed by method name.
	SetErr map[string]error
	// ApplyHook runs inside ApplyTopology before the live layout changes.
	ApplyHook func()
	// ReadHook runs at the start of ReadLayout.
	ReadHook func()
}

var _ platform.Backend = (*Fake)(nil)

// New returns a Fake whose live layout is live.
func New(live layout.Layout) *Fake {
	return &Fake{live: live.Clone(), SetErr: map[string]error{}}
}

// Live returns a copy of the current live layout.
func (f *Fake) Live() layout.Layout {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live.Clone()
}

// SetLive replaces the live layout, e.g. to simulate a hotplug.
func (f *Fake) SetLive(l layout.Layout) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live = l.Clone()
}

// SetReadHook installs fn as ReadHook while other goroutines may be reading.
func (f *Fake) SetReadHook(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReadHook = fn
}

// Calls returns the recorded mutating calls in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// MaxConcurrentApplies reports the highest number of overlapping
// ApplyTopology calls observed.
func (f *Fake) MaxConcurrentApplies() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxApplying
}

func (f *Fake) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *Fake) ReadLayout(context.Context) (layout.Layout, error) {
	f.mu.Lock()
	hook := f.ReadHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadErr != nil {
		return layout.Layout{}, f.ReadErr
	}
	return f.live.Clone(), nil
}

func (f *Fake) Validate(_ context.Context, l layout.Layout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := layout.Validate(l); err != nil {
		return err
	}
	if missing := layout.Missing(l, f.live); len(missing) > 0 {
		return fmt.Errorf("%w: %v", platform.ErrOutputMissing, missing)
	}
	return f.ValidateErr
}

func (f *Fake) ApplyTopology(_ context.Context, l layout.Layout) error {
	f.mu.Lock()
	f.applying++
	if f.applying > f.maxApplying {
		f.maxApplying = f.applying
	}
	hook := f.ApplyHook
	f.mu.Unlock()

	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.applying--
	f.record("ApplyTopology")
	if f.ApplyErr != nil {
		return f.ApplyErr
	}

	for i := range f.live.Displays {
		cur := &f.live.Displays[i]
		want, ok := l.Find(cur.ID)
		if !ok {
			continue
		}
		cur.Enabled = want.Enabled
		cur.Primary = want.Primary
		cur.X, cur.Y = want.X, want.Y
		cur.Width, cur.Height = want.Width, want.Height
		cur.RefreshMilliHz = want.RefreshMilliHz
		cur.Rotation = want.Rotation
	}
	return nil
}

func (f *Fake) PowerOff(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PowerOff")
	return f.PowerErr
}

func (f *Fake) setter(name string, apply func(), format string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(name+" "+format, args...)
	if err := f.SetErr[name]; err != nil {
		return err
	}
	apply()
	return nil
}

func (f *Fake) display(id string) *layout.Display {
	for i := range f.live.Displays {
		if f.live.Displays[i].ID == id {
			return &f.live.Displays[i]
		}
	}
	return &layout.Display{}
}

func (f *Fake) SetDPIScale(_ context.Context, id string, percent int) error {
	return f.setter("SetDPIScale", func() { f.display(id).DPIScale = &percent }, "%s %d", id, percent)
}

func (f *Fake) SetHDR(_ context.Context, id string, enabled bool) error {
	return f.setter("SetHDR", func() { f.display(id).HDREnabled = &enabled }, "%s %t", id, enabled)
}

func (f *Fake) SetSDRWhiteLevel(_ context.Context, id string, nits int) error {
	return f.setter("SetSDRWhiteLevel", func() { f.display(id).SDRWhiteLevel = &nits }, "%s %d", id, nits)
}

func (f *Fake) SetIconSize(_ context.Context, size int) error {
	return f.setter("SetIconSize", func() { f.live.IconSize = &size }, "%d", size)
}

func (f *Fake) SetWallpaper(_ context.Context, wp layout.Wallpaper) error {
	return f.setter("SetWallpaper", func() { f.live.Wallpaper = &wp }, "%s %s", wp.Path, wp.Position)
}

func (f *Fake) SetAudioOutput(_ context.Context, device string) error {
	return f.setter("SetAudioOutput", func() { f.live.AudioOutput = &device }, "%s", device)
}
