package tray

import (
	"errors"
	"sync"
	"time"

	"fyne.io/systray"
)

const readyTimeout = 10 * time.Second

// ErrNotReady means the notification area did not accept the icon in time.
var ErrNotReady = errors.New("tray: system tray did not become ready")

// SystrayRenderer draws the tray with fyne.io/systray. Clicks are reported
// to OnClick with the item's action id.
type SystrayRenderer struct {
	OnClick func(id string)
	OnExit  func()

	mu      sync.Mutex
	started bool
	end     func()
	// stop releases the click watchers of the previous menu build.
	stop chan struct{}
}

func (r *SystrayRenderer) Create(menu []Item, icon []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		ready := make(chan struct{})
		start, end := systray.RunWithExternalLoop(func() { close(ready) }, r.exited)
		start()
		select {
		case <-ready:
		case <-time.After(readyTimeout):
			end()
			return ErrNotReady
		}
		r.started = true
		r.end = end
	}
	r.buildLocked(menu, icon)
	return nil
}

func (r *SystrayRenderer) Update(menu []Item, icon []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return ErrNotReady
	}
	r.buildLocked(menu, icon)
	return nil
}

// Close removes the tray icon.
func (r *SystrayRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
	if r.started {
		r.end()
		r.started = false
	}
}

func (r *SystrayRenderer) exited() {
	if r.OnExit != nil {
		r.OnExit()
	}
}

func (r *SystrayRenderer) buildLocked(menu []Item, icon []byte) {
	if r.stop != nil {
		close(r.stop)
	}
	r.stop = make(chan struct{})

	systray.ResetMenu()
	systray.SetIcon(icon)
	systray.SetTooltip(Tooltip)
	r.addItems(nil, menu, r.stop)
}

func (r *SystrayRenderer) addItems(parent *systray.MenuItem, items []Item, stop <-chan struct{}) {
	for _, it := range items {
		if it.Separator {
			if parent == nil {
				systray.AddSeparator()
			} else {
				parent.AddSeparator()
			}
			continue
		}

		var mi *systray.MenuItem
		if parent == nil {
			mi = systray.AddMenuItem(it.Label, "")
		} else {
			mi = parent.AddSubMenuItem(it.Label, "")
		}
		if len(it.Children) > 0 {
			r.addItems(mi, it.Children, stop)
			continue
		}
		go r.watch(mi, it.ID, stop)
	}
}

func (r *SystrayRenderer) watch(mi *systray.MenuItem, id string, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-mi.ClickedCh:
			if r.OnClick != nil {
				r.OnClick(id)
			}
		}
	}
}
