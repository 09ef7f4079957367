package tray

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Status is the lifecycle of the tray icon.
type Status int

const (
	Uninitialized Status = iota
	Creating
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Creating:
		return "creating"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Renderer draws the tray. Create shows it for the first time; Update
// rebuilds it in place.
type Renderer interface {
	Create(menu []Item, icon []byte) error
	Update(menu []Item, icon []byte) error
}

// Source builds the tray state from the live store and display layout.
type Source func(ctx context.Context) State

// Synchronizer coalesces tray refresh requests. A request only marks the
// tray dirty; the single worker takes a fresh snapshot from the source when
// it renders, so the last render always follows the last request.
type Synchronizer struct {
	renderer Renderer
	source   Source
	icons    func(string) []byte
	logger   *zap.Logger

	mu       sync.Mutex
	dirty    bool
	status   Status
	rendered uint64
	wake     chan struct{}
	idle     *sync.Cond
	busy     bool
}

// NewSynchronizer creates a synchronizer that renders snapshots from source.
// Run must be started for requests to be rendered.
func NewSynchronizer(r Renderer, source Source, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Synchronizer{
		renderer: r,
		source:   source,
		icons:    IconFor,
		logger:   logger,
		wake:     make(chan struct{}, 1),
	}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// Request schedules a render. It never blocks.
func (s *Synchronizer) Request() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Status reports the tray lifecycle state.
func (s *Synchronizer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Rendered reports how many renders have completed, successful or not.
func (s *Synchronizer) Rendered() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rendered
}

// WaitIdle blocks until nothing is pending or being rendered.
func (s *Synchronizer) WaitIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.dirty || s.busy {
		s.idle.Wait()
	}
}

// Run renders until ctx is done.
func (s *Synchronizer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}

		s.mu.Lock()
		if !s.dirty {
			s.idle.Broadcast()
			s.mu.Unlock()
			continue
		}
		s.dirty = false
		s.busy = true
		status := s.status
		if status != Ready {
			s.status = Creating
		}
		s.mu.Unlock()

		// A request arriving while the snapshot is taken sets dirty again
		// and gets its own render.
		next := s.render(s.source(ctx), status)

		s.mu.Lock()
		s.status = next
		s.busy = false
		s.rendered++
		s.idle.Broadcast()
		s.mu.Unlock()
	}
}

func (s *Synchronizer) render(st State, status Status) Status {
	menu := BuildMenu(st)
	icon := s.icons(string(st.Icon))

	if status == Ready {
		if err := s.renderer.Update(menu, icon); err != nil {
			s.logger.Warn("failed to update tray menu", zap.Error(err))
		}
		return Ready
	}

	if err := s.renderer.Create(menu, icon); err != nil {
		s.logger.Error("failed to create tray icon", zap.Error(err))
		return Failed
	}
	s.logger.Debug("tray icon created", zap.Int("profiles", len(st.Profiles)))
	return Ready
}
