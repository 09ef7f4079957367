// Package eventbus delivers named events to frontend windows. An event
// addressed to a window goes to that window's subscribers only; an event
// with no window is broadcast.
package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event names pushed to windows.
const (
	EventGeneric      = "event"
	EventSystemColors = "system-colors-changed"
	EventDialogType   = "dialogType"
)

// Payloads of EventGeneric.
const (
	PayloadProfilesUpdated = "profiles_updated"
	PayloadTitleChanged    = "title-changed"
)

// Well-known window names.
const (
	WindowMain   = "main"
	WindowDialog = "dialog"
)

const defaultBuffer = 64

// Event is one message pushed to windows.
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"event"`
	Window    string    `json:"window,omitempty"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Bus fans events out to subscriptions.
type Bus struct {
	logger      *zap.Logger
	mu          sync.RWMutex
	subscribers map[uint64]*Subscription
	nextID      uint64
	published   atomic.Uint64
}

// Option customises the bus.
type Option func(*Bus)

// WithLogger sets the logger used for drop warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New constructs a bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		logger:      zap.NewNop(),
		subscribers: make(map[uint64]*Subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers ev to every matching subscription. It never blocks: a
// full subscription drops its oldest queued event.
func (b *Bus) Publish(ev Event) Event {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if b == nil {
		return ev
	}
	b.published.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		if sub.window != "" && ev.Window != "" && sub.window != ev.Window {
			continue
		}
		sub.deliver(ev, b.logger)
	}
	return ev
}

// Emit is shorthand for publishing name/payload to window ("" broadcasts).
func (b *Bus) Emit(window, name string, payload any) Event {
	return b.Publish(Event{Name: name, Window: window, Payload: payload})
}

// Published reports how many events have been published.
func (b *Bus) Published() uint64 {
	return b.published.Load()
}

// SubscriptionOption customises a subscription.
type SubscriptionOption func(*subscriptionConfig)

type subscriptionConfig struct {
	buffer int
	ctx    context.Context
}

// WithBuffer overrides the channel buffer.
func WithBuffer(size int) SubscriptionOption {
	return func(cfg *subscriptionConfig) {
		if size > 0 {
			cfg.buffer = size
		}
	}
}

// WithContext closes the subscription when ctx is done.
func WithContext(ctx context.Context) SubscriptionOption {
	return func(cfg *subscriptionConfig) {
		if ctx != nil {
			cfg.ctx = ctx
		}
	}
}

// Subscribe registers a listener for window. An empty window receives every
// event. Only events published after Subscribe returns are seen.
func (b *Bus) Subscribe(window string, opts ...SubscriptionOption) *Subscription {
	cfg := subscriptionConfig{buffer: defaultBuffer}
	for _, opt := range opts {
		opt(&cfg)
	}

	if b == nil {
		ch := make(chan Event)
		close(ch)
		sub := &Subscription{ch: ch, done: make(chan struct{})}
		close(sub.done)
		sub.closed.Store(true)
		return sub
	}

	sub := &Subscription{
		id:     atomic.AddUint64(&b.nextID, 1),
		window: window,
		ch:     make(chan Event, cfg.buffer),
		done:   make(chan struct{}),
		bus:    b,
	}

	b.mu.Lock()
	b.subscribers[sub.id] = sub
	b.mu.Unlock()

	if cfg.ctx != nil {
		go func() {
			select {
			case <-cfg.ctx.Done():
				sub.Close()
			case <-sub.done:
			}
		}()
	}
	return sub
}

// Shutdown closes every subscription.
func (b *Bus) Shutdown() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subscribers {
		sub.closeLocked()
		delete(b.subscribers, id)
	}
}

// Subscription is one listener.
type Subscription struct {
	id      uint64
	window  string
	ch      chan Event
	done    chan struct{}
	bus     *Bus
	closed  atomic.Bool
	dropped atomic.Uint64
	// sendMu keeps drop-oldest and close from racing on ch.
	sendMu sync.Mutex
}

// C exposes the event channel. It is closed when the subscription closes.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Window returns the window the subscription listens for.
func (s *Subscription) Window() string {
	return s.window
}

// Dropped reports how many events were discarded because the buffer was
// full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close removes the subscription and closes its channel.
func (s *Subscription) Close() {
	if s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subscribers, s.id)
	s.closeLocked()
}

func (s *Subscription) closeLocked() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	close(s.done)
	close(s.ch)
}

func (s *Subscription) deliver(ev Event, logger *zap.Logger) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed.Load() {
		return
	}

	select {
	case s.ch <- ev:
		return
	default:
	}

	select {
	case <-s.ch:
		s.recordDrop(logger, "drop-oldest")
	default:
	}
	select {
	case s.ch <- ev:
	default:
		s.recordDrop(logger, "drop-current")
	}
}

func (s *Subscription) recordDrop(logger *zap.Logger, reason string) {
	count := s.dropped.Add(1)
	logger.Debug("dropped event",
		zap.Uint64("count", count),
		zap.String("window", s.window),
		zap.String("reason", reason))
}
