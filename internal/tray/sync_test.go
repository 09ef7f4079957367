package tray

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type call struct {
	op     string
	active string
}

type fakeRenderer struct {
	mu        sync.Mutex
	calls     []call
	createErr error
	entered   chan string
	gate      chan struct{}
}

func (f *fakeRenderer) record(op string, menu []Item) error {
	active := ""
	for _, it := range menu {
		if len(it.Label) > len(" (Active)") && it.Label[len(it.Label)-len(" (Active)"):] == " (Active)" {
			active = it.ID
		}
	}
	if f.entered != nil {
		f.entered <- active
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: op, active: active})
	if op == "create" && f.createErr != nil {
		err := f.createErr
		f.createErr = nil
		return err
	}
	return nil
}

func (f *fakeRenderer) Create(menu []Item, _ []byte) error { return f.record("create", menu) }
func (f *fakeRenderer) Update(menu []Item, _ []byte) error { return f.record("update", menu) }

func (f *fakeRenderer) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func stateWithActive(active string) State {
	return State{Profiles: []Entry{{Name: "a"}, {Name: "b"}, {Name: "c"}}, Active: active}
}

// liveState is a Source whose answer the test changes between requests.
type liveState struct {
	mu    sync.Mutex
	state State
	calls int
}

func (l *liveState) set(st State) {
	l.mu.Lock()
	l.state = st
	l.mu.Unlock()
}

func (l *liveState) snapshot(context.Context) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.state
}

func startSync(t *testing.T, r Renderer, live *liveState) *Synchronizer {
	t.Helper()
	s := NewSynchronizer(r, live.snapshot, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)
	return s
}

func TestSynchronizer_CreatesThenUpdates(t *testing.T) {
	r := &fakeRenderer{}
	live := &liveState{}
	s := startSync(t, r, live)

	if s.Status() != Uninitialized {
		t.Fatalf("expected uninitialized, got %s", s.Status())
	}
	live.set(stateWithActive("a"))
	s.Request()
	s.WaitIdle()
	live.set(stateWithActive("b"))
	s.Request()
	s.WaitIdle()

	got := r.snapshot()
	want := []call{{"create", "apply-a"}, {"update", "apply-b"}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("unexpected calls %v", got)
	}
	if s.Status() != Ready {
		t.Fatalf("expected ready, got %s", s.Status())
	}
}

func TestSynchronizer_CoalescesToLatest(t *testing.T) {
	r := &fakeRenderer{entered: make(chan string, 4), gate: make(chan struct{})}
	live := &liveState{}
	s := startSync(t, r, live)

	live.set(stateWithActive("a"))
	s.Request()
	select {
	case <-r.entered:
	case <-time.After(time.Second):
		t.Fatal("worker never started rendering")
	}

	live.set(stateWithActive("b"))
	s.Request()
	live.set(stateWithActive("c"))
	s.Request()
	close(r.gate)
	s.WaitIdle()

	got := r.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected two renders, got %v", got)
	}
	if got[0].active != "apply-a" || got[1].active != "apply-c" {
		t.Fatalf("expected a then c, got %v", got)
	}
	if got[1].op != "update" {
		t.Fatalf("second render should update in place, got %s", got[1].op)
	}
}

func TestSynchronizer_FailedCreateRetries(t *testing.T) {
	r := &fakeRenderer{createErr: errors.New("no tray host")}
	s := startSync(t, r, &liveState{})

	s.Request()
	s.WaitIdle()
	if s.Status() != Failed {
		t.Fatalf("expected failed, got %s", s.Status())
	}

	s.Request()
	s.WaitIdle()
	if s.Status() != Ready {
		t.Fatalf("expected ready after retry, got %s", s.Status())
	}
	got := r.snapshot()
	if len(got) != 2 || got[0].op != "create" || got[1].op != "create" {
		t.Fatalf("expected two create attempts, got %v", got)
	}
}

func TestSynchronizer_RequestNeverBlocks(t *testing.T) {
	s := NewSynchronizer(&fakeRenderer{}, (&liveState{}).snapshot, nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Request()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Request blocked without a running worker")
	}
}

// A state change that lands while the worker is building a snapshot must
// still reach the tray, even if the earlier snapshot finishes last.
func TestSynchronizer_SnapshotTakenAtRenderTime(t *testing.T) {
	r := &fakeRenderer{}
	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	current := stateWithActive("a")
	first := true
	source := func(context.Context) State {
		mu.Lock()
		st := current
		gate := first
		first = false
		mu.Unlock()
		if gate {
			close(entered)
			<-release
		}
		return st
	}
	s := NewSynchronizer(r, source, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.Request()
	<-entered
	mu.Lock()
	current = State{Profiles: []Entry{{Name: "b"}}, Active: "b"}
	mu.Unlock()
	s.Request()
	close(release)
	s.WaitIdle()

	got := r.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected two renders, got %v", got)
	}
	if got[1].active != "apply-b" {
		t.Fatalf("final render shows %q, want apply-b", got[1].active)
	}
}

func TestSynchronizer_IdleRequestsShareOneSnapshot(t *testing.T) {
	r := &fakeRenderer{}
	live := &liveState{}
	s := NewSynchronizer(r, live.snapshot, zaptest.NewLogger(t))
	for i := 0; i < 5; i++ {
		s.Request()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)
	s.WaitIdle()

	live.mu.Lock()
	calls := live.calls
	live.mu.Unlock()
	if calls != 1 || len(r.snapshot()) != 1 {
		t.Fatalf("snapshots = %d, renders = %d, want 1 and 1", calls, len(r.snapshot()))
	}
}
