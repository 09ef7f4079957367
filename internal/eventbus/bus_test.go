package eventbus_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/womp-app/womp/internal/eventbus"
)

func receive(t *testing.T, sub *eventbus.Subscription) eventbus.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C():
		if !ok {
			t.Fatal("subscription closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return eventbus.Event{}
}

func expectEmpty(t *testing.T, sub *eventbus.Subscription) {
	t.Helper()
	select {
	case ev := <-sub.C():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestPublishAssignsIDAndTimestamp(t *testing.T) {
	bus := eventbus.New(eventbus.WithLogger(zaptest.NewLogger(t)))
	sub := bus.Subscribe(eventbus.WindowMain)
	defer sub.Close()

	bus.Emit("", eventbus.EventGeneric, eventbus.PayloadProfilesUpdated)

	ev := receive(t, sub)
	if ev.ID == "" || ev.Timestamp.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", ev)
	}
	if ev.Name != eventbus.EventGeneric || ev.Payload != eventbus.PayloadProfilesUpdated {
		t.Fatalf("unexpected event %+v", ev)
	}
	if bus.Published() != 1 {
		t.Fatalf("expected 1 published, got %d", bus.Published())
	}
}

func TestWindowRouting(t *testing.T) {
	bus := eventbus.New()
	main := bus.Subscribe(eventbus.WindowMain)
	dialog := bus.Subscribe(eventbus.WindowDialog)
	all := bus.Subscribe("")
	defer main.Close()
	defer dialog.Close()
	defer all.Close()

	bus.Emit(eventbus.WindowDialog, eventbus.EventDialogType, "new-profile")

	if ev := receive(t, dialog); ev.Payload != "new-profile" {
		t.Fatalf("dialog got %+v", ev)
	}
	receive(t, all)
	expectEmpty(t, main)

	bus.Emit("", eventbus.EventGeneric, eventbus.PayloadProfilesUpdated)
	receive(t, main)
	receive(t, dialog)
	receive(t, all)
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	bus := eventbus.New()
	bus.Emit("", eventbus.EventGeneric, eventbus.PayloadProfilesUpdated)

	sub := bus.Subscribe(eventbus.WindowMain)
	defer sub.Close()
	expectEmpty(t, sub)
}

func TestDropOldest(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe(eventbus.WindowMain, eventbus.WithBuffer(1))
	defer sub.Close()

	bus.Emit("", "first", nil)
	bus.Emit("", "second", nil)

	if ev := receive(t, sub); ev.Name != "second" {
		t.Fatalf("expected newest event to survive, got %q", ev.Name)
	}
	if sub.Dropped() != 1 {
		t.Fatalf("expected 1 drop, got %d", sub.Dropped())
	}
}

func TestContextClosesSubscription(t *testing.T) {
	bus := eventbus.New()
	ctx, cancel := context.WithCancel(context.Background())
	sub := bus.Subscribe(eventbus.WindowMain, eventbus.WithContext(ctx))
	cancel()

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after cancel")
	}

	bus.Emit("", "after-close", nil)
}

func TestShutdownClosesAll(t *testing.T) {
	bus := eventbus.New()
	a := bus.Subscribe("a")
	b := bus.Subscribe("b")
	bus.Shutdown()

	for _, sub := range []*eventbus.Subscription{a, b} {
		if _, ok := <-sub.C(); ok {
			t.Fatal("expected closed channel")
		}
	}
	a.Close()
}

func TestNilBus(t *testing.T) {
	var bus *eventbus.Bus
	bus.Emit("", "x", nil)
	sub := bus.Subscribe("main")
	if _, ok := <-sub.C(); ok {
		t.Fatal("expected closed channel from nil bus")
	}
	sub.Close()
}
