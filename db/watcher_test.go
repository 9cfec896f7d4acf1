package db

import (
	"reflect"
	"testing"
)

// fakeSource records subscribe/detach ordering and lets tests fire events.
type fakeSource struct {
	log      []string
	notifies map[string]func()
	detached map[string]bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		notifies: map[string]func(){},
		detached: map[string]bool{},
	}
}

func (f *fakeSource) subscribe(schoolYear, classSection string, notify func()) (func(), error) {
	path := schoolYear + "/" + classSection
	f.log = append(f.log, "subscribe "+path)
	f.notifies[path] = notify
	return func() {
		f.log = append(f.log, "detach "+path)
		f.detached[path] = true
		delete(f.notifies, path)
	}, nil
}

func (f *fakeSource) fire(path string) {
	if notify, ok := f.notifies[path]; ok {
		notify()
	}
}

func TestWatcherDetachesBeforeReattaching(t *testing.T) {
	src := newFakeSource()
	w := NewClassWatcher(src.subscribe)
	defer w.Close()

	if err := w.Watch("2026", "G3A"); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	if err := w.Watch("2026", "G3B"); err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	want := []string{"subscribe 2026/G3A", "detach 2026/G3A", "subscribe 2026/G3B"}
	if !reflect.DeepEqual(src.log, want) {
		t.Fatalf("wrong ordering: %v", src.log)
	}
}

func TestWatcherDeliversEventsForCurrentClassOnly(t *testing.T) {
	src := newFakeSource()
	w := NewClassWatcher(src.subscribe)
	defer w.Close()

	if err := w.Watch("2026", "G3A"); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	src.fire("2026/G3A")

	if err := w.Watch("2026", "G3B"); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	// The buffered event from the old class must be gone.
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected stale event: %+v", ev)
	default:
	}

	// A detached source can no longer reach the watcher at all.
	src.fire("2026/G3A")
	select {
	case ev := <-w.Events():
		t.Fatalf("stale subscription still live: %+v", ev)
	default:
	}

	src.fire("2026/G3B")
	select {
	case ev := <-w.Events():
		if ev.ClassSection != "G3B" {
			t.Fatalf("event for wrong class: %+v", ev)
		}
	default:
		t.Fatal("expected event for current class")
	}
}

func TestWatcherDropsNotifyArrivingAfterDetach(t *testing.T) {
	// A source may have a delivery in flight when detach returns; the
	// watcher must not surface it as an event for the old class.
	var lateNotify func()
	subscribe := func(schoolYear, classSection string, notify func()) (func(), error) {
		if schoolYear+"/"+classSection == "2026/G3A" {
			lateNotify = notify
		}
		return func() {}, nil
	}
	w := NewClassWatcher(subscribe)
	defer w.Close()

	if err := w.Watch("2026", "G3A"); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	if err := w.Watch("2026", "G3B"); err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	// The old subscription's delivery lands only now, after the switch.
	lateNotify()
	select {
	case ev := <-w.Events():
		t.Fatalf("stale event for detached class delivered: %+v", ev)
	default:
	}
}

func TestWatcherDropsNotifyAfterClose(t *testing.T) {
	var lateNotify func()
	w := NewClassWatcher(func(schoolYear, classSection string, notify func()) (func(), error) {
		lateNotify = notify
		return func() {}, nil
	})
	if err := w.Watch("2026", "G1A"); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	w.Close()

	lateNotify()
	select {
	case ev := <-w.Events():
		t.Fatalf("event delivered after close: %+v", ev)
	default:
	}
}

func TestWatcherCoalescesBursts(t *testing.T) {
	src := newFakeSource()
	w := NewClassWatcher(src.subscribe)
	defer w.Close()

	if err := w.Watch("2026", "G1A"); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	src.fire("2026/G1A")
	src.fire("2026/G1A")
	src.fire("2026/G1A")

	<-w.Events()
	select {
	case <-w.Events():
		t.Fatal("burst should coalesce into one event")
	default:
	}
}

func TestWatcherClose(t *testing.T) {
	src := newFakeSource()
	w := NewClassWatcher(src.subscribe)
	if err := w.Watch("2026", "G2A"); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	w.Close()
	if !src.detached["2026/G2A"] {
		t.Fatal("close did not detach the active subscription")
	}
	w.Close() // idempotent
}

func TestSortSlotKeysNumeric(t *testing.T) {
	keys := []string{"student12", "student2", "student1", "student9", "student10"}
	SortSlotKeys(keys)
	want := []string{"student1", "student2", "student9", "student10", "student12"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("wrong order: %v", keys)
	}
}
