package db

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// SubscribeFunc attaches a change listener to one class path and returns a
// detach function. After detach returns, notify is never called again.
type SubscribeFunc func(schoolYear, classSection string, notify func()) (detach func(), err error)

// ClassChange identifies the class path an event arrived for.
type ClassChange struct {
	SchoolYear   string `json:"schoolYear"`
	ClassSection string `json:"classSection"`
}

// ClassWatcher tracks at most one class subscription. Switching classes
// always detaches the previous subscription before attaching the new one,
// so a late event from the old class can never be mistaken for the new
// selection's data.
type ClassWatcher struct {
	subscribe SubscribeFunc

	mu      sync.Mutex
	detach  func()
	current ClassChange

	// gen numbers the active subscription; notifies carrying an older
	// generation are dropped even if a source violates the detach contract.
	gen atomic.Uint64

	events chan ClassChange
}

// NewClassWatcher wraps a subscription source. Events are buffered one deep:
// the consumer re-fetches the whole snapshot, so coalescing bursts is fine.
func NewClassWatcher(subscribe SubscribeFunc) *ClassWatcher {
	return &ClassWatcher{
		subscribe: subscribe,
		events:    make(chan ClassChange, 1),
	}
}

// Watch switches the subscription to a class path.
func (w *ClassWatcher) Watch(schoolYear, classSection string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Invalidate the old generation before detaching so an in-flight notify
	// from the old subscription can no longer land.
	gen := w.gen.Add(1)
	if w.detach != nil {
		w.detach()
		w.detach = nil
	}
	// Drop any event still buffered from the previous class.
	select {
	case <-w.events:
	default:
	}

	target := ClassChange{SchoolYear: schoolYear, ClassSection: classSection}
	detach, err := w.subscribe(schoolYear, classSection, func() {
		if w.gen.Load() != gen {
			return // stale subscription
		}
		select {
		case w.events <- target:
		default: // an event is already pending
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s/%s: %w", schoolYear, classSection, err)
	}
	w.detach = detach
	w.current = target
	return nil
}

// Current returns the class path being watched.
func (w *ClassWatcher) Current() ClassChange {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Events delivers one element per change burst on the watched class.
func (w *ClassWatcher) Events() <-chan ClassChange {
	return w.events
}

// Close detaches the active subscription, if any.
func (w *ClassWatcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen.Add(1)
	if w.detach != nil {
		w.detach()
		w.detach = nil
	}
}

// SubscribeClassChanges is the Redis-backed SubscribeFunc: a pub/sub
// subscription on the class change channel.
func (s *RedisService) SubscribeClassChanges(schoolYear, classSection string, notify func()) (func(), error) {
	pubsub := s.Client.Subscribe(s.Ctx, ChangeChannel(schoolYear, classSection))
	// Confirm the subscription before handing out the detach, so a write
	// racing the switch still lands on the new listener.
	if _, err := pubsub.Receive(s.Ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to change channel: %w", err)
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ch := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				// A message received just before detach must not turn into
				// a notify after it.
				select {
				case <-done:
					return
				default:
				}
				notify()
			}
		}
	}()

	var once sync.Once
	detach := func() {
		once.Do(func() {
			close(done)
			if err := pubsub.Close(); err != nil {
				log.Printf("Error closing change subscription for %s/%s: %v", schoolYear, classSection, err)
			}
			// Only return once the pump has exited, upholding the
			// SubscribeFunc contract.
			<-stopped
		})
	}
	return detach, nil
}
