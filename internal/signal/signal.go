// Package signal provides reactive value containers that notify
// subscribers whenever their value is replaced.
package signal

import (
	"slices"
	"sync"
)

// Readable is a value that can be observed but not written.
type Readable[T any] interface {
	// Get returns the current value.
	Get() T
	// Subscribe calls fn with the current value and again after every
	// change. The returned function removes the subscription.
	Subscribe(fn func(T)) (unsubscribe func())
}

// Writable is a Readable whose owner can replace the value.
// The zero value is not usable; construct with NewWritable.
//
// Notifications are serialized: one goroutine at a time delivers, and a
// value set while a delivery is running (from a callback or from another
// goroutine) is handed to that delivering goroutine instead of racing it.
// Every subscriber sees values in the order they were set, may skip
// intermediate ones, and is always last called with the latest value.
type Writable[T any] struct {
	mu         sync.Mutex
	value      T
	version    uint64
	subs       []*subscriber[T]
	delivering bool
}

type subscriber[T any] struct {
	fn   func(T)
	seen uint64
}

// NewWritable creates a Writable holding initial.
func NewWritable[T any](initial T) *Writable[T] {
	return &Writable[T]{value: initial, version: 1}
}

// Get returns the current value.
func (w *Writable[T]) Get() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

// Set replaces the value and notifies subscribers.
func (w *Writable[T]) Set(v T) {
	w.mu.Lock()
	w.value = v
	w.version++
	w.mu.Unlock()

	w.deliver()
}

// Update replaces the value with fn(current) and notifies subscribers.
func (w *Writable[T]) Update(fn func(T) T) {
	w.mu.Lock()
	w.value = fn(w.value)
	w.version++
	w.mu.Unlock()

	w.deliver()
}

// Subscribe implements Readable. The first call carries the current value;
// if another goroutine is delivering at that moment, it makes the call.
func (w *Writable[T]) Subscribe(fn func(T)) func() {
	s := &subscriber[T]{fn: fn}

	w.mu.Lock()
	w.subs = append(w.subs, s)
	w.mu.Unlock()

	w.deliver()

	var once sync.Once
	return func() {
		once.Do(func() { w.remove(s) })
	}
}

// Readonly returns a view of w without the mutators.
func (w *Writable[T]) Readonly() Readable[T] {
	return readonly[T]{w: w}
}

// deliver calls every subscriber that has not seen the current version,
// until none is left behind. Callbacks run without the lock held and may
// set, subscribe or unsubscribe freely.
func (w *Writable[T]) deliver() {
	w.mu.Lock()
	if w.delivering {
		w.mu.Unlock()
		return
	}
	w.delivering = true
	defer func() {
		w.delivering = false
		w.mu.Unlock()
	}()

	for {
		s := w.staleLocked()
		if s == nil {
			return
		}
		s.seen = w.version
		v := w.value

		func() {
			w.mu.Unlock()
			defer w.mu.Lock()
			s.fn(v)
		}()
	}
}

func (w *Writable[T]) staleLocked() *subscriber[T] {
	for _, s := range w.subs {
		if s.seen < w.version {
			return s
		}
	}
	return nil
}

func (w *Writable[T]) remove(s *subscriber[T]) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if i := slices.Index(w.subs, s); i >= 0 {
		w.subs = slices.Delete(w.subs, i, i+1)
	}
}

type readonly[T any] struct {
	w *Writable[T]
}

func (r readonly[T]) Get() T                      { return r.w.Get() }
func (r readonly[T]) Subscribe(fn func(T)) func() { return r.w.Subscribe(fn) }

// Static returns a Readable that always holds v.
func Static[T any](v T) Readable[T] {
	return NewWritable(v).Readonly()
}
