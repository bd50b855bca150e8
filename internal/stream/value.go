// Package stream holds values that always have a current state and push every
// change to their watchers.
package stream

import "sync"

// Value is a multicast holder of the latest T. New watchers immediately receive
// the current value, then every later Set, in the order they registered.
//
// Watchers run synchronously inside Set and must not call Set or Watch on the
// same Value.
type Value[T any] struct {
	emitMu   sync.Mutex
	mu       sync.RWMutex
	current  T
	watchers []*watcher[T]
	nextID   uint64
}

type watcher[T any] struct {
	id uint64
	fn func(T)
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{current: initial}
}

func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Set replaces the current value and notifies every watcher before returning.
func (v *Value[T]) Set(value T) {
	v.emitMu.Lock()
	defer v.emitMu.Unlock()

	v.mu.Lock()
	v.current = value
	watchers := make([]*watcher[T], len(v.watchers))
	copy(watchers, v.watchers)
	v.mu.Unlock()

	for _, w := range watchers {
		if v.active(w.id) {
			w.fn(value)
		}
	}
}

// Update applies fn to the current value under the emission lock, then
// notifies watchers with the result.
func (v *Value[T]) Update(fn func(T) T) {
	v.emitMu.Lock()
	defer v.emitMu.Unlock()

	v.mu.Lock()
	v.current = fn(v.current)
	value := v.current
	watchers := make([]*watcher[T], len(v.watchers))
	copy(watchers, v.watchers)
	v.mu.Unlock()

	for _, w := range watchers {
		if v.active(w.id) {
			w.fn(value)
		}
	}
}

// Inspect runs fn with the current value while no Set or Update can run.
// Values mutated in place by Update can be read safely inside fn. Like a
// watcher, fn must not call Set, Update or Watch on the same Value.
func (v *Value[T]) Inspect(fn func(T)) {
	v.emitMu.Lock()
	defer v.emitMu.Unlock()
	fn(v.Get())
}

// Watch registers fn and replays the current value to it. The returned
// function removes the registration and is safe to call more than once.
func (v *Value[T]) Watch(fn func(T)) func() {
	v.emitMu.Lock()
	defer v.emitMu.Unlock()

	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.watchers = append(v.watchers, &watcher[T]{id: id, fn: fn})
	current := v.current
	v.mu.Unlock()

	fn(current)

	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		for i, w := range v.watchers {
			if w.id == id {
				v.watchers = append(v.watchers[:i], v.watchers[i+1:]...)
				return
			}
		}
	}
}

func (v *Value[T]) WatcherCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.watchers)
}

func (v *Value[T]) active(id uint64) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, w := range v.watchers {
		if w.id == id {
			return true
		}
	}
	return false
}
