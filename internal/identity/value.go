package identity

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Value starts unresolved and is resolved at most once. Observers registered
// before resolution are notified exactly once; later observers are called
// immediately.
type Value[T any] struct {
	mu        sync.Mutex
	resolved  bool
	value     T
	ready     chan struct{}
	observers map[string]func(T)
}

func (v *Value[T]) init() {
	if v.ready == nil {
		v.ready = make(chan struct{})
		v.observers = make(map[string]func(T))
	}
}

// Get returns the value and whether it has been resolved.
func (v *Value[T]) Get() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.value, v.resolved
}

// Resolve sets the value. It returns false if the value was already resolved,
// in which case the stored value is kept.
func (v *Value[T]) Resolve(value T) bool {
	v.mu.Lock()
	v.init()
	if v.resolved {
		v.mu.Unlock()
		return false
	}
	v.value = value
	v.resolved = true
	close(v.ready)
	observers := make([]func(T), 0, len(v.observers))
	for _, fn := range v.observers {
		observers = append(observers, fn)
	}
	clear(v.observers)
	v.mu.Unlock()

	for _, fn := range observers {
		fn(value)
	}
	return true
}

// Observe registers fn for the resolution. The returned func removes it.
func (v *Value[T]) Observe(fn func(T)) (cancel func()) {
	v.mu.Lock()
	v.init()
	if v.resolved {
		value := v.value
		v.mu.Unlock()
		fn(value)
		return func() {}
	}
	key := uuid.NewString()
	v.observers[key] = fn
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.observers, key)
	}
}

// Wait blocks until the value resolves or ctx is done.
func (v *Value[T]) Wait(ctx context.Context) (T, error) {
	v.mu.Lock()
	v.init()
	ready := v.ready
	v.mu.Unlock()

	select {
	case <-ready:
		value, _ := v.Get()
		return value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
