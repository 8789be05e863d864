// Package notify provides a replaying broadcaster: every subscriber first
// receives the latest published value and then each later one, in order.
package notify

import "sync"

// Broadcaster delivers values of type T to its subscribers synchronously and
// in subscription order. Callbacks must not call Subscribe or Publish on the
// same broadcaster.
type Broadcaster[T any] struct {
	deliver sync.Mutex // serializes replay and publish deliveries

	mu      sync.Mutex
	current T
	subs    []*subscription[T]
	nextID  uint64
	closed  bool
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// New returns a broadcaster whose current value is initial.
func New[T any](initial T) *Broadcaster[T] {
	return &Broadcaster[T]{current: initial}
}

// Subscribe registers fn and immediately calls it with the current value.
// The returned function removes the subscription; calling it more than once
// is harmless. Subscribing to a closed broadcaster replays the last value
// and registers nothing.
func (b *Broadcaster[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.deliver.Lock()
	defer b.deliver.Unlock()

	b.mu.Lock()
	current := b.current
	if b.closed {
		b.mu.Unlock()
		fn(current)
		return func() {}
	}
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, &subscription[T]{id: id, fn: fn})
	b.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

// Publish stores v as the current value and hands it to every subscriber.
// Values published after Close are dropped.
func (b *Broadcaster[T]) Publish(v T) {
	b.deliver.Lock()
	defer b.deliver.Unlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.current = v
	subs := make([]*subscription[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Current returns the last published value.
func (b *Broadcaster[T]) Current() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Len returns the number of active subscriptions.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close drops all subscriptions. Later publishes are ignored.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = nil
}

func (b *Broadcaster[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}
