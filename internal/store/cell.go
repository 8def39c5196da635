package store

// Cell holds a single value and notifies subscribers each time it is set.
type Cell[T any] struct {
	value     T
	version   uint64
	subs      []*subscriber[T]
	pending   []update[T]
	notifying bool
}

type update[T any] struct {
	version uint64
	value   T
}

type subscriber[T any] struct {
	fn      func(T)
	removed bool
	// since is the version replayed on subscribe; older queued updates are
	// skipped for this subscriber.
	since uint64
}

// NewCell returns a cell holding initial.
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	return c.value
}

// Set replaces the value and delivers it to every subscriber before
// returning. A Set issued from inside a subscriber is queued and delivered
// once the current round finishes, so each subscriber observes values in the
// order they were set.
func (c *Cell[T]) Set(value T) {
	c.value = value
	c.version++
	c.pending = append(c.pending, update[T]{version: c.version, value: value})
	if c.notifying {
		return
	}

	c.notifying = true
	defer func() {
		c.notifying = false
		c.pending = nil
	}()

	for len(c.pending) > 0 {
		next := c.pending[0]
		c.pending = c.pending[1:]
		subs := make([]*subscriber[T], len(c.subs))
		copy(subs, c.subs)
		for _, sub := range subs {
			if sub.removed || next.version <= sub.since {
				continue
			}
			sub.fn(next.value)
		}
	}
}

// Update sets the value returned by fn, which receives the current value.
func (c *Cell[T]) Update(fn func(T) T) {
	c.Set(fn(c.value))
}

// Subscribe registers fn, calls it with the current value, and returns a
// function that stops further notifications. The returned function may be
// called more than once.
func (c *Cell[T]) Subscribe(fn func(T)) func() {
	sub := &subscriber[T]{fn: fn, since: c.version}
	c.subs = append(c.subs, sub)
	fn(c.value)

	return func() {
		if sub.removed {
			return
		}
		sub.removed = true
		for i, s := range c.subs {
			if s == sub {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				break
			}
		}
	}
}

// Subscribers reports how many subscribers are registered.
func (c *Cell[T]) Subscribers() int {
	return len(c.subs)
}
