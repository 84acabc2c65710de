// Package signal implements the observable collection every desk table is
// built on: an ordered, key-indexed set of entities that notifies subscribers
// of adds, changes and removals.
package signal

import "sync"

// Entity is anything with a stable business key (account id, ticket, symbol).
type Entity interface {
	Key() string
}

// EventType classifies a collection notification.
type EventType int

const (
	EventAdd EventType = iota
	EventChange
	EventRemove
)

func (t EventType) String() string {
	switch t {
	case EventAdd:
		return "add"
	case EventChange:
		return "change"
	case EventRemove:
		return "remove"
	}
	return "unknown"
}

// Event describes one mutation. For EventChange, Old holds the previous
// value. Batch, when non-nil, lists the indices of every element touched by a
// batched change (Elem is then the first of them).
type Event[T Entity] struct {
	Type  EventType
	Elem  T
	Old   T
	Index int
	Batch []int
}

// Listener receives events synchronously on the mutating goroutine.
type Listener[T Entity] func(Event[T])

type subscriber[T Entity] struct {
	token int
	fn    Listener[T]
}

// Collection is an ordered, uniquely keyed entity collection. Mutations are
// serialized by an internal lock; notifications are delivered after the lock
// is released, so a listener may read this collection and mutate others.
// Mutating the same collection from inside its own notification is a
// documented hazard the caller must avoid, not something this type checks.
type Collection[T Entity] struct {
	mu    sync.RWMutex
	elems []T
	index map[string]int
	less  func(a, b T) bool

	lmu       sync.RWMutex
	subs      map[EventType][]subscriber[T]
	nextToken int
}

// New returns an empty collection ordered by insertion.
func New[T Entity]() *Collection[T] {
	return &Collection[T]{
		index: make(map[string]int),
		subs:  make(map[EventType][]subscriber[T]),
	}
}

// NewSorted returns a collection that keeps elements ordered by less,
// inserting each add at its stable sort position.
func NewSorted[T Entity](less func(a, b T) bool) *Collection[T] {
	c := New[T]()
	c.less = less
	return c
}

// Subscribe registers fn for events of type t and returns a token for
// Unsubscribe. Listeners fire in registration order.
func (c *Collection[T]) Subscribe(t EventType, fn Listener[T]) int {
	c.lmu.Lock()
	defer c.lmu.Unlock()
	c.nextToken++
	c.subs[t] = append(c.subs[t], subscriber[T]{token: c.nextToken, fn: fn})
	return c.nextToken
}

func (c *Collection[T]) Unsubscribe(t EventType, token int) {
	c.lmu.Lock()
	defer c.lmu.Unlock()
	subs := c.subs[t]
	for i, s := range subs {
		if s.token == token {
			c.subs[t] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

func (c *Collection[T]) emit(ev Event[T]) {
	c.lmu.RLock()
	subs := c.subs[ev.Type]
	fns := make([]Listener[T], len(subs))
	for i, s := range subs {
		fns[i] = s.fn
	}
	c.lmu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Add inserts v, or replaces the element already stored under v's key. It
// emits EventAdd on insert and EventChange on replace.
func (c *Collection[T]) Add(v T) {
	key := v.Key()

	c.mu.Lock()
	if i, ok := c.index[key]; ok {
		old := c.elems[i]
		c.elems[i] = v
		c.mu.Unlock()
		c.emit(Event[T]{Type: EventChange, Elem: v, Old: old, Index: i})
		return
	}
	i := len(c.elems)
	if c.less != nil {
		for i = 0; i < len(c.elems); i++ {
			if c.less(v, c.elems[i]) {
				break
			}
		}
	}
	c.elems = append(c.elems, v)
	copy(c.elems[i+1:], c.elems[i:])
	c.elems[i] = v
	c.reindexFrom(i)
	c.mu.Unlock()

	c.emit(Event[T]{Type: EventAdd, Elem: v, Index: i})
}

// Set replaces the element at index i and emits EventChange.
func (c *Collection[T]) Set(i int, v T) bool {
	c.mu.Lock()
	if i < 0 || i >= len(c.elems) {
		c.mu.Unlock()
		return false
	}
	old := c.elems[i]
	delete(c.index, old.Key())
	c.elems[i] = v
	c.index[v.Key()] = i
	c.mu.Unlock()

	c.emit(Event[T]{Type: EventChange, Elem: v, Old: old, Index: i})
	return true
}

// Update replaces the element stored under v's key, if any.
func (c *Collection[T]) Update(v T) bool {
	c.mu.Lock()
	i, ok := c.index[v.Key()]
	if !ok {
		c.mu.Unlock()
		return false
	}
	old := c.elems[i]
	c.elems[i] = v
	c.mu.Unlock()

	c.emit(Event[T]{Type: EventChange, Elem: v, Old: old, Index: i})
	return true
}

// Remove deletes the element with the given key and emits EventRemove.
func (c *Collection[T]) Remove(key string) (T, bool) {
	var zero T
	c.mu.Lock()
	i, ok := c.index[key]
	if !ok {
		c.mu.Unlock()
		return zero, false
	}
	v := c.removeAtLocked(i)
	c.mu.Unlock()

	c.emit(Event[T]{Type: EventRemove, Elem: v, Index: i})
	return v, true
}

// RemoveAt deletes the element at index i and emits EventRemove.
func (c *Collection[T]) RemoveAt(i int) (T, bool) {
	var zero T
	c.mu.Lock()
	if i < 0 || i >= len(c.elems) {
		c.mu.Unlock()
		return zero, false
	}
	v := c.removeAtLocked(i)
	c.mu.Unlock()

	c.emit(Event[T]{Type: EventRemove, Elem: v, Index: i})
	return v, true
}

func (c *Collection[T]) removeAtLocked(i int) T {
	v := c.elems[i]
	delete(c.index, v.Key())
	c.elems = append(c.elems[:i], c.elems[i+1:]...)
	c.reindexFrom(i)
	return v
}

// Clear drops every element and emits one EventRemove per dropped element,
// in collection order, so derived views tear down the same way they would on
// individual removals.
func (c *Collection[T]) Clear() {
	c.mu.Lock()
	dropped := c.elems
	c.elems = nil
	c.index = make(map[string]int)
	c.mu.Unlock()

	for i, v := range dropped {
		c.emit(Event[T]{Type: EventRemove, Elem: v, Index: i})
	}
}

func (c *Collection[T]) reindexFrom(i int) {
	for ; i < len(c.elems); i++ {
		c.index[c.elems[i].Key()] = i
	}
}

// Get returns the element stored under key.
func (c *Collection[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var zero T
	i, ok := c.index[key]
	if !ok {
		return zero, false
	}
	return c.elems[i], true
}

// At returns the element at index i.
func (c *Collection[T]) At(i int) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var zero T
	if i < 0 || i >= len(c.elems) {
		return zero, false
	}
	return c.elems[i], true
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.elems)
}

// IndexOf returns the position of key, or -1.
func (c *Collection[T]) IndexOf(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i, ok := c.index[key]; ok {
		return i
	}
	return -1
}

// Keys returns a stable snapshot of the keys in collection order, safe to
// iterate without holding the collection lock.
func (c *Collection[T]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, len(c.elems))
	for i, v := range c.elems {
		keys[i] = v.Key()
	}
	return keys
}

// Each calls fn for every element in order under the read lock. Returning
// false stops the scan. fn must not mutate this collection.
func (c *Collection[T]) Each(fn func(i int, v T) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i, v := range c.elems {
		if !fn(i, v) {
			return
		}
	}
}

// Sum computes an on-demand total of the field selected by fn. This is the
// reference value every running total must agree with.
func (c *Collection[T]) Sum(fn func(v T) float64) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total float64
	for _, v := range c.elems {
		total += fn(v)
	}
	return total
}

// Mutate runs fn over the backing slice under the write lock and, when fn
// reports touched indices, emits a single batched EventChange for all of
// them. Tick-driven rate refreshes use this to notify once per scan instead
// of once per element. fn should replace a touched element with a fresh
// value rather than write through it: pointers already handed to readers are
// outside the lock.
func (c *Collection[T]) Mutate(fn func(elems []T) []int) []int {
	c.mu.Lock()
	changed := fn(c.elems)
	var first T
	if len(changed) > 0 {
		first = c.elems[changed[0]]
	}
	c.mu.Unlock()

	if len(changed) > 0 {
		c.emit(Event[T]{Type: EventChange, Elem: first, Index: changed[0], Batch: changed})
	}
	return changed
}
