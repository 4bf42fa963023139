package threaded

import "sync"

// SlotRegistry assigns small, stable slot indices to caller identities.
//
// The first call for an unseen identity takes a short critical section that
// re-checks the map, hands out the next index and records it. Every later
// call for that identity is a lock-free read. Indices start at 0, grow by one
// per new identity and are never reclaimed; capacity limits are enforced by
// the Pool, not here.
type SlotRegistry[K comparable] struct {
	slots sync.Map // K -> int
	mu    sync.Mutex
	next  int
}

// NewSlotRegistry returns an empty registry.
func NewSlotRegistry[K comparable]() *SlotRegistry[K] {
	return &SlotRegistry[K]{}
}

// ResolveSlot returns the slot assigned to id, assigning the next free index
// if id has not been seen before.
func (r *SlotRegistry[K]) ResolveSlot(id K) int {
	slot, _ := r.resolve(id)
	return slot
}

// resolve is ResolveSlot that also reports whether this call made the
// assignment.
func (r *SlotRegistry[K]) resolve(id K) (int, bool) {
	if v, ok := r.slots.Load(id); ok {
		return v.(int), false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have registered id between the Load and the Lock.
	if v, ok := r.slots.Load(id); ok {
		return v.(int), false
	}
	slot := r.next
	r.next++
	r.slots.Store(id, slot)
	return slot, true
}

// Len returns the number of identities assigned so far.
func (r *SlotRegistry[K]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next
}
