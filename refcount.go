package dseed

import "sync/atomic"

// RefCount is an embeddable reference counter.
//
// A zero RefCount holds one reference: the creator owns the object until it
// calls Release. Retain and Release are atomic; compound operations on the
// owning object are not serialized and need caller coordination.
//
// Codec objects never hold references in a cycle: palettes and attributes are
// owned by exactly one bitmap and are not reference counted.
type RefCount struct {
	extra    atomic.Int32 // references beyond the creator's
	released atomic.Bool
}

// Retain adds a reference.
func (r *RefCount) Retain() {
	if r.released.Load() {
		panic("dseed: retain of released object")
	}
	r.extra.Add(1)
}

// Release drops a reference. It returns true when the last reference was
// dropped; the caller then frees the object's resources exactly once.
func (r *RefCount) Release() bool {
	if r.extra.Add(-1) >= 0 {
		return false
	}
	if !r.released.CompareAndSwap(false, true) {
		panic("dseed: release of released object")
	}
	return true
}

// Refs returns the current number of references (0 once released).
func (r *RefCount) Refs() int {
	if r.released.Load() {
		return 0
	}
	return int(r.extra.Load()) + 1
}

// Object is the lifecycle contract shared by bitmaps, arrays and samples.
type Object interface {
	Retain()
	Release()
}
