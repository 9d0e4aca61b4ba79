// Package resource provides the ID-indexed table that owns every backend
// resource.
package resource

import "github.com/gogpu/gapi"

// MaxResourceID bounds the IDs a table accepts. Creating past it is
// treated as an allocation failure.
const MaxResourceID gapi.ResourceID = 1 << 20

// Table maps client-assigned IDs to owned objects. Objects are only
// reachable by ID; the table runs the release function when an object
// is destroyed, either explicitly or by DestroyAll.
//
// Table is not safe for concurrent use.
type Table[T any] struct {
	slots   []*T
	live    int
	release func(*T)
}

// NewTable creates an empty table. release may be nil.
func NewTable[T any](release func(*T)) *Table[T] {
	return &Table[T]{release: release}
}

// Create stores obj under id. It returns false when id is already in use,
// obj is nil or id is out of range.
func (t *Table[T]) Create(id gapi.ResourceID, obj *T) bool {
	if obj == nil || id == gapi.InvalidResourceID || id >= MaxResourceID {
		return false
	}
	if int(id) >= len(t.slots) {
		n := max(int(id)+1, 2*len(t.slots))
		n = min(n, int(MaxResourceID))
		grown := make([]*T, n)
		copy(grown, t.slots)
		t.slots = grown
	}
	if t.slots[id] != nil {
		return false
	}
	t.slots[id] = obj
	t.live++
	return true
}

// Destroy releases the object stored under id and reports whether it
// existed.
func (t *Table[T]) Destroy(id gapi.ResourceID) bool {
	if int(id) >= len(t.slots) || t.slots[id] == nil {
		return false
	}
	obj := t.slots[id]
	t.slots[id] = nil
	t.live--
	if t.release != nil {
		t.release(obj)
	}
	return true
}

// Get returns the object stored under id, or nil.
func (t *Table[T]) Get(id gapi.ResourceID) *T {
	if int(id) >= len(t.slots) {
		return nil
	}
	return t.slots[id]
}

// DestroyAll releases every live object.
func (t *Table[T]) DestroyAll() {
	for i, obj := range t.slots {
		if obj == nil {
			continue
		}
		t.slots[i] = nil
		if t.release != nil {
			t.release(obj)
		}
	}
	t.slots = nil
	t.live = 0
}

// Each calls fn for every live object in ascending ID order until fn
// returns false.
func (t *Table[T]) Each(fn func(id gapi.ResourceID, obj *T) bool) {
	for i, obj := range t.slots {
		if obj == nil {
			continue
		}
		if !fn(gapi.ResourceID(i), obj) {
			return
		}
	}
}

// Len returns the number of live objects.
func (t *Table[T]) Len() int { return t.live }
