package registry

import "github.com/orange-lo/iotsoftbox-go/value"

// StatusSet is a named collection published in full on dev/info whenever its
// Dirty flag is set.
type StatusSet struct {
	Name       string
	Collection *value.Collection
	Dirty      bool
}

// MarkDirty flags the set for publication on the next controller iteration.
// Safe to call from any goroutine: it is a single word-sized store.
func (s *StatusSet) MarkDirty() { s.Dirty = true }

// StatusTable is the fixed-capacity registry of attached status sets.
type StatusTable struct {
	slots slots[StatusSet]
}

// NewStatusTable returns a table with room for capacity status sets.
func NewStatusTable(capacity int) *StatusTable {
	return &StatusTable{slots: newSlots[StatusSet](capacity)}
}

// Attach registers a new status set, returning its handle.
func (t *StatusTable) Attach(name string, c *value.Collection) (int, error) {
	return t.slots.attach(&StatusSet{Name: name, Collection: c})
}

// Remove detaches the status set at handle.
func (t *StatusTable) Remove(handle int) error { return t.slots.remove(handle) }

// Get returns the status set at handle.
func (t *StatusTable) Get(handle int) (*StatusSet, error) { return t.slots.get(handle) }

// Each walks attached status sets in handle order.
func (t *StatusTable) Each(fn func(handle int, s *StatusSet)) { t.slots.each(fn) }
