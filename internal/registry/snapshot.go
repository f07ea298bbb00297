package registry

import (
	"maps"

	"github.com/danmuck/regsync/internal/ident"
)

// Table maps names to raw IDs.
type Table = map[ident.Name]RawID

// Snapshot holds the pre-remap assignment of one mapped session.
//
// It is captured by the first remap and cleared by a successful unmap, so it
// always reflects the local ordering from before any remote table was applied.
type Snapshot[T any] struct {
	ids     Table
	entries map[ident.Name]T
}

func (s *Snapshot[T]) Pending() bool {
	return s.ids != nil
}

// Capture records store state unless a snapshot is already pending.
func (s *Snapshot[T]) Capture(store Store[T]) bool {
	if s.Pending() {
		return false
	}
	s.entries = store.Entries()
	s.ids = make(Table, len(s.entries))
	for id := 0; id < store.Len(); id++ {
		name, state := store.Slot(id)
		if state != SlotBound {
			continue
		}
		if _, ok := s.entries[name]; ok {
			s.ids[name] = id
		}
	}
	return true
}

// IDs returns a copy of the captured name -> raw ID table.
func (s *Snapshot[T]) IDs() Table {
	return maps.Clone(s.ids)
}

// Entries returns a copy of the captured name index.
func (s *Snapshot[T]) Entries() map[ident.Name]T {
	return maps.Clone(s.entries)
}

func (s *Snapshot[T]) Clear() {
	s.ids = nil
	s.entries = nil
}
