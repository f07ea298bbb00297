package registry

import (
	"fmt"
	"maps"

	"github.com/danmuck/regsync/internal/ident"
)

// RawID is the process-local compact index bound to a name for one epoch.
type RawID = int

// SlotState describes one position in the raw ID space.
type SlotState uint8

const (
	// SlotHole was never assigned. Remap treats it as corruption.
	SlotHole SlotState = iota
	// SlotBound carries a name.
	SlotBound
	// SlotReserved was skipped by a rebuild because the remote owns the ID
	// and the local side has no entry for it.
	SlotReserved
)

// Key addresses an entry through the secondary registry-qualified index.
type Key struct {
	Registry ident.Name
	Name     ident.Name
}

// Store is the entry storage capability a Registry reconciles.
//
// The name index owns entries. The raw ID index binds names to slots and is
// the only part Remap rewrites.
type Store[T any] interface {
	// Insert binds a new entry in both indices.
	Insert(id RawID, name ident.Name, entry T) error
	// Remove undoes the last Insert in both indices, restoring the slot it
	// replaced.
	Remove(name ident.Name)
	Lookup(name ident.Name) (T, bool)
	LookupKey(key Key) (T, bool)
	RawIDOf(name ident.Name) (RawID, bool)
	Slot(id RawID) (ident.Name, SlotState)
	// Len is the size of the raw ID space, holes and reserved slots included.
	Len() int
	// Entries returns a copy of the name index.
	Entries() map[ident.Name]T
	// Forget drops a name binding and leaves its raw ID for the next remap to cull.
	Forget(name ident.Name) (T, bool)
	// RestoreNames replaces the name and key indices wholesale.
	RestoreNames(entries map[ident.Name]T)
	// ClearIndices empties the raw ID index. The name index is untouched.
	ClearIndices()
	// Place binds an already-known name at id, reserving any skipped slots.
	Place(id RawID, name ident.Name)
	Frozen() bool
	Freeze()
}

type slot struct {
	name  ident.Name
	state SlotState
}

// insertUndo is what Remove needs to put the slot index back exactly as the
// last Insert found it.
type insertUndo struct {
	name     ident.Name
	id       RawID
	prev     slot
	prevLen  int
	stale    RawID
	hadStale bool
}

// MemoryStore is the in-memory Store.
type MemoryStore[T any] struct {
	key    ident.Name
	slots  []slot
	idOf   map[ident.Name]RawID
	byName map[ident.Name]T
	byKey  map[Key]T
	frozen bool
	last   *insertUndo
}

var _ Store[struct{}] = (*MemoryStore[struct{}])(nil)

// NewMemoryStore creates an empty store for the registry named key.
func NewMemoryStore[T any](key ident.Name) *MemoryStore[T] {
	return &MemoryStore[T]{
		key:    key,
		idOf:   make(map[ident.Name]RawID),
		byName: make(map[ident.Name]T),
		byKey:  make(map[Key]T),
	}
}

// Insert binds name at id. A name culled earlier in the session still owns
// its old slot; that slot is reserved so one name never holds two IDs.
func (s *MemoryStore[T]) Insert(id RawID, name ident.Name, entry T) error {
	if s.frozen {
		return fmt.Errorf("%w: insert %s into %s", ErrFrozen, name, s.key)
	}
	if id < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	if _, ok := s.byName[name]; ok {
		return &ConflictError{Registry: s.key, Name: name, Reason: "is already registered"}
	}
	if id < len(s.slots) && s.slots[id].state == SlotBound {
		return fmt.Errorf("%w: %d holds %s", ErrIDTaken, id, s.slots[id].name)
	}

	undo := &insertUndo{name: name, id: id, prevLen: len(s.slots)}
	if id < len(s.slots) {
		undo.prev = s.slots[id]
	}
	if stale, ok := s.idOf[name]; ok && stale < len(s.slots) && s.slots[stale] == (slot{name: name, state: SlotBound}) {
		undo.stale, undo.hadStale = stale, true
		s.slots[stale] = slot{state: SlotReserved}
	}
	s.last = undo

	s.bindSlot(id, name, SlotHole)
	s.byName[name] = entry
	s.byKey[Key{Registry: s.key, Name: name}] = entry
	return nil
}

// Remove undoes the most recent Insert of name, restoring the slot it
// replaced. For any other name the slot becomes a hole.
func (s *MemoryStore[T]) Remove(name ident.Name) {
	delete(s.byName, name)
	delete(s.byKey, Key{Registry: s.key, Name: name})
	if undo := s.last; undo != nil && undo.name == name {
		s.last = nil
		if undo.id < undo.prevLen {
			s.slots[undo.id] = undo.prev
		} else {
			s.slots = s.slots[:undo.prevLen]
		}
		delete(s.idOf, name)
		if undo.hadStale {
			s.slots[undo.stale] = slot{name: name, state: SlotBound}
			s.idOf[name] = undo.stale
		}
		return
	}
	id, ok := s.idOf[name]
	if !ok {
		return
	}
	delete(s.idOf, name)
	s.slots[id] = slot{}
	for len(s.slots) > 0 && s.slots[len(s.slots)-1].state == SlotHole {
		s.slots = s.slots[:len(s.slots)-1]
	}
}

func (s *MemoryStore[T]) Lookup(name ident.Name) (T, bool) {
	entry, ok := s.byName[name]
	return entry, ok
}

func (s *MemoryStore[T]) LookupKey(key Key) (T, bool) {
	entry, ok := s.byKey[key]
	return entry, ok
}

func (s *MemoryStore[T]) RawIDOf(name ident.Name) (RawID, bool) {
	id, ok := s.idOf[name]
	return id, ok
}

func (s *MemoryStore[T]) Slot(id RawID) (ident.Name, SlotState) {
	if id < 0 || id >= len(s.slots) {
		return ident.Name{}, SlotHole
	}
	sl := s.slots[id]
	return sl.name, sl.state
}

func (s *MemoryStore[T]) Len() int {
	return len(s.slots)
}

func (s *MemoryStore[T]) Entries() map[ident.Name]T {
	return maps.Clone(s.byName)
}

func (s *MemoryStore[T]) Forget(name ident.Name) (T, bool) {
	entry, ok := s.byName[name]
	if !ok {
		return entry, false
	}
	delete(s.byName, name)
	delete(s.byKey, Key{Registry: s.key, Name: name})
	return entry, true
}

func (s *MemoryStore[T]) RestoreNames(entries map[ident.Name]T) {
	s.byName = make(map[ident.Name]T, len(entries))
	s.byKey = make(map[Key]T, len(entries))
	for name, entry := range entries {
		s.byName[name] = entry
		s.byKey[Key{Registry: s.key, Name: name}] = entry
	}
}

func (s *MemoryStore[T]) ClearIndices() {
	s.last = nil
	s.slots = nil
	s.idOf = make(map[ident.Name]RawID)
}

func (s *MemoryStore[T]) Place(id RawID, name ident.Name) {
	s.bindSlot(id, name, SlotReserved)
}

func (s *MemoryStore[T]) Frozen() bool {
	return s.frozen
}

func (s *MemoryStore[T]) Freeze() {
	s.frozen = true
}

// bindSlot grows the slot list to cover id, filling the gap with fill.
func (s *MemoryStore[T]) bindSlot(id RawID, name ident.Name, fill SlotState) {
	for len(s.slots) <= id {
		s.slots = append(s.slots, slot{state: fill})
	}
	s.slots[id] = slot{name: name, state: SlotBound}
	s.idOf[name] = id
}
