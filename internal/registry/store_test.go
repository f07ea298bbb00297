package registry

import (
	"testing"

	"github.com/danmuck/regsync/internal/ident"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreInsertGapsAreHoles(t *testing.T) {
	s := NewMemoryStore[int](testKey)
	require.NoError(t, s.Insert(2, n("b"), 2))
	require.Equal(t, 3, s.Len())

	_, state := s.Slot(0)
	require.Equal(t, SlotHole, state)
	name, state := s.Slot(2)
	require.Equal(t, SlotBound, state)
	require.Equal(t, n("b"), name)

	require.ErrorIs(t, s.Insert(2, n("c"), 3), ErrIDTaken)
	require.ErrorIs(t, s.Insert(-1, n("c"), 3), ErrInvalidID)
	require.ErrorIs(t, s.Insert(0, n("b"), 3), ErrConflict)
}

func TestMemoryStorePlaceReservesGaps(t *testing.T) {
	s := NewMemoryStore[int](testKey)
	require.NoError(t, s.Insert(0, n("a"), 1))
	s.ClearIndices()
	require.Zero(t, s.Len())
	_, ok := s.Lookup(n("a"))
	require.True(t, ok, "clearing raw ids keeps the name index")

	s.Place(3, n("a"))
	_, state := s.Slot(1)
	require.Equal(t, SlotReserved, state)
	id, ok := s.RawIDOf(n("a"))
	require.True(t, ok)
	require.Equal(t, 3, id)
}

func TestMemoryStoreRemoveTrimsTail(t *testing.T) {
	s := NewMemoryStore[int](testKey)
	require.NoError(t, s.Insert(0, n("a"), 1))
	require.NoError(t, s.Insert(3, n("b"), 2))
	s.Remove(n("b"))
	require.Equal(t, 1, s.Len())
	_, ok := s.LookupKey(Key{Registry: testKey, Name: n("b")})
	require.False(t, ok)
}

func TestMemoryStoreForgetAndRestore(t *testing.T) {
	s := NewMemoryStore[int](testKey)
	require.NoError(t, s.Insert(0, n("a"), 1))
	require.NoError(t, s.Insert(1, n("b"), 2))
	saved := s.Entries()

	entry, ok := s.Forget(n("a"))
	require.True(t, ok)
	require.Equal(t, 1, entry)
	name, state := s.Slot(0)
	require.Equal(t, SlotBound, state, "forget leaves the raw id for the next remap")
	require.Equal(t, n("a"), name)

	s.RestoreNames(saved)
	v, ok := s.LookupKey(Key{Registry: testKey, Name: n("a")})
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestMemoryStoreFreeze(t *testing.T) {
	s := NewMemoryStore[int](testKey)
	s.Freeze()
	require.True(t, s.Frozen())
	require.ErrorIs(t, s.Insert(0, n("a"), 1), ErrFrozen)

	var _ Store[ident.Name] = NewMemoryStore[ident.Name](testKey)
}

func TestListenersOrderAndUnregister(t *testing.T) {
	var l Listeners[func() string]
	a := l.Register(func() string { return "a" })
	l.Register(func() string { return "b" })
	l.Register(func() string { return "c" })
	require.True(t, l.Unregister(a))
	require.False(t, l.Unregister(Token(99)))

	var got []string
	for fn := range l.All() {
		got = append(got, fn())
	}
	require.Equal(t, []string{"b", "c"}, got)
	require.Equal(t, 2, l.Len())
}

func TestMemoryStoreRemoveRestoresReservedSlot(t *testing.T) {
	s := NewMemoryStore[int](testKey)
	s.Place(3, n("a"))
	require.NoError(t, s.Insert(1, n("b"), 2))
	s.Remove(n("b"))

	_, state := s.Slot(1)
	require.Equal(t, SlotReserved, state)
	require.Equal(t, 4, s.Len())
	_, ok := s.RawIDOf(n("b"))
	require.False(t, ok)
}

func TestMemoryStoreReinsertReservesCulledSlot(t *testing.T) {
	s := NewMemoryStore[int](testKey)
	require.NoError(t, s.Insert(0, n("a"), 1))
	_, ok := s.Forget(n("a"))
	require.True(t, ok)

	require.NoError(t, s.Insert(1, n("a"), 2))
	_, state := s.Slot(0)
	require.Equal(t, SlotReserved, state, "a name never holds two raw ids")
	id, _ := s.RawIDOf(n("a"))
	require.Equal(t, 1, id)

	s.Remove(n("a"))
	name, state := s.Slot(0)
	require.Equal(t, SlotBound, state, "undo gives the culled slot back")
	require.Equal(t, n("a"), name)
	require.Equal(t, 1, s.Len())
}
