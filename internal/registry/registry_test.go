package registry

import (
	"errors"
	"testing"

	"github.com/danmuck/regsync/internal/ident"
	"github.com/danmuck/regsync/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAssignsSequentialIDs(t *testing.T) {
	r, _ := newTestRegistry(t)
	for i, raw := range []string{"apple", "banana", "cherry"} {
		id, err := r.Register(n(raw), raw)
		require.NoError(t, err)
		assert.Equal(t, i, id)
	}
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []ident.Name{n("apple"), n("banana"), n("cherry")}, r.Names())
}

func TestRegisterDuplicateName(t *testing.T) {
	r, _ := newTestRegistry(t, "apple")
	_, err := r.Register(n("apple"), "again")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	entry, _ := r.Get(n("apple"))
	assert.Equal(t, "apple", entry)
}

func TestRegisterAfterFreeze(t *testing.T) {
	r, _ := newTestRegistry(t, "apple")
	r.Freeze()
	require.True(t, r.Frozen())
	_, err := r.Register(n("banana"), "banana")
	require.ErrorIs(t, err, ErrFrozen)

	// Frozen registries still reconcile.
	_, err = r.Remap(table("apple", 3), ModeRemote)
	require.NoError(t, err)
	require.NoError(t, r.Unmap())
}

func TestRegisterRejectsInvalidName(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Register(ident.Name{Namespace: "Bad", Path: "x"}, "x")
	require.ErrorIs(t, err, ident.ErrInvalidName)
	require.Zero(t, r.Len())
}

func TestAddedListenersRunInOrder(t *testing.T) {
	r, _ := newTestRegistry(t)
	var calls []string
	first := r.OnAdded(func(id RawID, name ident.Name, entry string) error {
		calls = append(calls, "first:"+name.String())
		return nil
	})
	r.OnAdded(func(id RawID, name ident.Name, entry string) error {
		calls = append(calls, "second:"+entry)
		return nil
	})

	_, err := r.Register(n("apple"), "apple")
	require.NoError(t, err)
	require.True(t, r.RemoveAddedListener(first))
	require.False(t, r.RemoveAddedListener(first))
	_, err = r.Register(n("banana"), "banana")
	require.NoError(t, err)

	assert.Equal(t, []string{"first:core:apple", "second:apple", "second:banana"}, calls)
}

func TestAddedListenerErrorRollsBack(t *testing.T) {
	r, _ := newTestRegistry(t, "apple")
	veto := errors.New("veto")
	tok := r.OnAdded(func(id RawID, name ident.Name, entry string) error {
		if name == n("banana") {
			return veto
		}
		return nil
	})

	_, err := r.Register(n("banana"), "banana")
	require.ErrorIs(t, err, veto)
	require.False(t, r.Contains(n("banana")))
	_, ok := r.RawID(n("banana"))
	require.False(t, ok)

	r.RemoveAddedListener(tok)
	id, err := r.Register(n("banana"), "banana")
	require.NoError(t, err)
	require.Equal(t, 1, id)
}

func TestRemapListenerRemoval(t *testing.T) {
	r, _ := newTestRegistry(t, "apple")
	calls := 0
	tok := r.OnRemap(func(RemapState) { calls++ })
	_, err := r.Remap(table("apple", 1), ModeAuthoritative)
	require.NoError(t, err)
	require.True(t, r.RemoveRemapListener(tok))
	require.NoError(t, r.Unmap())
	require.Equal(t, 1, calls)
}

func TestModdedFlagBeforeBootstrap(t *testing.T) {
	testlog.Start(t)
	life := NewLifecycle("core", "brigadier")
	r := New[string](testKey, life)

	_, err := r.Register(n("core:apple"), "apple")
	require.NoError(t, err)
	require.False(t, r.HasAttribute(AttributeModded), "vanilla adds before bootstrap are baseline")

	_, err = r.Register(n("mod:ruby"), "ruby")
	require.NoError(t, err)
	require.True(t, r.HasAttribute(AttributeModded))
}

func TestModdedFlagAfterBootstrapIsSticky(t *testing.T) {
	testlog.Start(t)
	life := NewLifecycle("core")
	r := New[string](testKey, life)
	_, err := r.Register(n("core:apple"), "apple")
	require.NoError(t, err)

	life.CompleteBootstrap()
	require.True(t, life.Bootstrapped())
	_, err = r.Register(n("core:banana"), "banana")
	require.NoError(t, err)
	require.Equal(t, []Attribute{AttributeModded}, r.Attributes())

	_, err = r.Remap(table("banana", 0, "apple", 1), ModeRemote)
	require.NoError(t, err)
	require.NoError(t, r.Unmap())
	require.True(t, r.HasAttribute(AttributeModded))
}

func TestInfoSnapshot(t *testing.T) {
	r, _ := newTestRegistry(t, "apple", "banana")
	require.NoError(t, r.AddAlias(n("old_apple"), n("apple")))
	_, err := r.Remap(table("banana", 0, "apple", 1), ModeRemote)
	require.NoError(t, err)

	info := r.Info()
	assert.Equal(t, testKey, info.Key)
	assert.True(t, info.Mapped)
	assert.False(t, info.Frozen)
	assert.Equal(t, table("banana", 0, "apple", 1), info.IDs)
	assert.Equal(t, map[ident.Name]ident.Name{n("old_apple"): n("apple")}, info.Aliases)
}

func TestLifecycleVanillaNamespaces(t *testing.T) {
	life := NewLifecycle("minecraft", " ", "brigadier")
	assert.Equal(t, []string{"brigadier", "minecraft"}, life.VanillaNamespaces())
	assert.True(t, life.Vanilla("minecraft"))
	assert.False(t, life.Vanilla("mod"))
	assert.False(t, life.Bootstrapped())
}
