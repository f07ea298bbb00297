package registry

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/danmuck/regsync/internal/ident"
	"github.com/danmuck/regsync/internal/observability"
)

// MaxRawID bounds IDs accepted from a remote table.
const MaxRawID RawID = 1<<24 - 1

// A remote table of n names may use IDs up to n*SparseFactor + SparseSlack.
// The rebuild allocates a slot for every ID below the maximum.
const (
	SparseFactor = 16
	SparseSlack  = 4096
)

// remoteIDLimit is the largest raw ID accepted from a table of size n.
func remoteIDLimit(n int) RawID {
	return min(MaxRawID, n*SparseFactor+SparseSlack)
}

// Translation maps pre-remap raw IDs to post-remap raw IDs.
type Translation = map[RawID]RawID

// RemapState is delivered to remap listeners once the store is rebuilt.
type RemapState struct {
	Registry ident.Name
	Mode     Mode
	// OldNames is the pre-remap raw ID -> name binding.
	OldNames    map[RawID]ident.Name
	Translation Translation
}

func (s RemapState) NewID(old RawID) (RawID, bool) {
	id, ok := s.Translation[old]
	return id, ok
}

func (s RemapState) OldName(old RawID) (ident.Name, bool) {
	name, ok := s.OldNames[old]
	return name, ok
}

type placement struct {
	id   RawID
	name ident.Name
}

// Remap rebinds raw IDs to match remote under mode and returns the old -> new
// translation. On error the store is untouched.
func (r *Registry[T]) Remap(remote Table, mode Mode) (Translation, error) {
	start := time.Now()
	tr, minted, err := r.remap(remote, mode)
	observability.RecordRemap(r.key.String(), mode.String(), minted, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return tr, nil
}

func (r *Registry[T]) remap(remote Table, mode Mode) (Translation, int, error) {
	if err := r.validateRemote(remote, mode); err != nil {
		return nil, 0, err
	}

	oldNames := r.boundNames()
	table, minted, err := r.reconcile(remote, mode)
	if err != nil {
		return nil, 0, err
	}
	tr, err := r.translate(table)
	if err != nil {
		return nil, 0, err
	}
	plan, err := r.plan(table, mode)
	if err != nil {
		return nil, 0, err
	}

	// Everything below is infallible.
	if r.snapshot.Capture(r.store) {
		r.logger.Debug().Int("entries", len(oldNames)).Msg("pre-remap snapshot captured")
	}
	r.store.ClearIndices()
	for _, p := range plan {
		r.store.Place(p.id, p.name)
	}

	r.logger.Debug().
		Str("mode", mode.String()).
		Int("translated", len(tr)).
		Int("minted", minted).
		Msg("remap complete")

	state := RemapState{
		Registry:    r.key,
		Mode:        mode,
		OldNames:    oldNames,
		Translation: tr,
	}
	for fn := range r.remapped.All() {
		fn(state)
	}
	return tr, minted, nil
}

func (r *Registry[T]) validateRemote(remote Table, mode Mode) error {
	switch mode {
	case ModeAuthoritative:
	case ModeRemote:
		var unknown []ident.Name
		for name := range remote {
			if !r.Contains(name) {
				unknown = append(unknown, name)
			}
		}
		if len(unknown) > 0 {
			ident.Sort(unknown)
			return &RemapError{
				Registry: r.key,
				Reason:   "received ID table contains names unknown to the receiver",
				Names:    unknown,
			}
		}
	default:
		return &RemapError{Registry: r.key, Reason: fmt.Sprintf("unsupported remap mode %s", mode)}
	}

	limit := remoteIDLimit(len(remote))
	var outOfRange []ident.Name
	holders := make(map[RawID]ident.Name, len(remote))
	var dupes []ident.Name
	for _, name := range sortedByID(remote) {
		id := remote[name]
		if id < 0 || id > limit {
			outOfRange = append(outOfRange, name)
			continue
		}
		if prev, ok := holders[id]; ok {
			dupes = append(dupes, prev, name)
			continue
		}
		holders[id] = name
	}
	if len(outOfRange) > 0 {
		ident.Sort(outOfRange)
		return &RemapError{
			Registry: r.key,
			Reason:   fmt.Sprintf("received ID table has raw ids outside [0, %d]", limit),
			Names:    outOfRange,
		}
	}
	if len(dupes) > 0 {
		ident.Sort(dupes)
		dupes = slices.Compact(dupes)
		return &RemapError{
			Registry: r.key,
			Reason:   "received ID table binds one raw id to several names",
			Names:    dupes,
		}
	}
	return nil
}

// reconcile extends remote with local-only names.
func (r *Registry[T]) reconcile(remote Table, mode Mode) (Table, int, error) {
	table := maps.Clone(remote)
	if table == nil {
		table = make(Table)
	}
	minted := 0

	switch mode {
	case ModeAuthoritative:
		next := maxID(table)
		for _, name := range r.localNames() {
			if _, ok := table[name]; ok {
				continue
			}
			next++
			table[name] = next
			minted++
			r.logger.Warn().
				Str("name", name.String()).
				Int("id", next).
				Msg("adding local entry to remote table")
		}
	case ModeRemote:
		next := -1
		for _, name := range r.localNames() {
			if _, ok := table[name]; ok {
				continue
			}
			if next < 0 {
				if len(remote) == 0 {
					return nil, 0, &RemapError{
						Registry: r.key,
						Reason:   "cannot assign an id to client-only entries, the remote table is empty",
						Names:    []ident.Name{name},
					}
				}
				next = maxID(remote)
			}
			next++
			table[name] = next
			minted++
			r.logger.Warn().
				Str("name", name.String()).
				Int("id", next).
				Msg("id not sent by remote, assuming client-only entry")
		}
	}
	return table, minted, nil
}

// translate maps every bound raw ID whose name survives into table.
func (r *Registry[T]) translate(table Table) (Translation, error) {
	tr := make(Translation, len(table))
	for id := 0; id < r.store.Len(); id++ {
		name, state := r.store.Slot(id)
		switch state {
		case SlotHole:
			return nil, &RemapError{Registry: r.key, Reason: fmt.Sprintf("unused raw id %d", id)}
		case SlotReserved:
			continue
		}
		if newID, ok := table[name]; ok {
			tr[id] = newID
		}
	}
	return tr, nil
}

// plan orders placements by new ID and checks every name resolves locally.
func (r *Registry[T]) plan(table Table, mode Mode) ([]placement, error) {
	plan := make([]placement, 0, len(table))
	var missing []ident.Name
	for _, name := range sortedByID(table) {
		if _, ok := r.store.Lookup(name); !ok {
			if mode == ModeAuthoritative {
				missing = append(missing, name)
				continue
			}
			r.logger.Warn().
				Str("name", name.String()).
				Int("id", table[name]).
				Msg("remote entry missing from local registry, skipping")
			continue
		}
		plan = append(plan, placement{id: table[name], name: name})
	}
	if len(missing) > 0 {
		ident.Sort(missing)
		return nil, &RemapError{
			Registry: r.key,
			Reason:   "reconciled table names entries missing from the registry",
			Names:    missing,
		}
	}
	return plan, nil
}

// boundNames returns the pre-remap raw ID -> name binding.
func (r *Registry[T]) boundNames() map[RawID]ident.Name {
	out := make(map[RawID]ident.Name, r.store.Len())
	for id := 0; id < r.store.Len(); id++ {
		if name, state := r.store.Slot(id); state == SlotBound {
			out[id] = name
		}
	}
	return out
}

// localNames lists registered names by ascending raw ID, then names without
// an ID in name order.
func (r *Registry[T]) localNames() []ident.Name {
	entries := r.store.Entries()
	out := make([]ident.Name, 0, len(entries))
	seen := make(map[ident.Name]struct{}, len(entries))
	for id := 0; id < r.store.Len(); id++ {
		name, state := r.store.Slot(id)
		if state != SlotBound {
			continue
		}
		if _, ok := entries[name]; !ok {
			continue
		}
		out = append(out, name)
		seen[name] = struct{}{}
	}
	var unplaced []ident.Name
	for name := range entries {
		if _, ok := seen[name]; !ok {
			unplaced = append(unplaced, name)
		}
	}
	ident.Sort(unplaced)
	return append(out, unplaced...)
}

func maxID(table Table) RawID {
	m := -1
	for _, id := range table {
		if id > m {
			m = id
		}
	}
	return m
}
