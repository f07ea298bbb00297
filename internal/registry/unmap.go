package registry

import (
	"github.com/danmuck/regsync/internal/ident"
	"github.com/danmuck/regsync/internal/observability"
)

// Unmap restores the assignment captured before the first remap of the
// session and re-announces entries culled since. It is a no-op when no remap
// is pending. On error the snapshot is kept so Unmap can be retried.
func (r *Registry[T]) Unmap() error {
	if !r.snapshot.Pending() {
		return nil
	}
	prevIDs := r.snapshot.IDs()
	prevEntries := r.snapshot.Entries()

	var restored []ident.Name
	for name := range prevEntries {
		if _, ok := r.store.Lookup(name); !ok {
			restored = append(restored, name)
		}
	}
	restoredIDs := make(Table, len(restored))
	for _, name := range restored {
		restoredIDs[name] = prevIDs[name]
	}
	restored = sortedByID(restoredIDs)

	current := r.store.Entries()
	r.store.RestoreNames(prevEntries)
	if _, _, err := r.remap(prevIDs, ModeAuthoritative); err != nil {
		r.store.RestoreNames(current)
		observability.RecordUnmap(r.key.String(), 0, err)
		return err
	}

	for _, name := range restored {
		id, _ := r.store.RawIDOf(name)
		if err := r.notifyAdded(id, name, prevEntries[name]); err != nil {
			r.logger.Warn().Err(err).Str("name", name.String()).Msg("add listener rejected restored entry")
		}
	}

	r.snapshot.Clear()
	r.logger.Debug().Int("restored", len(restored)).Msg("unmapped to pre-remap ids")
	observability.RecordUnmap(r.key.String(), len(restored), nil)
	return nil
}
