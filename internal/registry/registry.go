// Package registry owns integer ID reconciliation for named entry registries.
//
// Ownership boundary:
// - alias table and alias-aware lookups
// - raw ID assignment, remap and unmap
// - add/remap listener fan-out
// - modded classification
//
// A Registry is driven from one goroutine. Callers serialize Remap, Unmap and
// registration themselves.
package registry

import (
	"fmt"
	"sort"

	"github.com/danmuck/regsync/internal/ident"
	"github.com/danmuck/regsync/internal/logging"
	"github.com/danmuck/regsync/internal/observability"
	"github.com/rs/zerolog"
)

// AddedFunc observes a registration. A non-nil error aborts the insertion.
type AddedFunc[T any] func(id RawID, name ident.Name, entry T) error

// RemapFunc observes a completed remap.
type RemapFunc func(state RemapState)

// Registry aggregates the entry store with its alias table, session snapshot
// and listeners.
type Registry[T any] struct {
	key       ident.Name
	store     Store[T]
	aliases   *AliasTable
	snapshot  Snapshot[T]
	lifecycle *Lifecycle
	attrs     Attributes
	added     Listeners[AddedFunc[T]]
	remapped  Listeners[RemapFunc]
	logger    zerolog.Logger
}

type Option[T any] func(*Registry[T])

// WithStore replaces the default MemoryStore.
func WithStore[T any](store Store[T]) Option[T] {
	return func(r *Registry[T]) {
		r.store = store
	}
}

func WithLogger[T any](logger zerolog.Logger) Option[T] {
	return func(r *Registry[T]) {
		r.logger = logger
	}
}

// New creates a registry. A nil lifecycle gets a private one with no
// vanilla namespaces.
func New[T any](key ident.Name, lifecycle *Lifecycle, opts ...Option[T]) *Registry[T] {
	if lifecycle == nil {
		lifecycle = NewLifecycle()
	}
	r := &Registry[T]{
		key:       key,
		aliases:   NewAliasTable(),
		lifecycle: lifecycle,
		logger:    logging.Logger("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.store == nil {
		r.store = NewMemoryStore[T](key)
	}
	r.logger = r.logger.With().Str("registry", key.String()).Logger()
	// Must stay first so colliding adds are rejected before anyone observes them.
	r.added.Register(r.rejectAliasCollision)
	return r
}

func (r *Registry[T]) Key() ident.Name {
	return r.key
}

// Register binds entry to name at the next free raw ID.
func (r *Registry[T]) Register(name ident.Name, entry T) (RawID, error) {
	id := r.store.Len()
	if err := r.RegisterAt(id, name, entry); err != nil {
		return 0, err
	}
	return id, nil
}

// RegisterAt binds entry to name at id.
func (r *Registry[T]) RegisterAt(id RawID, name ident.Name, entry T) error {
	if err := name.Validate(); err != nil {
		return err
	}
	if err := r.store.Insert(id, name, entry); err != nil {
		return err
	}
	if err := r.notifyAdded(id, name, entry); err != nil {
		r.store.Remove(name)
		return err
	}
	r.markChanged(name)
	return nil
}

// OnAdded registers fn after the built-in alias guard.
func (r *Registry[T]) OnAdded(fn AddedFunc[T]) Token {
	return r.added.Register(fn)
}

func (r *Registry[T]) OnRemap(fn RemapFunc) Token {
	return r.remapped.Register(fn)
}

func (r *Registry[T]) RemoveAddedListener(tok Token) bool {
	return r.added.Unregister(tok)
}

func (r *Registry[T]) RemoveRemapListener(tok Token) bool {
	return r.remapped.Unregister(tok)
}

// Get returns the entry for name, following aliases.
func (r *Registry[T]) Get(name ident.Name) (T, bool) {
	return r.store.Lookup(r.aliases.Resolve(name))
}

// GetKey is Get through the registry-qualified key index.
func (r *Registry[T]) GetKey(key Key) (T, bool) {
	if key.Registry != r.key {
		var zero T
		return zero, false
	}
	key.Name = r.aliases.Resolve(key.Name)
	return r.store.LookupKey(key)
}

func (r *Registry[T]) Contains(name ident.Name) bool {
	_, ok := r.Get(name)
	return ok
}

// RawID returns the current raw ID for name, following aliases.
func (r *Registry[T]) RawID(name ident.Name) (RawID, bool) {
	name = r.aliases.Resolve(name)
	if _, ok := r.store.Lookup(name); !ok {
		return 0, false
	}
	return r.store.RawIDOf(name)
}

// ByRawID returns the name and entry bound at id.
func (r *Registry[T]) ByRawID(id RawID) (ident.Name, T, bool) {
	var zero T
	name, state := r.store.Slot(id)
	if state != SlotBound {
		return ident.Name{}, zero, false
	}
	entry, ok := r.store.Lookup(name)
	if !ok {
		return ident.Name{}, zero, false
	}
	return name, entry, true
}

// IDs returns the live name -> raw ID assignment.
func (r *Registry[T]) IDs() Table {
	out := make(Table)
	for id := 0; id < r.store.Len(); id++ {
		name, state := r.store.Slot(id)
		if state != SlotBound {
			continue
		}
		if _, ok := r.store.Lookup(name); ok {
			out[name] = id
		}
	}
	return out
}

// Names returns every registered name, sorted.
func (r *Registry[T]) Names() []ident.Name {
	entries := r.store.Entries()
	out := make([]ident.Name, 0, len(entries))
	for name := range entries {
		out = append(out, name)
	}
	ident.Sort(out)
	return out
}

func (r *Registry[T]) Len() int {
	return len(r.store.Entries())
}

// Cull drops name for the rest of the mapped session. The next remap releases
// its raw ID and Unmap restores it.
func (r *Registry[T]) Cull(name ident.Name) error {
	if _, ok := r.store.Forget(name); !ok {
		return fmt.Errorf("%w: %s in %s", ErrNotFound, name, r.key)
	}
	r.logger.Debug().Str("name", name.String()).Msg("entry culled")
	return nil
}

func (r *Registry[T]) Freeze() {
	r.store.Freeze()
}

func (r *Registry[T]) Frozen() bool {
	return r.store.Frozen()
}

// Mapped reports whether a remap snapshot is pending.
func (r *Registry[T]) Mapped() bool {
	return r.snapshot.Pending()
}

func (r *Registry[T]) Attributes() []Attribute {
	return r.attrs.List()
}

func (r *Registry[T]) HasAttribute(attr Attribute) bool {
	return r.attrs.Has(attr)
}

func (r *Registry[T]) AddAttribute(attr Attribute) {
	r.attrs.Add(attr)
}

// Info is a point-in-time view for inspection surfaces.
type Info struct {
	Key        ident.Name                `json:"key"`
	Frozen     bool                      `json:"frozen"`
	Mapped     bool                      `json:"mapped"`
	Attributes []Attribute               `json:"attributes"`
	IDs        Table                     `json:"ids"`
	Aliases    map[ident.Name]ident.Name `json:"aliases"`
}

func (r *Registry[T]) Info() Info {
	return Info{
		Key:        r.key,
		Frozen:     r.Frozen(),
		Mapped:     r.Mapped(),
		Attributes: r.Attributes(),
		IDs:        r.IDs(),
		Aliases:    r.aliases.All(),
	}
}

func (r *Registry[T]) notifyAdded(id RawID, name ident.Name, entry T) error {
	for fn := range r.added.All() {
		if err := fn(id, name, entry); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry[T]) rejectAliasCollision(_ RawID, name ident.Name, _ T) error {
	if target, ok := r.aliases.Target(name); ok {
		return &ConflictError{
			Registry: r.key,
			Name:     name,
			Existing: target,
			Reason:   "cannot be registered, it is already an alias",
		}
	}
	return nil
}

// markChanged flags the registry modded on the first non-baseline add, or on
// any add once bootstrap has completed.
func (r *Registry[T]) markChanged(name ident.Name) {
	if !r.lifecycle.Bootstrapped() && r.lifecycle.Vanilla(name.Namespace) {
		return
	}
	if r.attrs.Add(AttributeModded) {
		r.logger.Debug().Str("name", name.String()).Msg("registry marked modded")
		observability.RecordModded(r.key.String())
	}
}

// sortedByID orders names by their value in table.
func sortedByID(table Table) []ident.Name {
	out := make([]ident.Name, 0, len(table))
	for name := range table {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := table[out[i]], table[out[j]]
		if a != b {
			return a < b
		}
		return ident.Compare(out[i], out[j]) < 0
	})
	return out
}
