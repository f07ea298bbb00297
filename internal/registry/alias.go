package registry

import (
	"fmt"
	"maps"

	"github.com/danmuck/regsync/internal/ident"
	"github.com/danmuck/regsync/internal/observability"
)

// AliasTable maps alternate names to canonical names.
//
// Invariant: keys and values are disjoint, so every alias resolves in one hop.
type AliasTable struct {
	m map[ident.Name]ident.Name
}

func NewAliasTable() *AliasTable {
	return &AliasTable{m: make(map[ident.Name]ident.Name)}
}

// Resolve returns the canonical name for an alias, else name unchanged.
func (a *AliasTable) Resolve(name ident.Name) ident.Name {
	if target, ok := a.m[name]; ok {
		return target
	}
	return name
}

// Target reports the canonical name old currently aliases.
func (a *AliasTable) Target(old ident.Name) (ident.Name, bool) {
	target, ok := a.m[old]
	return target, ok
}

func (a *AliasTable) IsAlias(name ident.Name) bool {
	_, ok := a.m[name]
	return ok
}

func (a *AliasTable) Len() int {
	return len(a.m)
}

// All returns a copy of the alias map.
func (a *AliasTable) All() map[ident.Name]ident.Name {
	return maps.Clone(a.m)
}

// bind inserts old -> canonical, compressing so no alias points at an alias.
// Callers reject duplicates and cycles first.
func (a *AliasTable) bind(old, canonical ident.Name) ident.Name {
	deepest := a.Resolve(canonical)
	for k, v := range a.m {
		if v == old {
			a.m[k] = deepest
		}
	}
	a.m[old] = deepest
	return deepest
}

// AddAlias makes old resolve to canonical for every lookup. It must run
// before the registry is frozen.
func (r *Registry[T]) AddAlias(old, canonical ident.Name) error {
	if r.store.Frozen() {
		return fmt.Errorf("%w: cannot alias %s in %s", ErrFrozen, old, r.key)
	}
	if err := old.Validate(); err != nil {
		return err
	}
	if err := canonical.Validate(); err != nil {
		return err
	}
	if target, ok := r.aliases.Target(old); ok {
		return &ConflictError{Registry: r.key, Name: old, Existing: target, Reason: "is already an alias"}
	}
	if _, ok := r.store.Lookup(old); ok {
		return &ConflictError{Registry: r.key, Name: old, Reason: "is already registered"}
	}
	// With disjoint keys and values this is the only reachable cycle.
	if old == canonical || r.aliases.Resolve(canonical) == old {
		return &CycleError{Registry: r.key, Alias: old, Canonical: canonical}
	}
	if _, ok := r.store.Lookup(r.aliases.Resolve(canonical)); !ok {
		r.logger.Warn().
			Str("alias", old.String()).
			Str("target", canonical.String()).
			Msg("alias target is not registered")
	}

	deepest := r.aliases.bind(old, canonical)
	r.logger.Debug().
		Str("alias", old.String()).
		Str("target", deepest.String()).
		Msg("alias added")
	observability.RecordAlias(r.key.String())
	return nil
}

// Resolve returns the canonical name for name.
func (r *Registry[T]) Resolve(name ident.Name) ident.Name {
	return r.aliases.Resolve(name)
}

func (r *Registry[T]) Aliases() map[ident.Name]ident.Name {
	return r.aliases.All()
}
