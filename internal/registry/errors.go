package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/regsync/internal/ident"
)

var (
	ErrConflict  = errors.New("registry: conflict")
	ErrRemap     = errors.New("registry: remap failed")
	ErrFrozen    = errors.New("registry: frozen")
	ErrNotFound  = errors.New("registry: entry not found")
	ErrIDTaken   = errors.New("registry: raw id already bound")
	ErrInvalidID = errors.New("registry: invalid raw id")
)

// ConflictError reports an alias or name collision. The registry is unchanged.
type ConflictError struct {
	Registry ident.Name
	Name     ident.Name
	// Existing is the alias target or registered name the call collided with.
	Existing ident.Name
	Reason   string
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("registry %s: %s %s", e.Registry, e.Name, e.Reason)
	if !e.Existing.IsZero() {
		msg += fmt.Sprintf(" (for %s)", e.Existing)
	}
	return msg
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// CycleError reports an alias that would resolve back to itself.
type CycleError struct {
	Registry  ident.Name
	Alias     ident.Name
	Canonical ident.Name
}

func (e *CycleError) Error() string {
	if e.Alias == e.Canonical {
		return fmt.Sprintf("registry %s: %s cannot alias itself", e.Registry, e.Alias)
	}
	return fmt.Sprintf(
		"registry %s: making %s an alias of %s would create a cycle, as %s is already an alias of %s",
		e.Registry, e.Alias, e.Canonical, e.Canonical, e.Alias,
	)
}

func (e *CycleError) Is(target error) bool {
	return target == ErrConflict
}

// RemapError reports a remap that was rejected before any mutation.
type RemapError struct {
	Registry ident.Name
	Reason   string
	// Names lists every offending name, sorted.
	Names []ident.Name
}

func (e *RemapError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "registry %s: %s", e.Registry, e.Reason)
	for _, name := range e.Names {
		b.WriteString("\n - ")
		b.WriteString(name.String())
	}
	return b.String()
}

func (e *RemapError) Is(target error) bool {
	return target == ErrRemap
}
