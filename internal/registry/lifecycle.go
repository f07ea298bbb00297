package registry

import (
	"slices"
	"sort"
	"strings"
	"sync/atomic"
)

// Lifecycle is the bootstrap state shared by every registry of one process.
//
// Bootstrapped flips once, on CompleteBootstrap, and never resets.
type Lifecycle struct {
	bootstrapped atomic.Bool
	vanilla      map[string]struct{}
}

// NewLifecycle records the namespaces that count as baseline content.
func NewLifecycle(vanillaNamespaces ...string) *Lifecycle {
	l := &Lifecycle{vanilla: make(map[string]struct{}, len(vanillaNamespaces))}
	for _, ns := range vanillaNamespaces {
		ns = strings.TrimSpace(ns)
		if ns == "" {
			continue
		}
		l.vanilla[ns] = struct{}{}
	}
	return l
}

func (l *Lifecycle) CompleteBootstrap() {
	l.bootstrapped.Store(true)
}

func (l *Lifecycle) Bootstrapped() bool {
	return l.bootstrapped.Load()
}

func (l *Lifecycle) Vanilla(namespace string) bool {
	_, ok := l.vanilla[namespace]
	return ok
}

// VanillaNamespaces returns the baseline namespaces, sorted.
func (l *Lifecycle) VanillaNamespaces() []string {
	out := make([]string, 0, len(l.vanilla))
	for ns := range l.vanilla {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Attribute is a sticky per-registry classification.
type Attribute string

const (
	// AttributeModded marks a registry that holds non-baseline content.
	AttributeModded Attribute = "modded"
)

// Attributes is a one-way attribute set. Nothing is ever removed.
type Attributes struct {
	set map[Attribute]struct{}
}

func (a *Attributes) Has(attr Attribute) bool {
	_, ok := a.set[attr]
	return ok
}

// Add reports whether attr was newly added.
func (a *Attributes) Add(attr Attribute) bool {
	if a.set == nil {
		a.set = make(map[Attribute]struct{})
	}
	if _, ok := a.set[attr]; ok {
		return false
	}
	a.set[attr] = struct{}{}
	return true
}

func (a *Attributes) List() []Attribute {
	out := make([]Attribute, 0, len(a.set))
	for attr := range a.set {
		out = append(out, attr)
	}
	slices.Sort(out)
	return out
}
