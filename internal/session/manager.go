package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/danmuck/regsync/internal/ident"
	"github.com/danmuck/regsync/internal/logging"
	"github.com/danmuck/regsync/internal/registry"
	"github.com/rs/zerolog"
)

var (
	ErrDuplicateRegistry = errors.New("session: registry already added")
	ErrUnknownRegistry   = errors.New("session: unknown registry")
	ErrNilRegistry       = errors.New("session: registry is nil")
)

// Remappable is a registry the session can reconcile and roll back.
type Remappable interface {
	Key() ident.Name
	Remap(remote registry.Table, mode registry.Mode) (registry.Translation, error)
	Unmap() error
	Freeze()
	Info() registry.Info
}

// Manager drives remap and unmap across registries in registration order.
// It serializes every call that touches registry state.
type Manager struct {
	mu        sync.Mutex
	order     []ident.Name
	items     map[ident.Name]Remappable
	lifecycle *registry.Lifecycle
	active    bool
	logger    zerolog.Logger
}

func NewManager(lifecycle *registry.Lifecycle) *Manager {
	if lifecycle == nil {
		lifecycle = registry.NewLifecycle()
	}
	return &Manager{
		items:     make(map[ident.Name]Remappable),
		lifecycle: lifecycle,
		logger:    logging.Logger("session"),
	}
}

func (m *Manager) Lifecycle() *registry.Lifecycle {
	return m.lifecycle
}

func (m *Manager) Add(r Remappable) error {
	if r == nil {
		return ErrNilRegistry
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := r.Key()
	if _, ok := m.items[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRegistry, key)
	}
	m.items[key] = r
	m.order = append(m.order, key)
	return nil
}

func (m *Manager) Get(key ident.Name) (Remappable, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[key]
	return r, ok
}

// Infos returns a view of every registry in registration order.
func (m *Manager) Infos() []registry.Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]registry.Info, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.items[key].Info())
	}
	return out
}

// CompleteBootstrap freezes every registry and marks bootstrap done.
func (m *Manager) CompleteBootstrap() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range m.order {
		m.items[key].Freeze()
	}
	m.lifecycle.CompleteBootstrap()
	m.logger.Debug().Int("registries", len(m.order)).Msg("bootstrap complete, registries frozen")
}

// Begin marks a session active. Remaps capture their own snapshots, so this
// only records intent.
func (m *Manager) Begin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = true
	m.logger.Debug().Msg("session begin")
}

func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Apply remaps every registry named in tables. A registry that fails keeps its
// prior IDs; the others still apply. Errors are logged and joined.
func (m *Manager) Apply(tables map[ident.Name]registry.Table, mode registry.Mode) (map[ident.Name]registry.Translation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for key := range tables {
		if _, ok := m.items[key]; !ok {
			m.logger.Warn().Str("registry", key.String()).Msg("received ID table for unknown registry")
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownRegistry, key))
		}
	}

	out := make(map[ident.Name]registry.Translation, len(tables))
	for _, key := range m.order {
		remote, ok := tables[key]
		if !ok {
			continue
		}
		tr, err := m.items[key].Remap(remote, mode)
		if err != nil {
			m.logger.Warn().Err(err).Str("registry", key.String()).Str("mode", mode.String()).Msg("remap failed")
			errs = append(errs, err)
			continue
		}
		out[key] = tr
	}
	m.active = true
	return out, errors.Join(errs...)
}

// End unmaps every registry. Failures are logged and joined; the remaining
// registries still unmap.
func (m *Manager) End() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, key := range m.order {
		if err := m.items[key].Unmap(); err != nil {
			m.logger.Warn().Err(err).Str("registry", key.String()).Msg("failed to unmap registry")
			errs = append(errs, err)
		}
	}
	m.active = false
	m.logger.Debug().Int("failed", len(errs)).Msg("session end")
	return errors.Join(errs...)
}
