package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/danmuck/regsync/internal/config"
	"github.com/danmuck/regsync/internal/ident"
	"github.com/danmuck/regsync/internal/protocol"
	"github.com/danmuck/regsync/internal/registry"
	"github.com/danmuck/regsync/internal/session"
	"github.com/rs/zerolog"
)

// applied is one remote table that reconciled cleanly.
type applied struct {
	Registry    ident.Name
	Mode        registry.Mode
	Translation registry.Translation
	OldNames    map[registry.RawID]ident.Name
}

type cliSession struct {
	manager *session.Manager
	keys    []ident.Name
	last    map[ident.Name]registry.RemapState
	logger  zerolog.Logger
}

// buildSession registers every configured entry and alias, then completes
// bootstrap so later registrations count as modded.
func buildSession(cfg config.Config, logger zerolog.Logger) (*cliSession, error) {
	life := registry.NewLifecycle(cfg.VanillaNamespaces...)
	s := &cliSession{
		manager: session.NewManager(life),
		last:    make(map[ident.Name]registry.RemapState),
		logger:  logger,
	}
	for _, rc := range cfg.Registries {
		key, err := rc.Key()
		if err != nil {
			return nil, err
		}
		names, err := rc.Names()
		if err != nil {
			return nil, fmt.Errorf("registry %s: %w", key, err)
		}
		pairs, err := rc.AliasPairs()
		if err != nil {
			return nil, fmt.Errorf("registry %s: %w", key, err)
		}

		reg := registry.New[string](key, life)
		for _, name := range names {
			if _, err := reg.Register(name, name.String()); err != nil {
				return nil, fmt.Errorf("registry %s: %w", key, err)
			}
		}
		for _, pair := range pairs {
			if err := reg.AddAlias(pair.Old, pair.Canonical); err != nil {
				return nil, fmt.Errorf("registry %s: %w", key, err)
			}
		}
		reg.OnRemap(func(state registry.RemapState) {
			s.last[state.Registry] = state
		})
		if err := s.manager.Add(reg); err != nil {
			return nil, err
		}
		s.keys = append(s.keys, key)
	}
	s.manager.CompleteBootstrap()
	s.manager.Begin()
	return s, nil
}

// apply reconciles each remote table in file order. A failed table is
// reported and skipped; the rest still apply.
func (s *cliSession) apply(remotes []config.RemoteConfig, modeOverride string) ([]applied, error) {
	var override *registry.Mode
	if strings.TrimSpace(modeOverride) != "" {
		mode, err := registry.ParseMode(modeOverride)
		if err != nil {
			return nil, err
		}
		override = &mode
	}

	var (
		out  []applied
		errs []error
	)
	for _, rc := range remotes {
		key, err := rc.Key()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		table, err := rc.Table()
		if err != nil {
			errs = append(errs, fmt.Errorf("remote %s: %w", key, err))
			continue
		}
		mode, err := rc.ParsedMode()
		if err != nil {
			errs = append(errs, fmt.Errorf("remote %s: %w", key, err))
			continue
		}
		if override != nil {
			mode = *override
		}

		tr, err := s.manager.Apply(map[ident.Name]registry.Table{key: table}, mode)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		state := s.last[key]
		out = append(out, applied{
			Registry:    key,
			Mode:        mode,
			Translation: tr[key],
			OldNames:    state.OldNames,
		})
		s.logger.Info().
			Str("registry", key.String()).
			Str("mode", mode.String()).
			Int("entries", len(table)).
			Msg("applied remote table")
	}
	return out, errors.Join(errs...)
}

// tables returns the current ID table of every registry.
func (s *cliSession) tables() map[ident.Name]registry.Table {
	out := make(map[ident.Name]registry.Table, len(s.keys))
	for _, info := range s.manager.Infos() {
		out[info.Key] = info.IDs
	}
	return out
}

func (s *cliSession) save(path string) error {
	return config.WriteRemote(path, s.keys, s.tables(), registry.ModeAuthoritative)
}

// writeWire frames a hello followed by one ID table per registry, encoded
// for a peer that supports peerExts.
func (s *cliSession) writeWire(path string, peerExts []string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("write frames (%s): %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := s.encodeFrames(w, protocol.NewExtensionSet(peerExts...)); err != nil {
		_ = f.Close()
		return fmt.Errorf("write frames (%s): %w", path, err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s *cliSession) encodeFrames(w io.Writer, peer protocol.ExtensionSet) error {
	enc := protocol.NewEncoder(peer)
	msgID := uint64(1)
	if err := enc.Encode(w, protocol.NewHello(msgID, protocol.NewExtensionSet(protocol.ExtensionAliases))); err != nil {
		return err
	}
	infos := s.manager.Infos()
	for _, info := range infos {
		msgID++
		t := protocol.IDTable{
			Registry: info.Key.String(),
			IDs:      make(map[string]uint32, len(info.IDs)),
			Aliases:  make(map[string]string, len(info.Aliases)),
		}
		for name, id := range info.IDs {
			t.IDs[name.String()] = uint32(id)
		}
		for old, canonical := range info.Aliases {
			t.Aliases[old.String()] = canonical.String()
		}
		if err := enc.Encode(w, protocol.NewIDTableMessage(msgID, t)); err != nil {
			return fmt.Errorf("registry %s: %w", info.Key, err)
		}
	}
	return nil
}

func printTranslation(w io.Writer, a applied) {
	fmt.Fprintf(w, "%s (%s)\n", a.Registry, a.Mode)
	olds := make([]registry.RawID, 0, len(a.Translation))
	for old := range a.Translation {
		olds = append(olds, old)
	}
	slices.Sort(olds)
	for _, old := range olds {
		name := a.OldNames[old]
		fmt.Fprintf(w, "  %-24s %4d -> %d\n", name, old, a.Translation[old])
	}
}

func printTables(w io.Writer, s *cliSession) {
	tables := s.tables()
	for _, key := range s.keys {
		fmt.Fprintf(w, "%s\n", key)
		table := tables[key]
		names := make([]ident.Name, 0, len(table))
		for name := range table {
			names = append(names, name)
		}
		slices.SortFunc(names, func(a, b ident.Name) int {
			if d := table[a] - table[b]; d != 0 {
				return d
			}
			return ident.Compare(a, b)
		})
		for _, name := range names {
			fmt.Fprintf(w, "  %4d %s\n", table[name], name)
		}
	}
}
