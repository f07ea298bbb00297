package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/regsync/internal/ident"
	"github.com/danmuck/regsync/internal/registry"
	"github.com/pelletier/go-toml/v2"
)

// remoteFile is the subset of a session file that carries ID tables.
type remoteFile struct {
	Remote []RemoteConfig `toml:"remote"`
}

// EncodeRemote writes tables as [[remote]] blocks in key order so a saved
// session can be replayed with LoadRemote or pasted into a config.
func EncodeRemote(w io.Writer, keys []ident.Name, tables map[ident.Name]registry.Table, mode registry.Mode) error {
	out := remoteFile{Remote: make([]RemoteConfig, 0, len(keys))}
	for _, key := range keys {
		table, ok := tables[key]
		if !ok {
			continue
		}
		ids := make(map[string]int, len(table))
		for name, id := range table {
			ids[name.String()] = id
		}
		out.Remote = append(out.Remote, RemoteConfig{
			Registry: key.String(),
			Mode:     mode.String(),
			IDs:      ids,
		})
	}
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode remote tables: %w", err)
	}
	return nil
}

func WriteRemote(path string, keys []ident.Name, tables map[ident.Name]registry.Table, mode registry.Mode) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("write remote tables (%s): %w", path, err)
	}
	if err := EncodeRemote(f, keys, tables, mode); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadRemote reads a file of [[remote]] blocks. Registry membership is
// checked by the caller against its own declarations.
func LoadRemote(path string) ([]RemoteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load remote tables (%s): %w", path, err)
	}
	var in remoteFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("parse remote tables (%s): %w", path, err)
	}
	for i, remote := range in.Remote {
		if _, err := remote.Key(); err != nil {
			return nil, fmt.Errorf("%w: remote[%d]: %v", ErrInvalidConfig, i, err)
		}
		if _, err := remote.ParsedMode(); err != nil {
			return nil, fmt.Errorf("%w: remote[%d]: %v", ErrInvalidConfig, i, err)
		}
		if _, err := remote.Table(); err != nil {
			return nil, fmt.Errorf("%w: remote[%d]: %v", ErrInvalidConfig, i, err)
		}
	}
	return in.Remote, nil
}
