package registry

import (
	"fmt"
	"strings"
)

// Mode selects how names known to only one peer are reconciled.
type Mode uint8

const (
	// ModeAuthoritative keeps every local name; local-only names are appended.
	ModeAuthoritative Mode = iota
	// ModeRemote requires every remote name to be known locally; local-only
	// names receive trailing IDs after the remote maximum.
	ModeRemote
)

func (m Mode) String() string {
	switch m {
	case ModeAuthoritative:
		return "authoritative"
	case ModeRemote:
		return "remote"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "authoritative", "auth", "server":
		return ModeAuthoritative, nil
	case "remote", "client":
		return ModeRemote, nil
	default:
		return 0, fmt.Errorf("registry: unknown remap mode %q", raw)
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
