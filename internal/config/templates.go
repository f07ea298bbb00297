package config

import (
	"fmt"
	"os"
	"strings"
)

// Template returns a starter session file. "host" replays a saved table
// authoritatively; "client" applies a table received from a host.
func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "host":
		return hostTemplate, nil
	case "client":
		return clientTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const hostTemplate = `vanilla_namespaces = ["core"]

[log]
level = "info"

[admin]
addr = "127.0.0.1:7400"

[[registries]]
name = "core:items"
entries = ["core:stone", "core:dirt", "core:apple", "extra:ruby"]

[registries.aliases]
"core:rock" = "core:stone"

[[remote]]
registry = "core:items"
mode = "authoritative"

[remote.ids]
"core:stone" = 1
"core:dirt" = 2
"core:apple" = 5
`

const clientTemplate = `vanilla_namespaces = ["core"]

[log]
level = "info"

[[registries]]
name = "core:items"
entries = ["core:stone", "core:dirt", "core:apple"]

[[remote]]
registry = "core:items"
mode = "remote"

[remote.ids]
"core:stone" = 0
"core:dirt" = 1
"core:apple" = 6
`
