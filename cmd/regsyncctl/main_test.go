package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/regsync/internal/config"
	"github.com/danmuck/regsync/internal/ident"
	"github.com/danmuck/regsync/internal/protocol"
	"github.com/danmuck/regsync/internal/testutil/testlog"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func hostConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "host.toml")
	if code, _, stderr := runCLI(t, "--init", "host", "--config", path); code != 0 {
		t.Fatalf("init host template: code=%d stderr=%s", code, stderr)
	}
	return path
}

func TestRunAppliesAuthoritativeTable(t *testing.T) {
	testlog.Start(t)
	code, stdout, stderr := runCLI(t, "--config", hostConfig(t))
	if code != 0 {
		t.Fatalf("unexpected exit code %d: %s", code, stderr)
	}
	for _, want := range []string{
		"core:items (authoritative)",
		"core:stone",
		"0 -> 1",
		"2 -> 5",
		"3 -> 6",
	} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in output:\n%s", want, stdout)
		}
	}
}

func TestRunUnmapRestoresBootstrapIDs(t *testing.T) {
	testlog.Start(t)
	code, stdout, stderr := runCLI(t, "--config", hostConfig(t), "--unmap")
	if code != 0 {
		t.Fatalf("unexpected exit code %d: %s", code, stderr)
	}
	_, restored, ok := strings.Cut(stdout, "core:items\n")
	if !ok {
		t.Fatalf("missing restored table:\n%s", stdout)
	}
	for _, want := range []string{"0 core:stone", "1 core:dirt", "2 core:apple", "3 extra:ruby"} {
		if !strings.Contains(restored, want) {
			t.Fatalf("expected %q after unmap:\n%s", want, restored)
		}
	}
}

func TestRunSaveWritesReplayableTables(t *testing.T) {
	testlog.Start(t)
	save := filepath.Join(t.TempDir(), "saved.toml")
	code, _, stderr := runCLI(t, "--config", hostConfig(t), "--save", save)
	if code != 0 {
		t.Fatalf("unexpected exit code %d: %s", code, stderr)
	}
	remotes, err := config.LoadRemote(save)
	if err != nil {
		t.Fatalf("load saved tables: %v", err)
	}
	if len(remotes) != 1 {
		t.Fatalf("expected one saved table, got %d", len(remotes))
	}
	table, err := remotes[0].Table()
	if err != nil {
		t.Fatalf("saved table: %v", err)
	}
	if table[ident.MustParse("extra:ruby")] != 6 || table[ident.MustParse("core:stone")] != 1 {
		t.Fatalf("unexpected saved table: %v", table)
	}

	// Replaying the saved table on a fresh session is a no-op translation.
	code, stdout, stderr := runCLI(t, "--config", hostConfig(t), "--remote", save, "--dump")
	if code != 0 {
		t.Fatalf("replay exit code %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "6 -> 6") {
		t.Fatalf("expected replayed ids to be stable:\n%s", stdout)
	}
}

func TestRunReportsUnknownRemoteNames(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "client.toml")
	content := `
[[registries]]
name = "core:items"
entries = ["stone", "dirt"]

[[remote]]
registry = "core:items"
mode = "remote"

[remote.ids]
"core:stone" = 0
"core:grape" = 1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	code, stdout, stderr := runCLI(t, "--config", path)
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr, "core:grape") {
		t.Fatalf("expected unknown name in error output:\n%s", stderr)
	}
	if strings.Contains(stdout, "core:items (remote)") {
		t.Fatalf("failed table must not print a translation:\n%s", stdout)
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	testlog.Start(t)
	if code, _, _ := runCLI(t, "--bogus"); code != 2 {
		t.Fatalf("expected exit code 2 for unknown flag, got %d", code)
	}
	if code, _, _ := runCLI(t, "--config", hostConfig(t), "--mode", "sideways"); code != 1 {
		t.Fatalf("expected exit code 1 for bad mode, got %d", code)
	}
	if code, _, _ := runCLI(t, "--help"); code != 0 {
		t.Fatalf("expected help to exit 0, got %d", code)
	}
}

func TestRunWritesIDTableFrames(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	cases := map[string][]string{
		"with-aliases.bin": {"--peer-ext", protocol.ExtensionAliases},
		"bare.bin":         nil,
	}
	for file, extra := range cases {
		path := filepath.Join(dir, file)
		args := append([]string{"--config", hostConfig(t), "--wire", path}, extra...)
		code, _, stderr := runCLI(t, args...)
		if code != 0 {
			t.Fatalf("%s: unexpected exit code %d: %s", file, code, stderr)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("%s: read frames: %v", file, err)
		}
		r := bytes.NewReader(data)
		hello, err := protocol.Decode(r)
		if err != nil {
			t.Fatalf("%s: decode hello: %v", file, err)
		}
		if exts, err := protocol.ParseHello(hello); err != nil || !exts.Has(protocol.ExtensionAliases) {
			t.Fatalf("%s: unexpected hello: %v %v", file, exts, err)
		}
		msg, err := protocol.Decode(r)
		if err != nil {
			t.Fatalf("%s: decode table: %v", file, err)
		}
		got, err := protocol.ParseIDTable(msg)
		if err != nil {
			t.Fatalf("%s: parse table: %v", file, err)
		}
		if got.Registry != "core:items" || got.IDs["extra:ruby"] != 6 || got.AliasCount != 1 {
			t.Fatalf("%s: unexpected table: %+v", file, got)
		}
		if (extra != nil) != (got.Aliases["core:rock"] == "core:stone") {
			t.Fatalf("%s: alias extension mismatch: %+v", file, got.Aliases)
		}
		if r.Len() != 0 {
			t.Fatalf("%s: trailing bytes after last frame", file)
		}
	}
}
