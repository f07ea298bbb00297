package registry

import (
	"bytes"
	"testing"

	"github.com/danmuck/regsync/internal/ident"
	"github.com/danmuck/regsync/internal/testutil/testlog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testKey = ident.MustParse("core:items")

func n(raw string) ident.Name {
	return ident.MustParse(raw)
}

// newTestRegistry registers names in order; each entry is its own name string.
func newTestRegistry(t *testing.T, names ...string) (*Registry[string], *bytes.Buffer) {
	t.Helper()
	testlog.Start(t)
	var buf bytes.Buffer
	r := New(testKey, NewLifecycle("core"), WithLogger[string](zerolog.New(&buf)))
	for _, raw := range names {
		_, err := r.Register(n(raw), raw)
		require.NoError(t, err)
	}
	return r, &buf
}

func table(pairs ...any) Table {
	out := make(Table, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out[n(pairs[i].(string))] = pairs[i+1].(int)
	}
	return out
}
