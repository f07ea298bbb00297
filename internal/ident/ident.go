// Package ident owns the namespace-qualified names used as stable registry keys.
//
// Ownership boundary:
// - name shape and validation
// - deterministic ordering
package ident

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultNamespace is applied when a parsed name carries no namespace.
const DefaultNamespace = "core"

const separator = ':'

var ErrInvalidName = errors.New("ident: invalid name")

// Name is a namespace-qualified identifier.
type Name struct {
	Namespace string
	Path      string
}

// New validates and returns a name.
func New(namespace, path string) (Name, error) {
	n := Name{Namespace: namespace, Path: path}
	if err := n.Validate(); err != nil {
		return Name{}, err
	}
	return n, nil
}

// Parse reads "namespace:path" or a bare "path".
func Parse(raw string) (Name, error) {
	raw = strings.TrimSpace(raw)
	ns, path, ok := strings.Cut(raw, string(separator))
	if !ok {
		return New(DefaultNamespace, raw)
	}
	return New(ns, path)
}

// MustParse is Parse for literals; it panics on invalid input.
func MustParse(raw string) Name {
	n, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return n
}

func (n Name) String() string {
	return n.Namespace + string(separator) + n.Path
}

func (n Name) IsZero() bool {
	return n.Namespace == "" && n.Path == ""
}

// Validate checks namespace and path charsets.
func (n Name) Validate() error {
	if !validSegment(n.Namespace, false) {
		return fmt.Errorf("%w: namespace %q", ErrInvalidName, n.Namespace)
	}
	if !validSegment(n.Path, true) {
		return fmt.Errorf("%w: path %q", ErrInvalidName, n.Path)
	}
	return nil
}

// MarshalText renders the name for JSON map keys and TOML values.
func (n Name) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n *Name) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// Compare orders by namespace, then path.
func Compare(a, b Name) int {
	if c := strings.Compare(a.Namespace, b.Namespace); c != 0 {
		return c
	}
	return strings.Compare(a.Path, b.Path)
}

// Sort orders names in place.
func Sort(names []Name) {
	sort.Slice(names, func(i, j int) bool {
		return Compare(names[i], names[j]) < 0
	})
}

func validSegment(s string, allowSlash bool) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		isSep := c == '.' || c == '-' || c == '_'
		if isLower || isDigit || isSep {
			continue
		}
		if allowSlash && c == '/' {
			continue
		}
		return false
	}
	return true
}
