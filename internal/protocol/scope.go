package protocol

import (
	"io"
	"slices"
	"strings"
	"sync/atomic"
)

// ExtensionSet is the set of optional extensions a peer can decode.
type ExtensionSet map[string]struct{}

func NewExtensionSet(names ...string) ExtensionSet {
	s := make(ExtensionSet, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" {
			s[name] = struct{}{}
		}
	}
	return s
}

func (s ExtensionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the extensions, sorted.
func (s ExtensionSet) Names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Scope is the context of one outbound message.
type Scope struct {
	MessageID uint64
	Supported ExtensionSet
}

// Encoder writes messages for one connection whose peer supports a fixed
// extension set. The scope exists only while a message is being written.
// Encodes on one Encoder must be sequential.
type Encoder struct {
	supported ExtensionSet
	current   atomic.Pointer[Scope]
}

func NewEncoder(supported ExtensionSet) *Encoder {
	if supported == nil {
		supported = ExtensionSet{}
	}
	return &Encoder{supported: supported}
}

// Current returns the scope of the message being encoded, if any.
func (e *Encoder) Current() (Scope, bool) {
	s := e.current.Load()
	if s == nil {
		return Scope{}, false
	}
	return *s, true
}

// Encode writes msg under a fresh scope and clears it on every exit path.
func (e *Encoder) Encode(w io.Writer, msg *Message) error {
	if msg == nil {
		return ErrInvalidLength
	}
	scope := &Scope{MessageID: msg.Header.MessageID, Supported: e.supported}
	e.current.Store(scope)
	defer e.current.Store(nil)
	return encode(w, msg, *scope)
}
