package protocol

import (
	"fmt"
	"slices"
	"strings"
)

// ExtensionAliases lets a peer receive the alias table alongside the IDs.
// Peers without it get only the alias count.
const ExtensionAliases = "aliases"

const (
	idTableRegistryField   uint16 = 1
	idTableNameField       uint16 = 2
	idTableRawIDField      uint16 = 3
	idTableAliasesField    uint16 = 4
	idTableAliasCountField uint16 = 5
)

// IDTable is one registry's name -> raw ID assignment as sent to a peer.
// Names and aliases are rendered "namespace:path".
type IDTable struct {
	Registry   string
	IDs        map[string]uint32
	Aliases    map[string]string
	AliasCount uint32
}

// NewIDTableMessage lays names out in raw ID order, each name field followed
// by its ID field.
func NewIDTableMessage(id uint64, t IDTable) *Message {
	msg := &Message{Header: Header{MessageID: id, MessageType: MessageIDTable}}
	msg.Fields = append(msg.Fields, NewFieldString(idTableRegistryField, t.Registry))

	names := make([]string, 0, len(t.IDs))
	for name := range t.IDs {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if t.IDs[a] != t.IDs[b] {
			if t.IDs[a] < t.IDs[b] {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	})
	for _, name := range names {
		msg.Fields = append(msg.Fields,
			NewFieldString(idTableNameField, name),
			NewFieldUint32(idTableRawIDField, t.IDs[name]),
		)
	}

	if len(t.Aliases) > 0 {
		olds := make([]string, 0, len(t.Aliases))
		for old := range t.Aliases {
			olds = append(olds, old)
		}
		slices.Sort(olds)
		pairs := make([]string, 0, len(olds))
		for _, old := range olds {
			pairs = append(pairs, old+"="+t.Aliases[old])
		}
		count := NewFieldUint32(idTableAliasCountField, uint32(len(olds)))
		msg.Fields = append(msg.Fields,
			NewFieldString(idTableAliasesField, strings.Join(pairs, "\n")).WithExtension(ExtensionAliases, &count),
		)
	}
	return msg
}

func ParseIDTable(msg *Message) (IDTable, error) {
	if msg == nil {
		return IDTable{}, ErrInvalidLength
	}
	if msg.Header.MessageType != MessageIDTable {
		return IDTable{}, ErrMessageTypeMismatch
	}
	out := IDTable{IDs: make(map[string]uint32)}
	pending := ""
	for _, f := range msg.Fields {
		switch f.ID {
		case idTableRegistryField:
			v, err := f.Text()
			if err != nil {
				return IDTable{}, fmt.Errorf("id table registry: %w", err)
			}
			out.Registry = v
		case idTableNameField:
			if pending != "" {
				return IDTable{}, fmt.Errorf("%w: name %q has no raw id", ErrInvalidLength, pending)
			}
			v, err := f.Text()
			if err != nil {
				return IDTable{}, fmt.Errorf("id table name: %w", err)
			}
			pending = v
		case idTableRawIDField:
			if pending == "" {
				return IDTable{}, fmt.Errorf("%w: raw id without a name", ErrInvalidLength)
			}
			v, err := f.Uint32()
			if err != nil {
				return IDTable{}, fmt.Errorf("id table raw id for %q: %w", pending, err)
			}
			out.IDs[pending] = v
			pending = ""
		case idTableAliasesField:
			v, err := f.Text()
			if err != nil {
				return IDTable{}, fmt.Errorf("id table aliases: %w", err)
			}
			out.Aliases = make(map[string]string)
			for _, line := range strings.Split(v, "\n") {
				old, canonical, ok := strings.Cut(line, "=")
				if !ok {
					return IDTable{}, fmt.Errorf("%w: alias pair %q", ErrInvalidLength, line)
				}
				out.Aliases[old] = canonical
			}
			out.AliasCount = uint32(len(out.Aliases))
		case idTableAliasCountField:
			v, err := f.Uint32()
			if err != nil {
				return IDTable{}, fmt.Errorf("id table alias count: %w", err)
			}
			out.AliasCount = v
		}
	}
	if pending != "" {
		return IDTable{}, fmt.Errorf("%w: name %q has no raw id", ErrInvalidLength, pending)
	}
	return out, nil
}
