package protocol

import "fmt"

const helloExtensionField uint16 = 1

// NewHello announces the extensions this side can decode.
func NewHello(id uint64, supported ExtensionSet) *Message {
	msg := &Message{Header: Header{MessageID: id, MessageType: MessageHello}}
	for _, name := range supported.Names() {
		msg.Fields = append(msg.Fields, NewFieldString(helloExtensionField, name))
	}
	return msg
}

// ParseHello returns the extension set a peer announced.
func ParseHello(msg *Message) (ExtensionSet, error) {
	if msg == nil {
		return nil, ErrInvalidLength
	}
	if msg.Header.MessageType != MessageHello {
		return nil, ErrMessageTypeMismatch
	}
	out := ExtensionSet{}
	for _, f := range msg.Fields {
		if f.ID != helloExtensionField {
			continue
		}
		name, err := f.Text()
		if err != nil {
			return nil, fmt.Errorf("hello field %d: %w", f.ID, err)
		}
		out[name] = struct{}{}
	}
	return out, nil
}
