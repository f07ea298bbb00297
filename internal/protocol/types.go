package protocol

const (
	Magic      uint32 = 0x52534E43 // "RSNC"
	Version    uint16 = 1
	HeaderSize uint16 = 32
)

// MessageType identifies a message payload shape.
type MessageType uint32

const (
	MessageHello   MessageType = 1
	MessageContent MessageType = 2
	MessageIDTable MessageType = 3
)

// FieldType is the wire type tag of a field.
type FieldType uint8

const (
	FieldUint8  FieldType = 1
	FieldUint16 FieldType = 2
	FieldUint32 FieldType = 3
	FieldUint64 FieldType = 4
	FieldBool   FieldType = 5
	FieldString FieldType = 6
	FieldBytes  FieldType = 7
)

// Header is the fixed frame header.
type Header struct {
	Magic       uint32
	Version     uint16
	HeaderLen   uint16
	MessageID   uint64
	MessageType MessageType
	Flags       uint32
	PayloadLen  uint64
}

// Field is one TLV field.
//
// Extension and Fallback are encode-time only: a field owned by an extension
// the peer does not support is replaced by Fallback.
type Field struct {
	ID        uint16
	Type      FieldType
	Value     []byte
	Extension string
	Fallback  *Field
}

// Message is one decoded or to-be-encoded frame.
type Message struct {
	Header Header
	Fields []Field
}

// Get returns the first field with id.
func (m *Message) Get(id uint16) (Field, bool) {
	for _, f := range m.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}
