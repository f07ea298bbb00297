package protocol

import (
	"encoding/binary"
	"errors"
)

func NewFieldUint8(id uint16, v uint8) Field {
	return Field{ID: id, Type: FieldUint8, Value: []byte{v}}
}

func NewFieldUint16(id uint16, v uint16) Field {
	return Field{ID: id, Type: FieldUint16, Value: binary.BigEndian.AppendUint16(nil, v)}
}

func NewFieldUint32(id uint16, v uint32) Field {
	return Field{ID: id, Type: FieldUint32, Value: binary.BigEndian.AppendUint32(nil, v)}
}

func NewFieldUint64(id uint16, v uint64) Field {
	return Field{ID: id, Type: FieldUint64, Value: binary.BigEndian.AppendUint64(nil, v)}
}

func NewFieldBool(id uint16, v bool) Field {
	b := byte(0)
	if v {
		b = 1
	}
	return Field{ID: id, Type: FieldBool, Value: []byte{b}}
}

func NewFieldString(id uint16, v string) Field {
	return Field{ID: id, Type: FieldString, Value: []byte(v)}
}

// NewFieldBytes copies v.
func NewFieldBytes(id uint16, v []byte) Field {
	return Field{ID: id, Type: FieldBytes, Value: append([]byte(nil), v...)}
}

// WithExtension marks f as owned by ext. When the peer lacks ext the encoder
// writes fallback instead; a nil fallback makes the message unencodable.
func (f Field) WithExtension(ext string, fallback *Field) Field {
	f.Extension = ext
	f.Fallback = fallback
	return f
}

// fixed checks type and width of a fixed-size value.
func (f Field) fixed(t FieldType, width int) ([]byte, error) {
	if f.Type != t {
		return nil, ErrFieldTypeMismatch
	}
	if len(f.Value) != width {
		return nil, ErrInvalidLength
	}
	return f.Value, nil
}

func (f Field) Uint8() (uint8, error) {
	b, err := f.fixed(FieldUint8, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (f Field) Uint16() (uint16, error) {
	b, err := f.fixed(FieldUint16, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (f Field) Uint32() (uint32, error) {
	b, err := f.fixed(FieldUint32, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (f Field) Uint64() (uint64, error) {
	b, err := f.fixed(FieldUint64, 8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (f Field) Bool() (bool, error) {
	b, err := f.fixed(FieldBool, 1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errors.New("protocol: invalid bool value")
	}
}

func (f Field) Text() (string, error) {
	if f.Type != FieldString {
		return "", ErrFieldTypeMismatch
	}
	return string(f.Value), nil
}

// Bytes returns a copy of the value.
func (f Field) Bytes() ([]byte, error) {
	if f.Type != FieldBytes {
		return nil, ErrFieldTypeMismatch
	}
	return append([]byte(nil), f.Value...), nil
}
