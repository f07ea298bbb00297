package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

const fieldHeaderSize = 2 + 1 + 4

// Encode writes msg for a peer with no optional extensions.
func Encode(w io.Writer, msg *Message) error {
	if msg == nil {
		return ErrInvalidLength
	}
	return encode(w, msg, Scope{MessageID: msg.Header.MessageID})
}

func encode(w io.Writer, msg *Message, scope Scope) error {
	fields, err := resolveFields(msg.Fields, scope)
	if err != nil {
		return err
	}
	payloadLen, err := payloadLength(fields)
	if err != nil {
		return err
	}

	head := msg.Header
	head.Magic = Magic
	head.Version = Version
	head.HeaderLen = HeaderSize
	head.PayloadLen = payloadLen

	if _, err := w.Write(encodeHeader(head)); err != nil {
		return err
	}
	for _, field := range fields {
		if err := writeField(w, field); err != nil {
			return err
		}
	}
	return nil
}

// resolveFields swaps extension fields the peer lacks for their fallbacks.
func resolveFields(in []Field, scope Scope) ([]Field, error) {
	out := make([]Field, 0, len(in))
	for _, field := range in {
		f := field
		for f.Extension != "" && !scope.Supported.Has(f.Extension) {
			if f.Fallback == nil {
				return nil, fmt.Errorf("%w: field %d needs %q", ErrUnsupportedExtension, field.ID, f.Extension)
			}
			f = *f.Fallback
		}
		out = append(out, f)
	}
	return out, nil
}

func payloadLength(fields []Field) (uint64, error) {
	var total uint64
	for _, field := range fields {
		if len(field.Value) > int(^uint32(0)) {
			return 0, ErrInvalidLength
		}
		total += uint64(fieldHeaderSize + len(field.Value))
	}
	return total, nil
}

func encodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	binary.BigEndian.PutUint16(buf[6:8], h.HeaderLen)
	binary.BigEndian.PutUint64(buf[8:16], h.MessageID)
	binary.BigEndian.PutUint32(buf[16:20], uint32(h.MessageType))
	binary.BigEndian.PutUint32(buf[20:24], h.Flags)
	binary.BigEndian.PutUint64(buf[24:32], h.PayloadLen)
	return buf
}

func writeField(w io.Writer, field Field) error {
	buf := make([]byte, fieldHeaderSize, fieldHeaderSize+len(field.Value))
	binary.BigEndian.PutUint16(buf[0:2], field.ID)
	buf[2] = byte(field.Type)
	binary.BigEndian.PutUint32(buf[3:7], uint32(len(field.Value)))
	buf = append(buf, field.Value...)
	_, err := w.Write(buf)
	return err
}
