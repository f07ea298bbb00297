package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/danmuck/regsync/internal/testutil/testlog"
)

func TestRoundTripEncodeDecode(t *testing.T) {
	testlog.Start(t)
	msg := &Message{
		Header: Header{MessageID: 42, MessageType: MessageContent},
		Fields: []Field{
			NewFieldUint16(1, 99),
			NewFieldString(2, "hello"),
			NewFieldBytes(99, []byte{0x01, 0x02}),
			NewFieldBool(3, true),
			NewFieldUint64(4, 1<<40),
		},
	}

	var buf bytes.Buffer
	if err := Encode(&buf, msg); err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var buf2 bytes.Buffer
	if err := Encode(&buf2, decoded); err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), buf2.Bytes()) {
		t.Fatalf("round-trip mismatch")
	}

	f, ok := decoded.Get(4)
	if !ok {
		t.Fatalf("missing field 4")
	}
	if v, err := f.Uint64(); err != nil || v != 1<<40 {
		t.Fatalf("uint64 field: v=%d err=%v", v, err)
	}
	if _, err := f.Uint32(); !errors.Is(err, ErrFieldTypeMismatch) {
		t.Fatalf("expected ErrFieldTypeMismatch, got %v", err)
	}
}

func TestDecodeInvalidMagic(t *testing.T) {
	testlog.Start(t)
	head := headerBytes(0)
	binary.BigEndian.PutUint32(head[0:4], 0)
	if _, err := Decode(bytes.NewReader(head)); !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestDecodeTruncatedPayload(t *testing.T) {
	testlog.Start(t)
	msg := &Message{
		Header: Header{MessageID: 1, MessageType: MessageContent},
		Fields: []Field{NewFieldString(1, "abc")},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, msg); err != nil {
		t.Fatalf("encode: %v", err)
	}
	b := buf.Bytes()
	if _, err := Decode(bytes.NewReader(b[:len(b)-2])); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestDecodeInvalidFieldLength(t *testing.T) {
	testlog.Start(t)
	payload := make([]byte, fieldHeaderSize+1)
	binary.BigEndian.PutUint16(payload[0:2], 1)
	payload[2] = byte(FieldBytes)
	binary.BigEndian.PutUint32(payload[3:7], 5)
	payload[7] = 0xff

	buf := append(headerBytes(uint64(len(payload))), payload...)
	if _, err := Decode(bytes.NewReader(buf)); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
}

func TestDecodeRejectsOversizedPayload(t *testing.T) {
	testlog.Start(t)
	if _, err := Decode(bytes.NewReader(headerBytes(MaxPayload + 1))); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestHelloRoundTrip(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	if err := Encode(&buf, NewHello(7, NewExtensionSet("tags", "custom_ingredients", " "))); err != nil {
		t.Fatalf("encode hello: %v", err)
	}
	msg, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode hello: %v", err)
	}
	got, err := ParseHello(msg)
	if err != nil {
		t.Fatalf("parse hello: %v", err)
	}
	names := got.Names()
	if len(names) != 2 || names[0] != "custom_ingredients" || names[1] != "tags" {
		t.Fatalf("unexpected extensions: %v", names)
	}

	if _, err := ParseHello(&Message{Header: Header{MessageType: MessageContent}}); !errors.Is(err, ErrMessageTypeMismatch) {
		t.Fatalf("expected ErrMessageTypeMismatch, got %v", err)
	}
}

func headerBytes(payloadLen uint64) []byte {
	return encodeHeader(Header{
		Magic:       Magic,
		Version:     Version,
		HeaderLen:   HeaderSize,
		MessageID:   1,
		MessageType: MessageContent,
		PayloadLen:  payloadLen,
	})
}
