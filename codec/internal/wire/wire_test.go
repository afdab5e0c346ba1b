package wire_test

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/wippyai/tickcodec/codec/internal/wire"
)

func TestUvarint(t *testing.T) {
	tests := []struct {
		encoded []byte
		value   uint64
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, math.MaxUint32},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}, math.MaxUint64},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			w := wire.NewWriter(nil)
			w.Uvarint(tt.value)
			if !bytes.Equal(w.Bytes(), tt.encoded) {
				t.Errorf("encode %d: got %x, want %x", tt.value, w.Bytes(), tt.encoded)
			}

			r := wire.NewReader(tt.encoded)
			got, err := r.Uvarint()
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tt.value {
				t.Errorf("decode: got %d, want %d", got, tt.value)
			}
			if r.Remaining() != 0 {
				t.Errorf("left %d bytes", r.Remaining())
			}
		})
	}
}

func TestUvarintOverflow(t *testing.T) {
	r := wire.NewReader(bytes.Repeat([]byte{0x80}, 11))
	_, err := r.Uvarint()
	if !errors.Is(err, wire.ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestFixedWidthBigEndian(t *testing.T) {
	w := wire.NewWriter(nil)
	w.Byte(0xAB)
	w.U16(0x0102)
	w.U32(0x03040506)
	w.U64(0x0708090A0B0C0D0E)
	want := []byte{0xAB, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("got %x, want %x", w.Bytes(), want)
	}

	r := wire.NewReader(w.Bytes())
	b, _ := r.ReadByte()
	u16, _ := r.U16()
	u32, _ := r.U32()
	u64, err := r.U64()
	if err != nil {
		t.Fatal(err)
	}
	if b != 0xAB || u16 != 0x0102 || u32 != 0x03040506 || u64 != 0x0708090A0B0C0D0E {
		t.Errorf("read back %x %x %x %x", b, u16, u32, u64)
	}
	if r.Position() != len(want) {
		t.Errorf("position %d, want %d", r.Position(), len(want))
	}
}

func TestLengthCodes(t *testing.T) {
	w := wire.NewWriter(nil)
	w.Null()
	w.Length(0)
	w.Length(3)
	w.WriteString("abc")
	if !bytes.Equal(w.Bytes(), []byte{0, 1, 4, 'a', 'b', 'c'}) {
		t.Fatalf("got %x", w.Bytes())
	}

	r := wire.NewReader(w.Bytes())
	if _, ok, err := r.Length(); err != nil || ok {
		t.Errorf("null: ok=%v err=%v", ok, err)
	}
	if n, ok, err := r.Length(); err != nil || !ok || n != 0 {
		t.Errorf("empty: n=%d ok=%v err=%v", n, ok, err)
	}
	n, ok, err := r.Length()
	if err != nil || !ok || n != 3 {
		t.Fatalf("abc: n=%d ok=%v err=%v", n, ok, err)
	}
	data, err := r.ReadBytes(n)
	if err != nil || string(data) != "abc" {
		t.Errorf("ReadBytes = %q, %v", data, err)
	}
}

func TestLengthExceedsInput(t *testing.T) {
	r := wire.NewReader([]byte{10, 'x'})
	if _, _, err := r.Length(); err == nil {
		t.Error("expected error for a length past the end")
	}
}

func TestShortInput(t *testing.T) {
	tests := []struct {
		read func(r *wire.Reader) error
		name string
	}{
		{func(r *wire.Reader) error { _, err := r.ReadByte(); return err }, "byte"},
		{func(r *wire.Reader) error { _, err := r.U16(); return err }, "u16"},
		{func(r *wire.Reader) error { _, err := r.U32(); return err }, "u32"},
		{func(r *wire.Reader) error { _, err := r.U64(); return err }, "u64"},
		{func(r *wire.Reader) error { _, err := r.ReadBytes(2); return err }, "bytes"},
		{func(r *wire.Reader) error { return r.Seek(5) }, "seek"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := wire.NewReader([]byte{})
			if err := tt.read(r); !errors.Is(err, io.ErrUnexpectedEOF) {
				t.Errorf("expected io.ErrUnexpectedEOF, got %v", err)
			}
		})
	}
}

func TestWriterReset(t *testing.T) {
	w := wire.NewWriter([]byte{1, 2})
	w.Byte(3)
	if w.Len() != 3 {
		t.Fatalf("Len = %d", w.Len())
	}
	w.Reset(nil)
	if w.Len() != 0 {
		t.Errorf("Len after Reset = %d", w.Len())
	}
	w.WriteBytes([]byte{9})
	if !bytes.Equal(w.Bytes(), []byte{9}) {
		t.Errorf("got %x", w.Bytes())
	}
}
