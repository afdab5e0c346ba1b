package wire

import "encoding/binary"

// Writer appends encoded values to a byte slice.
type Writer struct {
	buf []byte
}

// NewWriter creates a Writer that appends to dst.
func NewWriter(dst []byte) *Writer {
	return &Writer{buf: dst}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Reset truncates the buffer, keeping its capacity.
func (w *Writer) Reset(dst []byte) {
	w.buf = dst[:0]
}

// Byte writes a single byte.
func (w *Writer) Byte(b byte) {
	w.buf = append(w.buf, b)
}

// WriteBytes writes a byte slice.
func (w *Writer) WriteBytes(data []byte) {
	w.buf = append(w.buf, data...)
}

// WriteString writes the bytes of s.
func (w *Writer) WriteString(s string) {
	w.buf = append(w.buf, s...)
}

// U16 writes a big-endian uint16.
func (w *Writer) U16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// U32 writes a big-endian uint32.
func (w *Writer) U32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// U64 writes a big-endian uint64.
func (w *Writer) U64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

// Uvarint writes an unsigned LEB128 encoded uint64.
func (w *Writer) Uvarint(v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf = append(w.buf, b)
		if v == 0 {
			break
		}
	}
}

// Null writes the length code of an absent variable-width value.
func (w *Writer) Null() {
	w.buf = append(w.buf, 0)
}

// Length writes the length code of a present value of n bytes or items.
func (w *Writer) Length(n int) {
	w.Uvarint(uint64(n) + 1)
}
