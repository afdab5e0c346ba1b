package codec

import (
	"github.com/golang/snappy"

	"github.com/wippyai/tickcodec/codec/internal/wire"
	"github.com/wippyai/tickcodec/errors"
)

// EncodeBatch packs records of c's class into one snappy block. The block
// starts with the class fingerprint so it cannot be read back through a
// codec with a different layout.
func EncodeBatch(c *Codec, records []*Record) ([]byte, error) {
	w := getWriter()
	defer putWriter(w)

	if len(records) > MaxArrayLength {
		return nil, errors.OutOfRange(errors.PhaseEncode, errors.Span{}, len(records), "batch")
	}
	w.U64(c.Fingerprint())
	w.Uvarint(uint64(len(records)))
	for _, rec := range records {
		if err := c.checkClass(rec); err != nil {
			return nil, err
		}
		if err := c.rc.encode(w, rec); err != nil {
			return nil, err
		}
	}
	return snappy.Encode(nil, w.Bytes()), nil
}

// DecodeBatch unpacks a block written by EncodeBatch. A batch holds at
// most MaxArrayLength records.
func DecodeBatch(c *Codec, data []byte) ([]*Record, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "corrupt batch block")
	}
	r := wire.NewReader(raw)
	fp, err := r.U64()
	if err != nil {
		return nil, decodeErr(nil, err)
	}
	if fp != c.Fingerprint() {
		return nil, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
			DataType(c.Class().Name).
			Detail("batch layout fingerprint %016x does not match %016x", fp, c.Fingerprint()).
			Build()
	}
	n, err := r.Uvarint()
	if err != nil {
		return nil, decodeErr(nil, err)
	}
	if n > MaxArrayLength || len(c.rc.wire) > 0 && n > uint64(r.Remaining()) {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "batch count exceeds input")
	}
	out := make([]*Record, 0, n)
	for i := uint64(0); i < n; i++ {
		rec, err := c.decodeFrom(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if r.Remaining() != 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "trailing bytes after batch")
	}
	return out, nil
}
