package codec

import (
	"github.com/wippyai/tickcodec/codec/internal/layout"
	"github.com/wippyai/tickcodec/codec/internal/wire"
	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

type fieldCodec struct {
	frag     Fragment
	field    *schema.Field
	constant any // folded value of a static field
	def      any // folded default
}

// recordCodec encodes the body of one class: its non-static fields in
// order, with no header.
type recordCodec struct {
	class  *schema.RecordClass
	fields []fieldCodec
	wire   []int // indices of non-static fields
	layout layout.Info
}

func (rc *recordCodec) encode(w *wire.Writer, rec *Record) error {
	if len(rec.Values) != len(rc.fields) {
		return errors.New(errors.PhaseEncode, errors.KindInvalidData).
			Path(rc.class.Name).
			Detail("record has %d values, class has %d fields", len(rec.Values), len(rc.fields)).
			Build()
	}
	for _, i := range rc.wire {
		if err := rc.fields[i].frag.Encode(w, rec.Values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (rc *recordCodec) decode(r *wire.Reader) (*Record, error) {
	rec := &Record{Class: rc.class, Values: make([]any, len(rc.fields))}
	for i := range rc.fields {
		f := &rc.fields[i]
		if f.field.Static {
			rec.Values[i] = f.constant
			continue
		}
		v, err := f.frag.Decode(r)
		if err != nil {
			return nil, err
		}
		rec.Values[i] = v
	}
	return rec, nil
}

// Codec is the compiled encoder and decoder of one concrete class. It is
// immutable and safe for concurrent use.
type Codec struct {
	rc *recordCodec
}

// Class returns the class the codec was compiled for.
func (c *Codec) Class() *schema.RecordClass {
	return c.rc.class
}

// Fingerprint returns the class layout fingerprint.
func (c *Codec) Fingerprint() uint64 {
	return c.rc.class.Fingerprint()
}

// NewRecord returns a record with folded defaults and static values set
// and every other field null.
func (c *Codec) NewRecord() *Record {
	rec := &Record{Class: c.rc.class, Values: make([]any, len(c.rc.fields))}
	for i := range c.rc.fields {
		f := &c.rc.fields[i]
		switch {
		case f.field.Static:
			rec.Values[i] = f.constant
		case f.field.Default != nil:
			rec.Values[i] = f.def
		}
	}
	return rec
}

func (c *Codec) checkClass(rec *Record) error {
	if rec == nil {
		return errors.New(errors.PhaseEncode, errors.KindNilPointer).
			DataType(c.rc.class.Name).
			Detail("record cannot be nil").
			Build()
	}
	if rec.Class != c.rc.class && (rec.Class == nil || rec.Class.GUID() != c.rc.class.GUID()) {
		name := "nil"
		if rec.Class != nil {
			name = rec.Class.Name
		}
		return errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
			GoType(name).
			DataType(c.rc.class.Name).
			Detail("record class does not match codec").
			Build()
	}
	return nil
}

// Encode returns the wire form of rec.
func (c *Codec) Encode(rec *Record) ([]byte, error) {
	if err := c.checkClass(rec); err != nil {
		return nil, err
	}
	w := getWriter()
	defer putWriter(w)
	if err := c.rc.encode(w, rec); err != nil {
		return nil, err
	}
	out := make([]byte, w.Len())
	copy(out, w.Bytes())
	return out, nil
}

// AppendEncode appends the wire form of rec to dst.
func (c *Codec) AppendEncode(dst []byte, rec *Record) ([]byte, error) {
	if err := c.checkClass(rec); err != nil {
		return dst, err
	}
	w := wire.NewWriter(dst)
	if err := c.rc.encode(w, rec); err != nil {
		return dst, err
	}
	return w.Bytes(), nil
}

// Decode reads one record. The input must hold exactly one record.
func (c *Codec) Decode(data []byte) (*Record, error) {
	r := wire.NewReader(data)
	rec, err := c.rc.decode(r)
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, []string{c.rc.class.Name},
			"trailing bytes after record")
	}
	return rec, nil
}

// decodeFrom reads one record from r, leaving r after it.
func (c *Codec) decodeFrom(r *wire.Reader) (*Record, error) {
	return c.rc.decode(r)
}

// FixedSize returns the record size when every wire field is fixed width.
func (c *Codec) FixedSize() (int, bool) {
	return c.rc.layout.Prefix, c.rc.layout.Fixed
}

// FieldLayout describes where a field sits on the wire.
type FieldLayout struct {
	Type *schema.DataType
	Name string
	// Offset is the static byte offset, or -1 when earlier variable-width
	// fields make it data dependent. Static fields have no offset.
	Offset int
	// Width is the fixed width, or 0 for variable-width fields.
	Width  int
	Static bool
}

// Layout returns the fields in class order with their wire placement.
func (c *Codec) Layout() []FieldLayout {
	out := make([]FieldLayout, len(c.rc.fields))
	w := 0
	for i := range c.rc.fields {
		f := c.rc.fields[i].field
		fl := FieldLayout{Name: f.Name, Type: f.Type, Offset: -1, Static: f.Static}
		if !f.Static {
			fl.Offset = c.rc.layout.Offsets[w]
			fl.Width, _ = f.Type.FixedSize()
			w++
		}
		out[i] = fl
	}
	return out
}

// ReadField decodes a single field. Fields at a static offset are read
// directly; later fields are reached by decoding the fields before them.
func (c *Codec) ReadField(data []byte, name string) (any, error) {
	i := c.rc.class.FieldIndex(name)
	if i < 0 {
		return nil, errors.FieldUnknown(errors.PhaseDecode, []string{c.rc.class.Name}, name)
	}
	f := &c.rc.fields[i]
	if f.field.Static {
		return f.constant, nil
	}

	r := wire.NewReader(data)
	for j, idx := range c.rc.wire {
		if idx != i {
			continue
		}
		if off := c.rc.layout.Offsets[j]; off >= 0 {
			if err := r.Seek(off); err != nil {
				return nil, decodeErr([]string{c.rc.class.Name, name}, err)
			}
			return f.frag.Decode(r)
		}
		for _, prev := range c.rc.wire[:j] {
			if _, err := c.rc.fields[prev].frag.Decode(r); err != nil {
				return nil, err
			}
		}
		return f.frag.Decode(r)
	}
	return nil, errors.FieldUnknown(errors.PhaseDecode, []string{c.rc.class.Name}, name)
}
