package codec

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/tickcodec/codec/internal/wire"
	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

// objectHandler encodes nested records. Embedded objects write a presence
// byte and the body of their one class. Polymorphic objects write the
// class GUID as a length-prefixed string, then the body; length code 0
// is null.
type objectHandler struct{}

func (objectHandler) Kind() schema.Kind       { return schema.KindObject }
func (objectHandler) FixedWidth() (int, bool) { return 0, false }
func (objectHandler) NullValue() any          { return nil }

func (objectHandler) Fold(dt *schema.DataType, lit schema.Literal) (any, error) {
	return nil, errors.New(errors.PhaseFold, errors.KindUnsupported).
		DataType(dt.String()).
		Span(lit.Span).
		Detail("object literals other than null are not supported").
		Build()
}

// Coerce accepts a *Record whose class is, or extends, one of dt's
// classes. For embedded objects a map of field values is also accepted.
func (objectHandler) Coerce(dt *schema.DataType, v any) (any, error) {
	switch x := v.(type) {
	case *Record:
		if x == nil {
			return nil, nil
		}
		for _, c := range dt.Classes {
			if x.Class.IsA(c) {
				return x, nil
			}
		}
		return nil, errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
			GoType(x.Class.Name).
			DataType(dt.String()).
			Build()
	case map[string]any:
		if dt.Polymorphic || len(dt.Classes) != 1 {
			return nil, mismatch(errors.PhaseEncode, dt, v)
		}
		return RecordFromMap(dt.Classes[0], x)
	}
	return nil, mismatch(errors.PhaseEncode, dt, v)
}

// RecordFromMap builds a record of class from field values keyed by
// name, coercing each one. Missing fields are null; unknown keys fail.
func RecordFromMap(class *schema.RecordClass, m map[string]any) (*Record, error) {
	rec := NewRecord(class)
	for name, v := range m {
		i := class.FieldIndex(name)
		if i < 0 {
			return nil, errors.FieldUnknown(errors.PhaseEncode, []string{class.Name}, name)
		}
		f := class.AllFields()[i]
		nv, err := Coerce(f.Type, v)
		if err != nil {
			return nil, withPath(err, []string{class.Name, name})
		}
		rec.Values[i] = nv
	}
	return rec, nil
}

func (h objectHandler) Fragment(dt *schema.DataType, env *Env) (Fragment, error) {
	if len(dt.Classes) == 0 {
		return Fragment{}, errors.UnknownType(errors.PhaseCompile, env.Span, dt.String())
	}
	if dt.Polymorphic {
		return h.polymorphic(dt, env)
	}
	return h.embedded(dt, env)
}

func (h objectHandler) embedded(dt *schema.DataType, env *Env) (Fragment, error) {
	target := dt.Classes[0]
	if target.Abstract {
		e := errors.IllegalAbstractType(errors.PhaseCompile, env.Span, target.Name)
		e.Path = env.Path
		return Fragment{}, e
	}
	rc, err := env.compiler.classCodec(target, env.pending)
	if err != nil {
		return Fragment{}, err
	}
	path := env.Path
	return Fragment{
		Encode: func(w *wire.Writer, v any) error {
			rec, err := h.record(dt, v)
			if err != nil {
				return err
			}
			if rec.Class != target && rec.Class.GUID() != target.GUID() {
				return errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
					Path(path...).
					GoType(rec.Class.Name).
					DataType(dt.String()).
					Build()
			}
			w.Byte(1)
			return rc.encode(w, rec)
		},
		EncodeNull: func(w *wire.Writer) { w.Byte(0) },
		Decode: func(r *wire.Reader) (any, error) {
			b, err := r.ReadByte()
			if err != nil {
				return nil, decodeErr(path, err)
			}
			switch b {
			case 0:
				return nil, nil
			case 1:
				return rc.decode(r)
			}
			return nil, errors.InvalidData(errors.PhaseDecode, path, "invalid presence byte "+strconv.Itoa(int(b)))
		},
	}, nil
}

func (h objectHandler) polymorphic(dt *schema.DataType, env *Env) (Fragment, error) {
	c := env.compiler
	targets := c.set.ConcreteTargets(dt.Classes)
	if len(targets) == 0 {
		e := errors.IllegalAbstractType(errors.PhaseCompile, env.Span, dt.Classes[0].Name)
		e.Path = env.Path
		e.Detail = fmt.Sprintf("illegal abstract type: %s has no concrete descendants", dt.Classes[0].Name)
		return Fragment{}, e
	}
	byGUID := make(map[string]*recordCodec, len(targets))
	for _, t := range targets {
		rc, err := c.classCodec(t, env.pending)
		if err != nil {
			return Fragment{}, err
		}
		byGUID[t.GUID()] = rc
	}

	path := env.Path
	loader := c.loader
	log := c.log
	resolve := func(id string) (*recordCodec, error) {
		if loader == nil {
			if rc := byGUID[id]; rc != nil {
				return rc, nil
			}
			return nil, errors.Unresolved(id, fmt.Errorf("not a target of %s", dt))
		}
		class, err := loader.Load(id)
		if err != nil {
			return nil, errors.Unresolved(id, err)
		}
		if class == nil {
			return nil, errors.Unresolved(id, fmt.Errorf("loader returned no class"))
		}
		rc := byGUID[class.GUID()]
		if rc == nil {
			return nil, errors.Unresolved(id, fmt.Errorf("class %s is not a target of %s", class.Name, dt))
		}
		log.Debug("resolved object type", zap.String("id", id), zap.String("class", class.Name))
		return rc, nil
	}

	return Fragment{
		Encode: func(w *wire.Writer, v any) error {
			rec, err := h.record(dt, v)
			if err != nil {
				return err
			}
			id := rec.Class.GUID()
			rc := byGUID[id]
			if rc == nil {
				detail := "abstract"
				if !rec.Class.Abstract {
					detail = "not a target"
				}
				return errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
					Path(path...).
					GoType(rec.Class.Name).
					DataType(dt.String()).
					Detail("class %s is %s", rec.Class.Name, detail).
					Build()
			}
			w.Length(len(id))
			w.WriteString(id)
			return rc.encode(w, rec)
		},
		EncodeNull: func(w *wire.Writer) { w.Null() },
		Decode: func(r *wire.Reader) (any, error) {
			n, ok, err := r.Length()
			if err != nil {
				return nil, decodeErr(path, err)
			}
			if !ok {
				return nil, nil
			}
			id, err := r.ReadBytes(n)
			if err != nil {
				return nil, decodeErr(path, err)
			}
			rc, err := resolve(string(id))
			if err != nil {
				return nil, withPath(err, path)
			}
			return rc.decode(r)
		},
	}, nil
}

func (objectHandler) record(dt *schema.DataType, v any) (*Record, error) {
	switch x := v.(type) {
	case *Record:
		if x != nil && x.Class != nil {
			return x, nil
		}
	case map[string]any:
		if !dt.Polymorphic {
			return RecordFromMap(dt.Classes[0], x)
		}
	}
	return nil, mismatch(errors.PhaseEncode, dt, v)
}
