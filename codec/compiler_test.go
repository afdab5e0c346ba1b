package codec

import (
	"bytes"
	stderrors "errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/shopspring/decimal"

	"github.com/wippyai/tickcodec/codec/internal/wire"
	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

const marketYAML = `enums:
  - name: Side
    symbols: [BUY, SELL]
classes:
  - name: Message
    abstract: true
    fields:
      - {name: symbol, type: string!}
      - {name: ts, type: timestamp}
  - name: Trade
    parent: Message
    fields:
      - {name: price, type: decimal(4)}
      - {name: size, type: int64}
      - {name: side, type: enum<Side>, default: BUY}
      - {name: venue, type: string, static: true, value: XNAS}
  - name: Quote
    parent: Message
    fields:
      - {name: bid, type: float64}
      - {name: ask, type: float64}
  - name: Leg
    fields:
      - {name: qty, type: int32!}
  - name: Book
    fields:
      - {name: last, type: object<Message>}
      - {name: leg, type: embed<Leg>}
      - {name: levels, type: array<float64!>}
  - name: Node
    fields:
      - {name: value, type: int32}
      - {name: next, type: object<Node>}
  - name: BadEmbed
    fields:
      - {name: msg, type: embed<Message>}
  - name: Marker
    abstract: true
    fields: []
  - name: BadRef
    fields:
      - {name: m, type: object<Marker>}
`

func marketSet(t testing.TB) *schema.Set {
	t.Helper()
	s, err := schema.Load([]byte(marketYAML), "market.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func tickClass() *schema.RecordClass {
	return schema.MustClass("Tick", nil, false,
		schema.NewField("a", schema.Of(schema.KindInt32)),
		schema.NewField("b", schema.Of(schema.KindTimeOfDay)),
		schema.NewField("c", schema.Of(schema.KindString)),
	)
}

func newTrade(t testing.TB, c *Codec) *Record {
	t.Helper()
	rec := c.NewRecord()
	for name, v := range map[string]any{
		"symbol": "AAPL",
		"ts":     time.Date(2024, 5, 1, 13, 30, 0, 250, time.UTC),
		"price":  decimal.RequireFromString("187.2500"),
		"size":   int64(100),
		"side":   "SELL",
	} {
		if err := rec.Set(name, v); err != nil {
			t.Fatal(err)
		}
	}
	return rec
}

func TestCompile_ThreeFieldRecord(t *testing.T) {
	c, err := NewCompiler().Compile(tickClass())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	t.Run("values", func(t *testing.T) {
		rec := c.NewRecord()
		rec.Values = []any{int32(42), schema.TimeOfDay(0), "hi"}
		data, err := c.Encode(rec)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		want := []byte{0, 0, 0, 42, 0, 0, 0, 0, 3, 'h', 'i'}
		if !bytes.Equal(data, want) {
			t.Errorf("Encode = %x, want %x", data, want)
		}
		got, err := c.Decode(data)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if !Equal(got, rec) {
			t.Errorf("Decode = %v, want %v", got, rec)
		}
	})

	t.Run("all_null", func(t *testing.T) {
		data, err := c.Encode(c.NewRecord())
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		want := []byte{0x80, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF, 0}
		if !bytes.Equal(data, want) {
			t.Errorf("Encode = %x, want %x", data, want)
		}
		got, err := c.Decode(data)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		for i, v := range got.Values {
			if v != nil {
				t.Errorf("field %d = %v, want null", i, v)
			}
		}
	})

	t.Run("layout", func(t *testing.T) {
		fl := c.Layout()
		want := []struct {
			name   string
			offset int
			width  int
		}{{"a", 0, 4}, {"b", 4, 4}, {"c", 8, 0}}
		for i, w := range want {
			if fl[i].Name != w.name || fl[i].Offset != w.offset || fl[i].Width != w.width {
				t.Errorf("field %d: got %+v, want %+v", i, fl[i], w)
			}
		}
		if size, fixed := c.FixedSize(); fixed || size != 8 {
			t.Errorf("FixedSize = (%d, %v), want (8, false)", size, fixed)
		}
	})

	t.Run("read_field", func(t *testing.T) {
		rec := &Record{Class: c.Class(), Values: []any{int32(7), schema.NewTimeOfDay(9, 30), "abc"}}
		data, err := c.Encode(rec)
		if err != nil {
			t.Fatal(err)
		}
		for i, name := range []string{"a", "b", "c"} {
			got, err := c.ReadField(data, name)
			if err != nil {
				t.Fatalf("ReadField(%s): %v", name, err)
			}
			if !Equal(got, rec.Values[i]) {
				t.Errorf("ReadField(%s) = %v, want %v", name, got, rec.Values[i])
			}
		}
		if _, err := c.ReadField(data, "nope"); err == nil {
			t.Error("expected error for unknown field")
		}
	})

	t.Run("trailing_bytes", func(t *testing.T) {
		data, _ := c.Encode(c.NewRecord())
		_, err := c.Decode(append(data, 0))
		if e, ok := errors.As(err); !ok || e.Kind != errors.KindInvalidData {
			t.Errorf("expected invalid_data, got %v", err)
		}
	})
}

func TestCompile_AbstractTypes(t *testing.T) {
	set := marketSet(t)
	comp := NewCompiler(WithSet(set))

	tests := []struct {
		class    string
		wantLine int
		wantName string
	}{
		{"Message", 5, "Message"},
		{"BadEmbed", 36, "Message"},
		{"BadRef", 42, "Marker"},
		{"Marker", 37, "Marker"},
	}

	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			for attempt := 0; attempt < 2; attempt++ {
				c, err := comp.Compile(set.Class(tt.class))
				if c != nil {
					t.Fatal("abstract failure must not produce a codec")
				}
				e, ok := errors.As(err)
				if !ok {
					t.Fatalf("expected *errors.Error, got %v", err)
				}
				if e.Kind != errors.KindIllegalAbstractType {
					t.Errorf("kind: got %s, want illegal_abstract_type", e.Kind)
				}
				if e.Span.Line != tt.wantLine {
					t.Errorf("span line: got %d, want %d", e.Span.Line, tt.wantLine)
				}
				if !strings.Contains(err.Error(), "illegal abstract type: "+tt.wantName) {
					t.Errorf("message %q does not name %s", err.Error(), tt.wantName)
				}
				if !errors.IsCompileFailure(err) {
					t.Error("expected a compile failure")
				}
			}
		})
	}
}

func TestCompile_Cached(t *testing.T) {
	set := marketSet(t)
	comp := NewCompiler(WithSet(set))
	a := comp.MustCompile(set.Class("Trade"))
	b := comp.MustCompile(set.Class("Trade"))
	if a != b {
		t.Error("compiling a class twice should return the same codec")
	}
	if _, err := comp.Compile(nil); err == nil {
		t.Error("expected error for nil class")
	}
}

func TestCompile_Concurrent(t *testing.T) {
	set := marketSet(t)
	comp := NewCompiler(WithSet(set))

	var wg sync.WaitGroup
	codecs := make([]*Codec, 8)
	for i := range codecs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codecs[i], _ = comp.Compile(set.Class("Book"))
		}(i)
	}
	wg.Wait()
	for i, c := range codecs {
		if c == nil || c != codecs[0] {
			t.Fatalf("codec %d differs", i)
		}
	}
}

func TestCodec_Trade(t *testing.T) {
	set := marketSet(t)
	c := NewCompiler(WithSet(set)).MustCompile(set.Class("Trade"))

	t.Run("defaults_and_statics", func(t *testing.T) {
		rec := c.NewRecord()
		if got := rec.Get("side"); got != "BUY" {
			t.Errorf("side default = %v, want BUY", got)
		}
		if got := rec.Get("venue"); got != "XNAS" {
			t.Errorf("venue = %v, want XNAS", got)
		}
		if rec.Get("price") != nil {
			t.Error("price should start null")
		}
	})

	t.Run("round_trip", func(t *testing.T) {
		rec := newTrade(t, c)
		data, err := c.Encode(rec)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		got, err := c.Decode(data)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if !Equal(got, rec) {
			t.Errorf("got %v, want %v", got, rec)
		}
	})

	t.Run("static_not_on_wire", func(t *testing.T) {
		rec := newTrade(t, c)
		data, err := c.Encode(rec)
		if err != nil {
			t.Fatal(err)
		}
		_ = rec.Set("venue", "OTHER")
		data2, err := c.Encode(rec)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(data, data2) {
			t.Error("static field changed the wire form")
		}
		got, _ := c.Decode(data2)
		if got.Get("venue") != "XNAS" {
			t.Errorf("venue = %v, want XNAS", got.Get("venue"))
		}
	})

	t.Run("read_field_sequential", func(t *testing.T) {
		rec := newTrade(t, c)
		data, _ := c.Encode(rec)
		got, err := c.ReadField(data, "size")
		if err != nil {
			t.Fatal(err)
		}
		if got != int64(100) {
			t.Errorf("size = %v, want 100", got)
		}
		if v, _ := c.ReadField(data, "venue"); v != "XNAS" {
			t.Errorf("venue = %v", v)
		}
		for _, fl := range c.Layout() {
			if fl.Name == "size" && fl.Offset != -1 {
				t.Errorf("size offset = %d, want -1 after a string", fl.Offset)
			}
		}
	})

	t.Run("non_nullable_field", func(t *testing.T) {
		rec := newTrade(t, c)
		_ = rec.Set("symbol", nil)
		_, err := c.Encode(rec)
		e, ok := errors.As(err)
		if !ok || e.Kind != errors.KindNilPointer {
			t.Fatalf("expected nil_pointer, got %v", err)
		}
		if strings.Join(e.Path, ".") != "Trade.symbol" {
			t.Errorf("path = %v", e.Path)
		}
	})

	t.Run("sentinel_value", func(t *testing.T) {
		rec := newTrade(t, c)
		_ = rec.Set("size", int64(math.MinInt64))
		_, err := c.Encode(rec)
		if e, ok := errors.As(err); !ok || e.Kind != errors.KindOutOfRange {
			t.Fatalf("expected out_of_range, got %v", err)
		}
	})

	t.Run("wrong_class", func(t *testing.T) {
		_, err := c.Encode(NewRecord(set.Class("Quote")))
		if e, ok := errors.As(err); !ok || e.Kind != errors.KindTypeMismatch {
			t.Fatalf("expected type_mismatch, got %v", err)
		}
	})

	t.Run("append_encode", func(t *testing.T) {
		rec := newTrade(t, c)
		want, _ := c.Encode(rec)
		got, err := c.AppendEncode([]byte{0xAA}, rec)
		if err != nil {
			t.Fatal(err)
		}
		if got[0] != 0xAA || !bytes.Equal(got[1:], want) {
			t.Errorf("AppendEncode = %x", got)
		}
	})
}

func TestCodec_Objects(t *testing.T) {
	set := marketSet(t)
	comp := NewCompiler(WithSet(set))
	book := comp.MustCompile(set.Class("Book"))
	trade := comp.MustCompile(set.Class("Trade"))

	quote := NewRecord(set.Class("Quote"))
	_ = quote.Set("symbol", "MSFT")
	_ = quote.Set("bid", 410.5)
	_ = quote.Set("ask", 410.75)

	leg := NewRecord(set.Class("Leg"))
	_ = leg.Set("qty", int32(3))

	for _, last := range []*Record{newTrade(t, trade), quote, nil} {
		name := "null"
		if last != nil {
			name = last.Class.Name
		}
		t.Run(name, func(t *testing.T) {
			rec := book.NewRecord()
			if last != nil {
				_ = rec.Set("last", last)
			}
			_ = rec.Set("leg", leg)
			_ = rec.Set("levels", []any{1.0, 2.5})
			data, err := book.Encode(rec)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := book.Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !Equal(got, rec) {
				t.Errorf("got %v, want %v", got, rec)
			}
		})
	}

	t.Run("embed_from_map", func(t *testing.T) {
		rec := book.NewRecord()
		_ = rec.Set("leg", map[string]any{"qty": 9})
		data, err := book.Encode(rec)
		if err != nil {
			t.Fatal(err)
		}
		got, err := book.Decode(data)
		if err != nil {
			t.Fatal(err)
		}
		if v := got.Get("leg").(*Record).Get("qty"); v != int32(9) {
			t.Errorf("qty = %v (%T)", v, v)
		}
	})

	t.Run("not_a_target", func(t *testing.T) {
		rec := book.NewRecord()
		_ = rec.Set("last", leg)
		_, err := book.Encode(rec)
		if e, ok := errors.As(err); !ok || e.Kind != errors.KindTypeMismatch {
			t.Fatalf("expected type_mismatch, got %v", err)
		}
	})

	t.Run("recursive", func(t *testing.T) {
		node := comp.MustCompile(set.Class("Node"))
		tail := NewRecord(set.Class("Node"))
		tail.Values[0] = int32(2)
		head := NewRecord(set.Class("Node"))
		head.Values = []any{int32(1), tail}
		data, err := node.Encode(head)
		if err != nil {
			t.Fatal(err)
		}
		got, err := node.Decode(data)
		if err != nil {
			t.Fatal(err)
		}
		if !Equal(got, head) {
			t.Errorf("got %v, want %v", got, head)
		}
	})

	t.Run("unknown_id", func(t *testing.T) {
		rec := book.NewRecord()
		_ = rec.Set("last", quote)
		data, _ := book.Encode(rec)
		failing := LoaderFunc(func(id string) (*schema.RecordClass, error) {
			return nil, stderrors.New("offline")
		})
		other := NewCompiler(WithSet(set), WithLoader(failing)).MustCompile(set.Class("Book"))
		_, err := other.Decode(data)
		e, ok := errors.As(err)
		if !ok || e.Kind != errors.KindUnresolved || e.Phase != errors.PhaseResolve {
			t.Fatalf("expected unresolved, got %v", err)
		}
		if e.Value != quote.Class.GUID() {
			t.Errorf("unresolved id = %v", e.Value)
		}
	})
}

func TestLoader_SharedAcrossCodecs(t *testing.T) {
	set := marketSet(t)
	calls := 0
	shared := NewCachingLoader(LoaderFunc(func(id string) (*schema.RecordClass, error) {
		calls++
		return set.ClassByGUID(id), nil
	}))

	c1 := NewCompiler(WithSet(set), WithLoader(shared)).MustCompile(set.Class("Book"))
	c2 := NewCompiler(WithSet(set), WithLoader(shared)).MustCompile(set.Class("Book"))
	if c1 == c2 {
		t.Fatal("separate compilers should build separate codecs")
	}

	trade := c1.NewRecord()
	tr := NewRecord(set.Class("Trade"))
	_ = tr.Set("symbol", "IBM")
	_ = trade.Set("last", tr)
	data, err := c1.Encode(trade)
	if err != nil {
		t.Fatal(err)
	}

	r1, err := c1.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := c2.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if r1.Get("last").(*Record).Class != r2.Get("last").(*Record).Class {
		t.Error("one identifier resolved to two classes")
	}
	if calls != 1 {
		t.Errorf("underlying loader called %d times, want 1", calls)
	}
}

func TestRegistryLoader(t *testing.T) {
	set := marketSet(t)
	trade := set.Class("Trade")

	fallbackHit := ""
	l := NewRegistryLoader(set, LoaderFunc(func(id string) (*schema.RecordClass, error) {
		fallbackHit = id
		return nil, errors.Unresolved(id, nil)
	}))

	if c, err := l.Load(trade.GUID()); err != nil || c != trade {
		t.Errorf("by GUID: %v, %v", c, err)
	}
	if c, err := l.Load("Trade"); err != nil || c != trade {
		t.Errorf("by name: %v, %v", c, err)
	}
	_, err := l.Load("nope")
	if e, ok := errors.As(err); !ok || e.Kind != errors.KindUnresolved {
		t.Errorf("expected unresolved, got %v", err)
	}
	if fallbackHit != "nope" {
		t.Errorf("fallback saw %q", fallbackHit)
	}

	_, err = NewRegistryLoader(set, nil).Load("nope")
	if e, ok := errors.As(err); !ok || e.Kind != errors.KindUnresolved {
		t.Errorf("expected unresolved without fallback, got %v", err)
	}
}

func TestBatch(t *testing.T) {
	set := marketSet(t)
	comp := NewCompiler(WithSet(set))
	trade := comp.MustCompile(set.Class("Trade"))

	records := []*Record{newTrade(t, trade), trade.NewRecord(), newTrade(t, trade)}
	records[1].Values[0] = "X"

	block, err := EncodeBatch(trade, records)
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}
	got, err := DecodeBatch(trade, block)
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("got %d records, want %d", len(got), len(records))
	}
	for i := range records {
		if !Equal(got[i], records[i]) {
			t.Errorf("record %d: got %v, want %v", i, got[i], records[i])
		}
	}

	t.Run("fingerprint_mismatch", func(t *testing.T) {
		quote := comp.MustCompile(set.Class("Quote"))
		_, err := DecodeBatch(quote, block)
		if e, ok := errors.As(err); !ok || e.Kind != errors.KindTypeMismatch {
			t.Fatalf("expected type_mismatch, got %v", err)
		}
	})

	t.Run("corrupt", func(t *testing.T) {
		_, err := DecodeBatch(trade, []byte{0xff, 0xff, 0xff})
		if e, ok := errors.As(err); !ok || e.Kind != errors.KindInvalidData {
			t.Fatalf("expected invalid_data, got %v", err)
		}
	})

	t.Run("count_over_limit", func(t *testing.T) {
		venue := schema.NewField("venue", schema.Of(schema.KindString))
		venue.Static = true
		venue.Value = schema.Literal{Text: "XNAS"}
		c := NewCompiler().MustCompile(schema.MustClass("Listing", nil, false, venue))

		w := wire.NewWriter(nil)
		w.U64(c.Fingerprint())
		w.Uvarint(1 << 40)
		_, err := DecodeBatch(c, snappy.Encode(nil, w.Bytes()))
		if e, ok := errors.As(err); !ok || e.Kind != errors.KindInvalidData {
			t.Fatalf("expected invalid_data, got %v", err)
		}

		block, err := EncodeBatch(c, []*Record{c.NewRecord(), c.NewRecord()})
		if err != nil {
			t.Fatal(err)
		}
		got, err := DecodeBatch(c, block)
		if err != nil || len(got) != 2 || got[1].Get("venue") != "XNAS" {
			t.Fatalf("got %v, %v", got, err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		block, err := EncodeBatch(trade, nil)
		if err != nil {
			t.Fatal(err)
		}
		got, err := DecodeBatch(trade, block)
		if err != nil || len(got) != 0 {
			t.Fatalf("got %v, %v", got, err)
		}
	})
}
