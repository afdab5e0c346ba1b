package codec

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

var sideEnum = &schema.EnumClass{
	Name:    "Side",
	Symbols: []schema.EnumSymbol{{Name: "BUY", Value: 0}, {Name: "SELL", Value: 1}},
}

func mustType(t *testing.T, dt *schema.DataType) *TypeCodec {
	t.Helper()
	tc, err := CompileType(dt)
	if err != nil {
		t.Fatalf("CompileType(%s): %v", dt, err)
	}
	return tc
}

func TestRoundTripEveryKind(t *testing.T) {
	leg := schema.MustClass("Leg", nil, false, schema.NewField("qty", schema.Of(schema.KindInt32)))
	legRec := NewRecord(leg)
	legRec.Values[0] = int32(7)

	tests := []struct {
		dt    *schema.DataType
		value any
		name  string
	}{
		{schema.Of(schema.KindBool), true, "bool true"},
		{schema.Of(schema.KindBool), false, "bool false"},
		{schema.Of(schema.KindInt8), int8(-127), "int8 min+1"},
		{schema.Of(schema.KindInt8), int8(127), "int8 max"},
		{schema.Of(schema.KindInt16), int16(-300), "int16"},
		{schema.Of(schema.KindInt32), int32(42), "int32"},
		{schema.Of(schema.KindInt64), int64(math.MaxInt64), "int64 max"},
		{schema.Of(schema.KindUInt8), uint8(0), "uint8 zero"},
		{schema.Of(schema.KindUInt8), uint8(254), "uint8 max-1"},
		{schema.Of(schema.KindUInt16), uint16(65534), "uint16"},
		{schema.Of(schema.KindUInt32), uint32(7), "uint32"},
		{schema.Of(schema.KindUInt64), uint64(math.MaxUint64 - 1), "uint64"},
		{schema.Of(schema.KindFloat32), float32(1.5), "float32"},
		{schema.Of(schema.KindFloat32), float32(math.NaN()), "float32 NaN"},
		{schema.Of(schema.KindFloat64), -2.25, "float64"},
		{schema.Of(schema.KindFloat64), math.Inf(1), "float64 inf"},
		{schema.Of(schema.KindFloat64), math.NaN(), "float64 NaN"},
		{schema.DecimalOf(4), decimal.RequireFromString("101.25"), "decimal"},
		{schema.DecimalOf(0), decimal.NewFromInt(-9), "decimal scale 0"},
		{schema.Of(schema.KindTimestamp), time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC), "timestamp"},
		{schema.Of(schema.KindTimeOfDay), schema.TimeOfDay(0), "midnight"},
		{schema.Of(schema.KindTimeOfDay), schema.NewTimeOfDay(23, 59), "23:59"},
		{schema.EnumOf(sideEnum), "SELL", "enum"},
		{schema.Of(schema.KindString), "hi", "string"},
		{schema.Of(schema.KindString), "", "empty string"},
		{schema.Of(schema.KindBinary), []byte{1, 2, 3}, "binary"},
		{schema.Of(schema.KindBinary), []byte{}, "empty binary"},
		{schema.ArrayOf(schema.Of(schema.KindInt32)), []any{int32(1), nil, int32(3)}, "array"},
		{schema.ArrayOf(schema.ArrayOf(schema.Of(schema.KindString))), []any{[]any{"a"}, []any{}}, "nested array"},
		{schema.EmbedOf(leg), legRec, "embed"},
		{schema.ObjectOf(leg), legRec, "object"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := mustType(t, tc.dt)
			data, err := c.Encode(nil, tc.value)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, n, err := c.Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if n != len(data) {
				t.Errorf("consumed %d of %d bytes", n, len(data))
			}
			if !Equal(got, tc.value) {
				t.Errorf("got %v (%T), want %v (%T)", got, got, tc.value, tc.value)
			}
			if size, fixed := c.FixedWidth(); fixed && len(data) != size {
				t.Errorf("encoded %d bytes, fixed width is %d", len(data), size)
			}
		})
	}
}

func TestNullSentinels(t *testing.T) {
	tests := []struct {
		dt   *schema.DataType
		want []byte
	}{
		{schema.Of(schema.KindBool), []byte{0xFF}},
		{schema.Of(schema.KindInt8), []byte{0x80}},
		{schema.Of(schema.KindInt16), []byte{0x80, 0x00}},
		{schema.Of(schema.KindInt32), []byte{0x80, 0, 0, 0}},
		{schema.Of(schema.KindInt64), []byte{0x80, 0, 0, 0, 0, 0, 0, 0}},
		{schema.Of(schema.KindUInt8), []byte{0xFF}},
		{schema.Of(schema.KindUInt16), []byte{0xFF, 0xFF}},
		{schema.Of(schema.KindUInt32), []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{schema.Of(schema.KindUInt64), bytes.Repeat([]byte{0xFF}, 8)},
		{schema.Of(schema.KindFloat32), []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{schema.Of(schema.KindFloat64), bytes.Repeat([]byte{0xFF}, 8)},
		{schema.DecimalOf(2), []byte{0x80, 0, 0, 0, 0, 0, 0, 0}},
		{schema.Of(schema.KindTimestamp), []byte{0x80, 0, 0, 0, 0, 0, 0, 0}},
		{schema.Of(schema.KindTimeOfDay), []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{schema.EnumOf(sideEnum), []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{schema.Of(schema.KindString), []byte{0}},
		{schema.Of(schema.KindBinary), []byte{0}},
		{schema.ArrayOf(schema.Of(schema.KindInt32)), []byte{0}},
	}

	for _, tc := range tests {
		t.Run(tc.dt.String(), func(t *testing.T) {
			c := mustType(t, tc.dt)
			null := c.EncodeNull(nil)
			if !bytes.Equal(null, tc.want) {
				t.Errorf("EncodeNull = %x, want %x", null, tc.want)
			}
			viaNil, err := c.Encode(nil, c.NullValue())
			if err != nil {
				t.Fatalf("Encode(null): %v", err)
			}
			if !bytes.Equal(viaNil, null) {
				t.Errorf("Encode(null) = %x, want %x", viaNil, null)
			}
			got, _, err := c.Decode(null)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got != nil {
				t.Errorf("decoded %v, want null", got)
			}
		})
	}
}

func TestFixedWidthsAreConstant(t *testing.T) {
	for k := schema.Kind(0); int(k) < schema.KindCount; k++ {
		h := HandlerFor(k)
		if h == nil {
			t.Fatalf("no handler for %s", k)
		}
		if h.Kind() != k {
			t.Errorf("handler for %s reports %s", k, h.Kind())
		}
		want, wantFixed := k.FixedSize()
		for i := 0; i < 3; i++ {
			size, fixed := h.FixedWidth()
			if size != want || fixed != wantFixed {
				t.Errorf("%s: FixedWidth() = (%d, %v), want (%d, %v)", k, size, fixed, want, wantFixed)
			}
		}
		if h.NullValue() != nil {
			t.Errorf("%s: NullValue() = %v", k, h.NullValue())
		}
	}
	if HandlerFor(schema.Kind(200)) != nil {
		t.Error("invalid kind should have no handler")
	}
}

func TestWireBytes(t *testing.T) {
	tests := []struct {
		dt    *schema.DataType
		value any
		want  []byte
		name  string
	}{
		{schema.Of(schema.KindInt32), int32(42), []byte{0, 0, 0, 0x2A}, "int32 big-endian"},
		{schema.Of(schema.KindInt16), int16(-2), []byte{0xFF, 0xFE}, "int16 negative"},
		{schema.Of(schema.KindString), "hi", []byte{3, 'h', 'i'}, "string length code"},
		{schema.Of(schema.KindTimeOfDay), schema.NewTimeOfDay(9, 30), []byte{0, 0, 0x02, 0x3A}, "time of day"},
		{schema.EnumOf(sideEnum), "SELL", []byte{0, 0, 0, 1}, "enum value"},
		{schema.DecimalOf(2), decimal.RequireFromString("1.5"), []byte{0, 0, 0, 0, 0, 0, 0, 150}, "decimal unscaled"},
		{schema.Of(schema.KindFloat64), math.NaN(), []byte{0x7F, 0xF8, 0, 0, 0, 0, 0, 0}, "canonical NaN"},
		{schema.Of(schema.KindFloat32), float32(math.NaN()), []byte{0x7F, 0xC0, 0, 0}, "canonical NaN32"},
		{schema.ArrayOf(schema.Of(schema.KindBool)), []any{true, nil}, []byte{3, 1, 0xFF}, "array"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := mustType(t, tc.dt).Encode(nil, tc.value)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, tc.want) {
				t.Errorf("got %x, want %x", got, tc.want)
			}
		})
	}
}

func TestEncodeRejectsSentinelValues(t *testing.T) {
	tests := []struct {
		dt    *schema.DataType
		value any
		name  string
	}{
		{schema.Of(schema.KindInt8), int8(math.MinInt8), "int8 min"},
		{schema.Of(schema.KindInt32), int32(math.MinInt32), "int32 min"},
		{schema.Of(schema.KindInt64), int64(math.MinInt64), "int64 min"},
		{schema.Of(schema.KindUInt8), uint8(math.MaxUint8), "uint8 max"},
		{schema.Of(schema.KindUInt64), uint64(math.MaxUint64), "uint64 max"},
		{schema.Of(schema.KindTimeOfDay), schema.TimeOfDay(-1), "time of day -1"},
		{schema.Of(schema.KindTimeOfDay), schema.TimeOfDay(schema.MinutesPerDay), "time of day 24:00"},
		{schema.EnumOf(sideEnum), -1, "enum -1"},
		{schema.DecimalOf(0), decimal.NewFromInt(math.MinInt64), "decimal min"},
		{schema.Of(schema.KindTimestamp), time.Unix(0, math.MinInt64), "timestamp min"},
		{schema.Of(schema.KindInt32), int(1 << 40), "int overflows int32"},
		{schema.Of(schema.KindFloat32), 1e39, "float32 overflow"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := mustType(t, tc.dt).Encode(nil, tc.value)
			e, ok := errors.As(err)
			if !ok {
				t.Fatalf("expected *errors.Error, got %v", err)
			}
			if e.Phase != errors.PhaseEncode || e.Kind != errors.KindOutOfRange {
				t.Errorf("got [%s] %s, want [encode] out_of_range", e.Phase, e.Kind)
			}
		})
	}
}

func TestEncodeNonNullable(t *testing.T) {
	c := mustType(t, schema.NotNull(schema.Of(schema.KindInt32)))
	_, err := c.Encode(nil, nil)
	if e, ok := errors.As(err); !ok || e.Kind != errors.KindNilPointer {
		t.Fatalf("expected nil_pointer, got %v", err)
	}
	_, _, err = c.Decode([]byte{0x80, 0, 0, 0})
	if e, ok := errors.As(err); !ok || e.Phase != errors.PhaseDecode || e.Kind != errors.KindNilPointer {
		t.Fatalf("expected decode nil_pointer, got %v", err)
	}
}

func TestEncodeTypeMismatch(t *testing.T) {
	_, err := mustType(t, schema.Of(schema.KindInt32)).Encode(nil, "x")
	if e, ok := errors.As(err); !ok || e.Kind != errors.KindTypeMismatch || e.GoType != "string" {
		t.Fatalf("expected type_mismatch, got %v", err)
	}
	_, err = mustType(t, schema.Of(schema.KindString)).Encode(nil, string([]byte{0xff, 0xfe}))
	if e, ok := errors.As(err); !ok || e.Kind != errors.KindInvalidUTF8 {
		t.Fatalf("expected invalid_utf8, got %v", err)
	}
}

func TestCoerceLooseNumbers(t *testing.T) {
	tests := []struct {
		dt    *schema.DataType
		value any
		want  any
		name  string
	}{
		{schema.Of(schema.KindInt32), 42, int32(42), "int to int32"},
		{schema.Of(schema.KindUInt16), 7.0, uint16(7), "float64 to uint16"},
		{schema.Of(schema.KindFloat64), 3, 3.0, "int to float64"},
		{schema.DecimalOf(2), "1.255", decimal.RequireFromString("1.26"), "string to decimal, banker's rounding"},
		{schema.DecimalOf(2), 2, decimal.RequireFromString("2"), "int to decimal"},
		{schema.Of(schema.KindTimeOfDay), "09:30", schema.TimeOfDay(570), "string to time of day"},
		{schema.EnumOf(sideEnum), 1, "SELL", "int to enum"},
		{schema.Of(schema.KindTimestamp), "2024-01-02T03:04:05Z", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "string to timestamp"},
		{schema.ArrayOf(schema.Of(schema.KindInt8)), []int{1, 2}, []any{int8(1), int8(2)}, "typed slice"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Coerce(tc.dt, tc.value)
			if err != nil {
				t.Fatal(err)
			}
			if !Equal(got, tc.want) {
				t.Errorf("got %v (%T), want %v (%T)", got, got, tc.want, tc.want)
			}
		})
	}
}

func TestFold(t *testing.T) {
	span := errors.Span{Source: "q", Line: 1, Column: 7, Offset: 6, Length: 8}
	lit := func(text string) schema.Literal { return schema.Literal{Text: text, Span: span} }

	t.Run("values", func(t *testing.T) {
		tests := []struct {
			dt     *schema.DataType
			want   any
			text   string
			quoted bool
		}{
			{dt: schema.Of(schema.KindBool), want: true, text: "true"},
			{dt: schema.Of(schema.KindInt8), want: int8(-127), text: "-127"},
			{dt: schema.Of(schema.KindUInt32), want: uint32(255), text: "0xff"},
			{dt: schema.Of(schema.KindFloat64), want: 1.5, text: "1.5"},
			{dt: schema.DecimalOf(2), want: decimal.RequireFromString("12.34"), text: "12.34"},
			{dt: schema.Of(schema.KindTimestamp), want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), text: "2024-03-01T00:00:00Z"},
			{dt: schema.Of(schema.KindTimeOfDay), want: schema.TimeOfDay(570), text: "09:30"},
			{dt: schema.Of(schema.KindTimeOfDay), want: schema.TimeOfDay(0), text: "0"},
			{dt: schema.EnumOf(sideEnum), want: "BUY", text: "BUY"},
			{dt: schema.EnumOf(sideEnum), want: "SELL", text: "1"},
			{dt: schema.Of(schema.KindString), want: "null", text: "null", quoted: true},
			{dt: schema.Of(schema.KindBinary), want: []byte{0xde, 0xad}, text: "0xdead"},
			{dt: schema.ArrayOf(schema.Of(schema.KindInt32)), want: []any{int32(1), nil, int32(3)}, text: "[1, null, 3]"},
			{dt: schema.Of(schema.KindInt32), want: nil, text: "null"},
		}
		for _, tc := range tests {
			t.Run(tc.dt.String()+" "+tc.text, func(t *testing.T) {
				l := lit(tc.text)
				l.Quoted = tc.quoted
				got, err := Fold(tc.dt, l)
				if err != nil {
					t.Fatal(err)
				}
				if !Equal(got, tc.want) {
					t.Errorf("got %v (%T), want %v (%T)", got, got, tc.want, tc.want)
				}
			})
		}
	})

	t.Run("diagnostics", func(t *testing.T) {
		tests := []struct {
			dt   *schema.DataType
			text string
			kind errors.Kind
		}{
			{schema.Of(schema.KindTimeOfDay), "99999999", errors.KindOutOfRange},
			{schema.Of(schema.KindTimeOfDay), "24:00", errors.KindOutOfRange},
			{schema.Of(schema.KindTimeOfDay), "noon", errors.KindTypeMismatch},
			{schema.Of(schema.KindInt8), "128", errors.KindOutOfRange},
			{schema.Of(schema.KindInt8), "-128", errors.KindOutOfRange},
			{schema.Of(schema.KindUInt8), "-1", errors.KindOutOfRange},
			{schema.Of(schema.KindInt64), "99999999999999999999", errors.KindOutOfRange},
			{schema.Of(schema.KindInt32), "abc", errors.KindTypeMismatch},
			{schema.Of(schema.KindFloat32), "1e39", errors.KindOutOfRange},
			{schema.DecimalOf(2), "99999999999999999999", errors.KindOutOfRange},
			{schema.EnumOf(sideEnum), "HOLD", errors.KindOutOfRange},
			{schema.Of(schema.KindBool), "maybe", errors.KindTypeMismatch},
			{schema.NotNull(schema.Of(schema.KindString)), "null", errors.KindNilPointer},
			{schema.EmbedOf(schema.MustClass("E", nil, false)), "{}", errors.KindUnsupported},
		}
		for _, tc := range tests {
			t.Run(tc.dt.String()+" "+tc.text, func(t *testing.T) {
				_, err := Fold(tc.dt, lit(tc.text))
				e, ok := errors.As(err)
				if !ok {
					t.Fatalf("expected *errors.Error, got %v", err)
				}
				if e.Kind != tc.kind {
					t.Errorf("kind: got %s, want %s (%v)", e.Kind, tc.kind, e)
				}
				if e.Phase != errors.PhaseFold {
					t.Errorf("phase: got %s, want fold", e.Phase)
				}
				if e.Span != span {
					t.Errorf("span: got %+v, want %+v", e.Span, span)
				}
				if !errors.IsCompileFailure(err) {
					t.Error("fold failures are compile failures")
				}
			})
		}
	})
}

func TestDecodeInvalidData(t *testing.T) {
	tests := []struct {
		dt   *schema.DataType
		data []byte
		name string
	}{
		{schema.Of(schema.KindBool), []byte{2}, "bool byte"},
		{schema.Of(schema.KindInt32), []byte{0, 1}, "short int32"},
		{schema.Of(schema.KindTimeOfDay), []byte{0, 0, 0x05, 0xA0}, "time of day 1440"},
		{schema.EnumOf(sideEnum), []byte{0, 0, 0, 9}, "unknown enum value"},
		{schema.Of(schema.KindString), []byte{5, 'a'}, "length past end"},
		{schema.Of(schema.KindString), []byte{3, 0xff, 0xfe}, "invalid utf8"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := mustType(t, tc.dt).Decode(tc.data)
			e, ok := errors.As(err)
			if !ok {
				t.Fatalf("expected *errors.Error, got %v", err)
			}
			if e.Phase != errors.PhaseDecode {
				t.Errorf("phase: got %s, want decode", e.Phase)
			}
		})
	}
}
