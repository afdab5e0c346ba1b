package schema

import (
	"testing"

	"github.com/wippyai/tickcodec/errors"
)

func TestKindFixedSize(t *testing.T) {
	tests := []struct {
		kind  Kind
		size  int
		fixed bool
	}{
		{KindBool, 1, true},
		{KindInt8, 1, true},
		{KindInt16, 2, true},
		{KindInt32, 4, true},
		{KindInt64, 8, true},
		{KindUInt8, 1, true},
		{KindUInt16, 2, true},
		{KindUInt32, 4, true},
		{KindUInt64, 8, true},
		{KindFloat32, 4, true},
		{KindFloat64, 8, true},
		{KindDecimal, 8, true},
		{KindTimestamp, 8, true},
		{KindTimeOfDay, 4, true},
		{KindEnum, 4, true},
		{KindString, 0, false},
		{KindBinary, 0, false},
		{KindArray, 0, false},
		{KindObject, 0, false},
	}
	if len(tests) != KindCount {
		t.Fatalf("table covers %d kinds, want %d", len(tests), KindCount)
	}

	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			for i := 0; i < 3; i++ {
				size, fixed := tc.kind.FixedSize()
				if size != tc.size || fixed != tc.fixed {
					t.Errorf("FixedSize() = (%d, %v), want (%d, %v)", size, fixed, tc.size, tc.fixed)
				}
			}
			if k, ok := LookupKind(tc.kind.String()); !ok || k != tc.kind {
				t.Errorf("LookupKind(%q) = %v, %v", tc.kind.String(), k, ok)
			}
		})
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		text     string
		want     string
		kind     Kind
		nullable bool
	}{
		{"int32", "int32", KindInt32, true},
		{"int32!", "int32", KindInt32, false},
		{"decimal", "decimal(8)", KindDecimal, true},
		{"decimal(4)!", "decimal(4)", KindDecimal, false},
		{"time_of_day", "time_of_day", KindTimeOfDay, true},
		{"array<float64!>", "array<float64!>", KindArray, true},
		{"array< array<string> >", "array<array<string>>", KindArray, true},
		{"enum<Side>", "enum<Side>", KindEnum, true},
		{"object<Trade|Quote>", "object<Trade|Quote>", KindObject, true},
		{"embed<Leg>!", "embed<Leg>", KindObject, false},
	}

	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			dt, err := ParseType(tc.text, errors.Span{Line: 1, Column: 1})
			if err != nil {
				t.Fatalf("ParseType: %v", err)
			}
			if dt.Kind != tc.kind {
				t.Errorf("kind: got %v, want %v", dt.Kind, tc.kind)
			}
			if dt.Nullable != tc.nullable {
				t.Errorf("nullable: got %v, want %v", dt.Nullable, tc.nullable)
			}
			if got := dt.String(); got != tc.want {
				t.Errorf("String: got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseTypeErrors(t *testing.T) {
	tests := []struct {
		text   string
		kind   errors.Kind
		column int
	}{
		{"int33", errors.KindUnknownType, 5},
		{"decimal(19)", errors.KindSyntax, 13},
		{"array<int32", errors.KindSyntax, 16},
		{"embed<A|B>", errors.KindSyntax, 5},
		{"int32 extra", errors.KindSyntax, 11},
		{"", errors.KindSyntax, 5},
	}

	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			_, err := ParseType(tc.text, errors.Span{Source: "s.yaml", Line: 3, Column: 5})
			e, ok := errors.As(err)
			if !ok {
				t.Fatalf("expected *errors.Error, got %v", err)
			}
			if e.Kind != tc.kind {
				t.Errorf("kind: got %s, want %s (%v)", e.Kind, tc.kind, e)
			}
			if e.Span.Line != 3 || e.Span.Column != tc.column {
				t.Errorf("span: got %d:%d, want 3:%d", e.Span.Line, e.Span.Column, tc.column)
			}
			if !errors.IsCompileFailure(err) {
				t.Error("expected a compile failure")
			}
		})
	}
}

func TestNewClassFlattensParentFirst(t *testing.T) {
	base := MustClass("Base", nil, true,
		NewField("symbol", Of(KindString)),
		NewField("ts", Of(KindTimestamp)),
	)
	trade := MustClass("Trade", base, false,
		NewField("price", DecimalOf(4)),
	)

	fields := trade.AllFields()
	names := []string{"symbol", "ts", "price"}
	if len(fields) != len(names) {
		t.Fatalf("got %d fields, want %d", len(fields), len(names))
	}
	for i, name := range names {
		if fields[i].Name != name {
			t.Errorf("field %d: got %s, want %s", i, fields[i].Name, name)
		}
	}
	if trade.FieldIndex("price") != 2 {
		t.Errorf("FieldIndex(price) = %d", trade.FieldIndex("price"))
	}
	if trade.Field("missing") != nil {
		t.Error("Field(missing) should be nil")
	}
	if !trade.IsA(base) || base.IsA(trade) {
		t.Error("IsA is wrong")
	}
}

func TestNewClassDuplicateField(t *testing.T) {
	base := MustClass("Base", nil, false, NewField("x", Of(KindInt32)))
	_, err := NewClass("Child", base, false, NewField("x", Of(KindInt64)))
	if e, ok := errors.As(err); !ok || e.Kind != errors.KindDuplicate {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestClassIdentity(t *testing.T) {
	mk := func(name string, fields ...*Field) *RecordClass {
		return MustClass(name, nil, false, fields...)
	}
	a := mk("A", NewField("x", Of(KindInt32)), NewField("y", Of(KindString)))
	again := mk("A", NewField("x", Of(KindInt32)), NewField("y", Of(KindString)))
	swapped := mk("A", NewField("y", Of(KindString)), NewField("x", Of(KindInt32)))
	renamed := mk("B", NewField("x", Of(KindInt32)), NewField("y", Of(KindString)))

	if a.GUID() != again.GUID() {
		t.Error("GUID must be deterministic")
	}
	if a.GUID() == renamed.GUID() {
		t.Error("GUID must depend on the class name")
	}
	if a.Fingerprint() != again.Fingerprint() {
		t.Error("fingerprint must be deterministic")
	}
	if a.Fingerprint() == swapped.Fingerprint() {
		t.Error("reordering fields must change the fingerprint")
	}
	if a.Fingerprint() != renamed.Fingerprint() {
		t.Error("fingerprint covers the layout only")
	}

	withStatic := mk("A", NewField("x", Of(KindInt32)), NewField("y", Of(KindString)),
		&Field{Name: "venue", Type: Of(KindString), Static: true, Value: Literal{Text: "XNYS"}})
	if withStatic.Fingerprint() != a.Fingerprint() {
		t.Error("static fields are not part of the wire layout")
	}
}

func TestConcreteTargets(t *testing.T) {
	s := NewSet()
	msg := MustClass("Message", nil, true, NewField("symbol", Of(KindString)))
	trade := MustClass("Trade", msg, false, NewField("price", Of(KindFloat64)))
	quote := MustClass("Quote", msg, false, NewField("bid", Of(KindFloat64)))
	marker := MustClass("Marker", msg, true)
	if err := s.Add(msg, trade, quote, marker); err != nil {
		t.Fatal(err)
	}

	t.Run("abstract_root", func(t *testing.T) {
		got := s.ConcreteTargets([]*RecordClass{msg})
		if len(got) != 2 || got[0] != trade || got[1] != quote {
			t.Errorf("got %v, want [Trade Quote]", got)
		}
	})

	t.Run("dedup", func(t *testing.T) {
		got := s.ConcreteTargets([]*RecordClass{trade, msg})
		if len(got) != 2 || got[0] != trade || got[1] != quote {
			t.Errorf("got %v, want [Trade Quote]", got)
		}
	})

	t.Run("no_concrete", func(t *testing.T) {
		if got := s.ConcreteTargets([]*RecordClass{marker}); len(got) != 0 {
			t.Errorf("got %v, want none", got)
		}
	})

	t.Run("nil_set", func(t *testing.T) {
		var none *Set
		if got := none.ConcreteTargets([]*RecordClass{msg, trade}); len(got) != 1 || got[0] != trade {
			t.Errorf("got %v, want [Trade]", got)
		}
	})

	t.Run("lookup", func(t *testing.T) {
		if s.ClassByGUID(quote.GUID()) != quote {
			t.Error("ClassByGUID did not find Quote")
		}
		if err := s.Add(MustClass("Trade", nil, false)); err == nil {
			t.Error("expected duplicate class error")
		}
	})
}

func TestAddEnumRejectsNegativeValues(t *testing.T) {
	s := NewSet()
	err := s.AddEnum(&EnumClass{Name: "E", Symbols: []EnumSymbol{{Name: "A", Value: -1}}})
	if e, ok := errors.As(err); !ok || e.Kind != errors.KindOutOfRange {
		t.Fatalf("expected out_of_range, got %v", err)
	}
}

func TestTimeOfDay(t *testing.T) {
	tests := []struct {
		text string
		want int64
		err  bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"1439", 1439, false},
		{"99999999", 99999999, false},
		{"9:5", 0, true},
		{"10:60", 0, true},
		{"noon", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			got, err := ParseMinutes(tc.text)
			if tc.err {
				if err == nil {
					t.Errorf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}

	if s := NewTimeOfDay(9, 30).String(); s != "09:30" {
		t.Errorf("String = %q", s)
	}
	if TimeOfDay(MinutesPerDay).Valid() || TimeOfDay(NullTimeOfDay).Valid() {
		t.Error("out of range values must be invalid")
	}
}
