// Package codec compiles record classes into binary encoders and
// decoders.
//
// Every kind has one stateless Handler, selected from a fixed table. A
// Compiler walks a class's fields in order, asks each field's handler for
// a Fragment, and splices the fragments into a Codec. Codecs are
// immutable and safe for concurrent use.
//
//	┌────────────────────────────────────────────────────────────┐
//	│ schema.RecordClass → [Compiler] → Codec ←→ []byte          │
//	└────────────────────────────────────────────────────────────┘
//
// # Wire Format
//
// Fields are packed in order with no padding. Integers are big-endian.
//
//	Kind          Width   Null
//	───────────────────────────────────────────
//	bool          1       0xFF
//	int8..int64   1..8    minimum value
//	uint8..uint64 1..8    maximum value
//	float32       4       0xFFFFFFFF
//	float64       8       0xFFFFFFFFFFFFFFFF
//	decimal(s)    8       math.MinInt64 (unscaled int64)
//	timestamp     8       math.MinInt64 (ns since epoch)
//	time_of_day   4       -1 (minutes since midnight)
//	enum          4       -1 (symbol value)
//	string        var     length code 0
//	binary        var     length code 0
//	array         var     count code 0
//	embed<A>      var     presence byte 0
//	object<A|B>   var     type id code 0
//
// Length codes are unsigned LEB128: 0 is null, n+1 is n bytes or items.
// Polymorphic objects write the class GUID before the body. Present NaNs
// are written as the canonical quiet NaN. A present value equal to a null
// sentinel cannot be encoded.
//
// # In-memory Values
//
//	bool, int8..int64, uint8..uint64, float32, float64
//	decimal.Decimal, time.Time, schema.TimeOfDay
//	string (also enum symbols), []byte, []any, *Record
//
// nil is null for every kind.
//
// # Key Types
//
//	Compiler   - Compiles and caches codecs per class
//	Codec      - Encodes and decodes records of one class
//	TypeCodec  - Encodes and decodes single values of one descriptor
//	Handler    - Per-kind fold, coerce and fragment logic
package codec
