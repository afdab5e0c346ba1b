package schema

type Kind uint8

const (
	KindBool Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUInt8
	KindUInt16
	KindUInt32
	KindUInt64
	KindFloat32
	KindFloat64
	KindDecimal
	KindTimestamp
	KindTimeOfDay
	KindEnum
	KindString
	KindBinary
	KindArray
	KindObject

	kindCount
)

// KindCount is the number of kinds; kinds are dense in [0, KindCount).
const KindCount = int(kindCount)

var kindNames = [...]string{
	KindBool:      "bool",
	KindInt8:      "int8",
	KindInt16:     "int16",
	KindInt32:     "int32",
	KindInt64:     "int64",
	KindUInt8:     "uint8",
	KindUInt16:    "uint16",
	KindUInt32:    "uint32",
	KindUInt64:    "uint64",
	KindFloat32:   "float32",
	KindFloat64:   "float64",
	KindDecimal:   "decimal",
	KindTimestamp: "timestamp",
	KindTimeOfDay: "time_of_day",
	KindEnum:      "enum",
	KindString:    "string",
	KindBinary:    "binary",
	KindArray:     "array",
	KindObject:    "object",
}

// Wire widths of fixed kinds; zero marks a variable-width kind.
var kindWidths = [...]int{
	KindBool:      1,
	KindInt8:      1,
	KindInt16:     2,
	KindInt32:     4,
	KindInt64:     8,
	KindUInt8:     1,
	KindUInt16:    2,
	KindUInt32:    4,
	KindUInt64:    8,
	KindFloat32:   4,
	KindFloat64:   8,
	KindDecimal:   8,
	KindTimestamp: 8,
	KindTimeOfDay: 4,
	KindEnum:      4,
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k < kindCount
}

// FixedSize returns the wire width of k, or false for variable-width kinds.
func (k Kind) FixedSize() (int, bool) {
	if int(k) < len(kindWidths) && kindWidths[k] > 0 {
		return kindWidths[k], true
	}
	return 0, false
}

func (k Kind) IsPrimitive() bool {
	return k <= KindEnum
}

func (k Kind) IsInteger() bool {
	return k >= KindInt8 && k <= KindUInt64
}

func (k Kind) IsSigned() bool {
	return k >= KindInt8 && k <= KindInt64
}

func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// IsNumeric reports kinds that take part in arithmetic.
func (k Kind) IsNumeric() bool {
	return k.IsInteger() || k.IsFloat() || k == KindDecimal
}

// LookupKind resolves a simple kind name. Parameterized kinds (decimal,
// enum, array, object) are handled by ParseType.
func LookupKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}
