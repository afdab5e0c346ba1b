package layout

// Width is the wire width of one field; Fixed is false for variable-width
// fields, whose Size is then meaningless.
type Width struct {
	Size  int
	Fixed bool
}

// Info describes a record layout.
type Info struct {
	// Offsets holds the static byte offset of each field, or -1 when it
	// depends on earlier variable-width fields.
	Offsets []int
	// Prefix is the byte length of the leading run of fixed-width fields.
	Prefix int
	// PrefixFields is the number of fields in that run.
	PrefixFields int
	// Fixed reports whether every field is fixed width; Prefix is then the
	// record size.
	Fixed bool
}

// Calc lays out fields in order.
func Calc(fields []Width) Info {
	info := Info{
		Offsets: make([]int, len(fields)),
		Fixed:   true,
	}
	offset := 0
	for i, f := range fields {
		if !info.Fixed {
			info.Offsets[i] = -1
			continue
		}
		info.Offsets[i] = offset
		if !f.Fixed {
			info.Fixed = false
			continue
		}
		offset += f.Size
		info.PrefixFields = i + 1
	}
	info.Prefix = offset
	return info
}
