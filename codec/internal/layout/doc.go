// Package layout computes record wire layouts: the byte offset and width
// of every field that sits in the fixed-width prefix of a record.
//
// # Layout Rules
//
// Fields are packed in declaration order with no padding:
//   - Fixed-width fields occupy their kind's width
//   - Variable-width fields start with a length code, so every field after
//     the first variable-width field has no static offset
//
// # Usage
//
//	info := layout.Calc(widths)
//	// info.Offsets, info.Prefix, info.Fixed available
//
// This package is internal to codec.
package layout
