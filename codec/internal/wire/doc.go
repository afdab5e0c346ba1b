// Package wire provides the byte level reader and writer used by record
// codecs: big-endian fixed-width integers and unsigned LEB128 length codes.
//
// This package is internal to codec.
package wire
