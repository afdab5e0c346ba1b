// Package coerce converts loosely typed Go numbers, such as the int and
// float64 values produced by YAML decoding or expression arithmetic, to
// the exact width a field needs, rejecting values that do not fit.
//
// This package is internal to codec.
package coerce
