// Package schema describes records: field data types, record classes with
// single inheritance and abstract members, enum classes, and the Set that
// groups them.
//
// Descriptors come from three places:
//
//	Load / LoadFile   YAML schema documents, with source spans
//	Set.ImportWIT     WIT record type definitions
//	NewClass, Of, ... Go builders
//
// # Type text
//
//	bool int8 int16 int32 int64 uint8 uint16 uint32 uint64
//	float32 float64 decimal decimal(4) timestamp time_of_day
//	string binary enum<Side> array<T> object<A|B> embed<A>
//
// Types are nullable unless suffixed with "!". Fixed widths are a
// property of the kind, so every codec built from a descriptor agrees on
// them.
package schema
