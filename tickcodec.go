package tickcodec

import "github.com/wippyai/tickcodec/schema"

// TypeLoader resolves a polymorphic type identifier, as written on the
// wire, to a record class. Implementations must be pure: the same id
// always yields the same class or the same failure.
type TypeLoader interface {
	Load(id string) (*schema.RecordClass, error)
}
