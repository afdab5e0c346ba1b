// Package codegen provides the storage bookkeeping for compiled programs.
//
// A compiled expression is a tree of Go closures. Intermediate results and
// running aggregate state need somewhere to live between closure calls;
// codegen hands out that storage.
//
// # Storage classes
//
// Transient variables live in a frame's locals and are reset before every
// evaluation. Persistent variables live in a state object and survive
// across evaluations until the owner resets it. Both are declared on a
// Container and materialized by Container.Instantiate.
//
// # Allocation
//
// An Allocator issues variables named prefix+counter. The counter is
// strictly increasing per allocator, so repeated requests never collide,
// and the container rejects a name it already holds.
//
//	temps := codegen.NewContainer()
//	alloc := codegen.NewAllocator(codegen.Transient, temps, nil, "t")
//	sum, _ := alloc.AddVar("running sum", false, schema.Of(schema.KindFloat64), 0.0)
//
//	frame := &codegen.Frame{Locals: temps.Instantiate()}
//	_ = sum.Store(frame, 1.5)
//	v := sum.Load(frame)
//
// Load and Store look the same for both storage classes; the variable
// knows whether it reads the frame's locals or a state object.
package codegen
