// Package tickcodec compiles record schemas into binary codecs and typed
// expressions over the same records.
//
// # Architecture Overview
//
//	tickcodec/           Root package with the TypeLoader contract
//	├── schema/          Data types, record and enum classes, YAML/WIT loading
//	├── codec/           Per-kind handlers and the record codec compiler
//	├── codegen/         Variable allocator for compiled artifacts
//	├── expr/            Expression parser, type checker and evaluator
//	├── errors/          Structured errors and source spans
//	└── cmd/tbc/         Command line inspector
//
// # Quick Start
//
// Load a schema and compile a codec:
//
//	set, err := schema.LoadFile("market.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	c, err := codec.NewCompiler(codec.WithSet(set)).Compile(set.Class("Trade"))
//	if err != nil {
//	    log.Fatal(err) // abstract classes fail here
//	}
//
//	rec := c.NewRecord()
//	rec.Set("price", decimal.RequireFromString("101.25"))
//	data, err := c.Encode(rec)
//
// Compile an expression against the same class:
//
//	prog, err := expr.Compile("avg(price) > 100", set.Class("Trade"), expr.WithSet(set))
//	inst := prog.NewInstance()
//	v, err := inst.EvaluateBytes(data)
//
// # Wire Format
//
// Integers are big-endian. Fixed-width kinds reserve one value as the
// null sentinel; variable-width kinds start with an unsigned LEB128
// length code where 0 means null. See package codec for the table.
//
// # Thread Safety
//
// Compilers, codecs and programs are safe for concurrent use. An
// expr.Instance holds running aggregate state and belongs to a single
// goroutine.
package tickcodec
