// Package errors provides structured error types for the tickcodec module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, Go and schema type names, the
// source Span of the schema or expression text, and the cause chain.
//
// Compile-time errors are diagnostics: the first one aborts the compile call
// and is returned to the caller unchanged. Nothing is accumulated.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
//		Path("trade", "price").
//		GoType("string").
//		DataType("float64").
//		Detail("cannot convert string to float64").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.IllegalAbstractType(errors.PhaseCompile, span, "deltix.Bar")
//	err := errors.OutOfRange(errors.PhaseFold, span, "99999999", "time_of_day")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
