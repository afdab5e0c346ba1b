// Package expr compiles typed expressions over records into reusable
// programs.
//
// An expression is checked against a record class: identifiers name the
// class's fields, and untyped literals are folded against the type of the
// operand they meet, so a literal that the field's kind cannot hold is a
// compile-time diagnostic with the literal's span.
//
//	prog, err := expr.Compile("price * size > 1000 and side == 'BUY'", trade)
//	if err != nil {
//		return err
//	}
//	inst := prog.NewInstance()
//	v, err := inst.Evaluate(rec)
//
// Operators are arithmetic (+ - * / %), comparison (== != < <= > >=),
// is [not] null, and three-valued and, or and not. Null propagates
// through arithmetic and comparison.
//
// Built-in functions:
//
//	abs(x)  coalesce(x, ...)  len(x)  hour(t)  minute(t)
//	count() count(x) sum(x) avg(x) min(x) max(x) first(x) last(x)
//
// The second row are aggregates. Their running state lives in persistent
// variables of the Instance and survives between Evaluate calls until
// Reset. Every other intermediate value is transient and reset per
// record.
//
// new C(field = expr, ...) builds a record of a concrete class C with
// its defaults and static values filled in.
package expr
