// Package keyfilter implements the key-filter DSL used to select inputs for
// map/reduce jobs by key alone, without fetching objects.
//
// A filter is written in list form, as it appears in test definitions:
//
//	[[to_lower], [ends_with, "1"]]
//	[or, [[ends_with, "1"]], [[ends_with, "5"]]]
//
// A filter list is a sequence of steps applied left to right. Transform
// steps rewrite the value seen by later steps; predicate steps must all
// hold. The logical operators and, or, not combine nested filter lists.
//
// SEALED INTERFACES:
//
// Predicate and Transform use the marker method pattern so only this
// package can implement them. Backends that compile filters (for example
// the SQLite reference store) can type-switch exhaustively.
//
// The same AST is evaluated locally by Match to compute ground truth.
package keyfilter
