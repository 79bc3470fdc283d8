// Package registry is the compile-time dispatch table from node kinds to
// their callbacks.
//
// Every node kind is implemented by a module under modules/ that registers
// an Entry during application startup. The evaluator looks entries up by
// kind, and Validate checks a graph against the table before the first pass
// so that unknown kinds or mistyped parameters are rejected up front rather
// than failing inside a callback.
package registry
