// Package graph holds the topology of the evaluation graph: which nodes
// exist and which source feeds each input slot.
//
// Node indices are stable for the lifetime of a node; removing a node
// disconnects its consumers instead of renumbering. Cycles are rejected when
// a connection is made, so a constructed graph always has a topological
// order.
package graph
