// Package node defines the vertices of the evaluation graph: the closed set
// of kinds compiled into the binary, their fixed input arity and the Node
// record itself.
package node
