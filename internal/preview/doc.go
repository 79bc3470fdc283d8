// Package preview shows one node's target in a window while the graph
// evaluates, running one pass per frame.
package preview
