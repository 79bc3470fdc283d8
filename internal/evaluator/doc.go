// Package evaluator drives evaluation passes over the graph.
//
// A pass first applies finished jobs and advances progressive renderers,
// then visits every node once in dependency order. For each node it runs the
// size/state callback when the node is size-dirty, and the compute kernel
// when the node is dirty and not processing. Dirt raised by a node reaches
// its consumers on the following pass.
package evaluator
