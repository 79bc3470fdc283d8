// Package jobs runs latency-bound node work off the evaluation goroutine.
//
// At most one job is in flight per node. Workers never touch evaluation
// state: a job returns an Install step, and the finished job is posted as a
// Completion that the evaluator drains at the start of its next pass and
// applies on its own goroutine. Jobs are never retried.
//
// Progressive work such as path-trace refinement is tracked separately and
// advanced one step per pass by Advance, also on the evaluation goroutine.
package jobs
