// Package pathtrace is a small progressive CPU ray caster used by
// PathTracer nodes. A scene is compiled once into a flat triangle list and
// a Renderer accumulates jittered samples a band of rows at a time, so the
// evaluator can advance it between passes without blocking.
package pathtrace
