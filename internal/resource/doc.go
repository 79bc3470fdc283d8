// Package resource owns the per-node evaluation targets: their declared
// shape and format, the device allocation behind them, attached scene and
// renderer handles, and the render state set by node callbacks.
//
// Allocation is lazy. Declaring the shape a target already has is a no-op
// on the device, so callbacks may re-declare their size on every pass.
// Target index -1 stands for a disconnected input: getters return Unset and
// setters succeed without effect.
package resource
