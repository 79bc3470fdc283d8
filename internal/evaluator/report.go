package evaluator

import "log/slog"

// PassReport summarizes one evaluation pass.
type PassReport struct {
	Pass    int
	Visited int
	// Callbacks counts size/state callback invocations.
	Callbacks int
	Kernels   int
	// Processing counts nodes skipped because a job owns their output.
	Processing int
	// Unresolved counts nodes skipped for a missing required input.
	Unresolved  int
	Errors      int
	Completions int
}

// LogValue implements slog.LogValuer.
func (r PassReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("pass", r.Pass),
		slog.Int("visited", r.Visited),
		slog.Int("callbacks", r.Callbacks),
		slog.Int("kernels", r.Kernels),
		slog.Int("processing", r.Processing),
		slog.Int("unresolved", r.Unresolved),
		slog.Int("errors", r.Errors),
		slog.Int("completions", r.Completions),
	)
}
