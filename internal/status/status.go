// Package status defines the result values returned by every evaluation
// callback and context accessor.
package status

// Status is the outcome of a single callback or accessor call.
type Status int

const (
	// Ok means the call succeeded.
	Ok Status = iota
	// Err is a node-local, recoverable failure. It never aborts a pass.
	Err
	// Unset means there is no value yet, for example the size of a disconnected input.
	Unset
)

func (s Status) String() string {
	switch s {
	case Ok:
		return "ok"
	case Err:
		return "err"
	case Unset:
		return "unset"
	default:
		return "unknown"
	}
}

// IsOk reports whether s is Ok.
func (s Status) IsOk() bool { return s == Ok }
