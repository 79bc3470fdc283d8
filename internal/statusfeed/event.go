package statusfeed

import (
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/evalgraph/internal/evaluator"
	"github.com/vk/evalgraph/internal/params"
)

// NodeStatus is the published state of one node.
type NodeStatus struct {
	Index      int                                `json:"index"`
	Name       string                             `json:"name"`
	Kind       string                             `json:"kind"`
	Dirty      string                             `json:"dirty"`
	Processing string                             `json:"processing"`
	Shape      string                             `json:"shape"`
	Params     map[string]ctyjson.SimpleJSONValue `json:"params,omitempty"`
}

// Event is published once per pass.
type Event struct {
	Pass        int          `json:"pass"`
	Settled     bool         `json:"settled"`
	Visited     int          `json:"visited"`
	Callbacks   int          `json:"callbacks"`
	Kernels     int          `json:"kernels"`
	Processing  int          `json:"processing"`
	Errors      int          `json:"errors"`
	Completions int          `json:"completions"`
	Nodes       []NodeStatus `json:"nodes"`
}

// Snapshot builds the event for report from the current state of ev.
func Snapshot(ev *evaluator.Evaluator, report evaluator.PassReport) Event {
	out := Event{
		Pass:        report.Pass,
		Settled:     ev.Settled(),
		Visited:     report.Visited,
		Callbacks:   report.Callbacks,
		Kernels:     report.Kernels,
		Processing:  report.Processing,
		Errors:      report.Errors,
		Completions: report.Completions,
	}
	session := ev.Context()
	for _, n := range ev.Graph().Nodes() {
		st, _ := session.Tracker().Get(n.Index)
		out.Nodes = append(out.Nodes, NodeStatus{
			Index:      n.Index,
			Name:       n.Name,
			Kind:       n.Kind.String(),
			Dirty:      (st.Flags | session.Tracker().Pending(n.Index)).String(),
			Processing: st.Processing.String(),
			Shape:      session.Table().Shape(n.Index).String(),
			Params:     paramsPayload(n.Params),
		})
	}
	return out
}

func paramsPayload(b *params.Block) map[string]ctyjson.SimpleJSONValue {
	names := b.Names()
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]ctyjson.SimpleJSONValue, len(names))
	for _, name := range names {
		v, _ := b.Get(name)
		if v.IsNull() || !v.IsWhollyKnown() {
			continue
		}
		out[name] = ctyjson.SimpleJSONValue{Value: v}
	}
	return out
}
