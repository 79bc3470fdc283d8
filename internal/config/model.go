package config

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific graph file loader.
type Loader interface {
	// Load reads every graph file found under paths and translates them
	// into a single model. Paths that do not exist are skipped.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// Model is the format-agnostic representation of one or more graph files.
type Model struct {
	Nodes []*Node
}

// Node is a single node declaration.
type Node struct {
	// Kind is the kind name, e.g. "ImageRead".
	Kind string
	// Name is unique within the model and referenced by Inputs.
	Name string
	// Inputs names the source node per slot. An empty string leaves the
	// slot disconnected.
	Inputs []string
	// Parameters holds the raw parameter values.
	Parameters map[string]cty.Value
	// Source is the file the node was declared in.
	Source string
}

// Merge appends the nodes of other to m.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	m.Nodes = append(m.Nodes, other.Nodes...)
}

// Lookup finds a node by name.
func (m *Model) Lookup(name string) (*Node, bool) {
	for _, n := range m.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// Validate checks names and references. All problems are reported together.
func (m *Model) Validate() error {
	var errs []string
	seen := make(map[string]string, len(m.Nodes))

	for _, n := range m.Nodes {
		if n.Kind == "" {
			errs = append(errs, fmt.Sprintf("%s: node '%s' has no kind", n.Source, n.Name))
		}
		if n.Name == "" {
			errs = append(errs, fmt.Sprintf("%s: %s node has no name", n.Source, n.Kind))
			continue
		}
		if first, dup := seen[n.Name]; dup {
			errs = append(errs, fmt.Sprintf("%s: node '%s' is already declared in %s", n.Source, n.Name, first))
			continue
		}
		seen[n.Name] = n.Source
	}

	for _, n := range m.Nodes {
		for slot, in := range n.Inputs {
			if in == "" {
				continue
			}
			if _, ok := seen[in]; !ok {
				errs = append(errs, fmt.Sprintf("%s: node '%s' input %d references unknown node '%s'", n.Source, n.Name, slot, in))
			}
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("graph model is invalid:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
