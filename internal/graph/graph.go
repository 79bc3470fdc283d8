package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/params"
)

var (
	// ErrCycle is returned when a connection would close a cycle.
	ErrCycle = errors.New("cycle detected")
	// ErrUnknownNode is returned for indices or names not in the graph.
	ErrUnknownNode = errors.New("unknown node")
	// ErrSlot is returned for input slots outside a kind's arity.
	ErrSlot = errors.New("input slot out of range")
)

// Graph is the topology store. It is owned by the evaluation goroutine.
type Graph struct {
	nodes  map[int]*node.Node
	byName map[string]int
	next   int

	order []int
	stale bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:  make(map[int]*node.Node),
		byName: make(map[string]int),
	}
}

// Add creates a node with disconnected inputs. Names must be unique.
func (g *Graph) Add(kind node.Kind, name string, p *params.Block) (*node.Node, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("node %q: invalid kind %s", name, kind)
	}
	if name == "" {
		name = fmt.Sprintf("%s_%d", kind, g.next)
	}
	if _, exists := g.byName[name]; exists {
		return nil, fmt.Errorf("node %q already exists", name)
	}
	n := node.New(g.next, kind, name, p)
	g.nodes[n.Index] = n
	g.byName[name] = n.Index
	g.next++
	g.stale = true
	return n, nil
}

// Remove deletes node i and disconnects every slot that read from it. It
// returns the indices of the affected consumers.
func (g *Graph) Remove(i int) ([]int, error) {
	n, ok := g.nodes[i]
	if !ok {
		return nil, fmt.Errorf("node %d: %w", i, ErrUnknownNode)
	}
	consumers := g.Consumers(i)
	for _, c := range consumers {
		cn := g.nodes[c]
		for slot, src := range cn.Inputs {
			if src == i {
				cn.Inputs[slot] = node.NoInput
			}
		}
	}
	delete(g.nodes, i)
	delete(g.byName, n.Name)
	g.stale = true
	return consumers, nil
}

// Connect feeds input slot of dst from src. A connection that would close a
// cycle is rolled back and reported as ErrCycle.
func (g *Graph) Connect(dst, slot, src int) error {
	dn, ok := g.nodes[dst]
	if !ok {
		return fmt.Errorf("node %d: %w", dst, ErrUnknownNode)
	}
	if _, ok := g.nodes[src]; !ok {
		return fmt.Errorf("node %d: %w", src, ErrUnknownNode)
	}
	if slot < 0 || slot >= len(dn.Inputs) {
		return fmt.Errorf("%s slot %d: %w", dn, slot, ErrSlot)
	}

	prev := dn.Inputs[slot]
	dn.Inputs[slot] = src
	if err := g.DetectCycles(); err != nil {
		dn.Inputs[slot] = prev
		return err
	}
	g.stale = true
	return nil
}

// Disconnect clears input slot of dst.
func (g *Graph) Disconnect(dst, slot int) error {
	dn, ok := g.nodes[dst]
	if !ok {
		return fmt.Errorf("node %d: %w", dst, ErrUnknownNode)
	}
	if slot < 0 || slot >= len(dn.Inputs) {
		return fmt.Errorf("%s slot %d: %w", dn, slot, ErrSlot)
	}
	dn.Inputs[slot] = node.NoInput
	g.stale = true
	return nil
}

// Node returns node i.
func (g *Graph) Node(i int) (*node.Node, bool) {
	n, ok := g.nodes[i]
	return n, ok
}

// Lookup returns the node with the given name.
func (g *Graph) Lookup(name string) (*node.Node, bool) {
	i, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// Len is the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns every node ordered by index.
func (g *Graph) Nodes() []*node.Node {
	out := make([]*node.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Index < out[b].Index })
	return out
}

// Consumers returns the nodes that read i through any slot, ordered by index.
func (g *Graph) Consumers(i int) []int {
	var out []int
	for _, n := range g.nodes {
		for _, src := range n.Inputs {
			if src == i {
				out = append(out, n.Index)
				break
			}
		}
	}
	sort.Ints(out)
	return out
}

// DetectCycles checks the graph for any cycles. It returns a non-nil error
// naming the first node found on a cycle.
func (g *Graph) DetectCycles() error {
	// Classic depth-first search with three colors.
	permanent := make(map[int]bool)
	temporary := make(map[int]bool)

	var visit func(n *node.Node) error
	visit = func(n *node.Node) error {
		if permanent[n.Index] {
			return nil
		}
		if temporary[n.Index] {
			return fmt.Errorf("%w involving node '%s'", ErrCycle, n.Name)
		}
		temporary[n.Index] = true
		for _, src := range n.Inputs {
			if dep, ok := g.nodes[src]; ok {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(temporary, n.Index)
		permanent[n.Index] = true
		return nil
	}

	for _, n := range g.Nodes() {
		if !permanent[n.Index] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// Order returns the node indices in dependency order. Ties are broken by
// index so the order is deterministic.
func (g *Graph) Order() ([]int, error) {
	if !g.stale && g.order != nil {
		return g.order, nil
	}

	indegree := make(map[int]int, len(g.nodes))
	for i, n := range g.nodes {
		if _, ok := indegree[i]; !ok {
			indegree[i] = 0
		}
		for _, src := range uniqueSources(n) {
			if _, ok := g.nodes[src]; ok {
				indegree[i]++
			}
		}
	}

	var ready []int
	for i, d := range indegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}
	sort.Ints(ready)

	order := make([]int, 0, len(g.nodes))
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		order = append(order, i)
		for _, c := range g.Consumers(i) {
			indegree[c]--
			if indegree[c] == 0 {
				ready = insertSorted(ready, c)
			}
		}
	}
	if len(order) != len(g.nodes) {
		return nil, g.DetectCycles()
	}

	g.order = order
	g.stale = false
	return order, nil
}

// Depths returns, per node, the length of the longest path from a source
// node. Sources have depth 0.
func (g *Graph) Depths() (map[int]int, error) {
	order, err := g.Order()
	if err != nil {
		return nil, err
	}
	depth := make(map[int]int, len(order))
	for _, i := range order {
		d := 0
		for _, src := range g.nodes[i].Inputs {
			if sd, ok := depth[src]; ok && sd+1 > d {
				d = sd + 1
			}
		}
		depth[i] = d
	}
	return depth, nil
}

func uniqueSources(n *node.Node) []int {
	seen := make(map[int]bool, len(n.Inputs))
	var out []int
	for _, src := range n.Inputs {
		if src >= 0 && !seen[src] {
			seen[src] = true
			out = append(out, src)
		}
	}
	return out
}

func insertSorted(s []int, v int) []int {
	i := sort.SearchInts(s, v)
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
