// Package graph builds the directed acyclic dependency graph connecting
// source, intermediate, and final artifacts. Nodes live in a flat table
// keyed by deterministic blake3 content identities, so identical work
// always maps to the same node and an external cache can reuse results
// across compilations.
package graph

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/zeebo/blake3"
)

// NodeKind classifies a node's role in the build.
type NodeKind string

const (
	// KindSource maps 1:1 to an entry in the komposition's sources.
	KindSource NodeKind = "source"
	// KindIntermediate is the output of one extraction or effect.
	KindIntermediate NodeKind = "intermediate"
	// KindFinal is the terminal composed output.
	KindFinal NodeKind = "final"
)

// Node is one vertex in the build graph.
type Node struct {
	ID        string         `json:"id"`
	Kind      NodeKind       `json:"kind"`
	Identity  string         `json:"identity"`
	Operation string         `json:"operation,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Inputs    []string       `json:"inputs,omitempty"`
	SegmentID string         `json:"segment_id,omitempty"`
	SourceRef string         `json:"source_ref,omitempty"`
}

// Edge is a directed dependency: To consumes From's output via Operation.
type Edge struct {
	From      string         `json:"from"`
	To        string         `json:"to"`
	Operation string         `json:"operation"`
	Params    map[string]any `json:"params,omitempty"`
}

// UnresolvedReferenceError reports a reference to a segment, source, or
// node that does not exist (or has not been constructed yet).
type UnresolvedReferenceError struct {
	Ref     string
	Context string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference %q in %s", e.Ref, e.Context)
}

// Graph is the flat node/edge table. Construction is single-threaded and
// append-only; a fully built graph is safe for concurrent reads.
type Graph struct {
	nodes    map[string]*Node
	order    []string // node ids in construction order
	identity map[string]string
	edges    []Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		identity: make(map[string]string),
	}
}

// AddSource adds (or returns the existing) source node for a named source.
func (g *Graph) AddSource(name, ref string) string {
	identity := contentIdentity("source", map[string]any{"ref": ref}, nil)
	if id, ok := g.identity[identity]; ok {
		return id
	}
	id := "source_" + name
	g.insert(&Node{
		ID:        id,
		Kind:      KindSource,
		Identity:  identity,
		SourceRef: ref,
	})
	return id
}

// AddIntermediate adds a node computed from the given inputs by operation.
// The node identity derives from the input identities, the operation, and
// its parameters: identical work always yields the identical node, which
// is reused rather than duplicated. The returned bool reports reuse.
func (g *Graph) AddIntermediate(prefix, operation string, params map[string]any, inputs ...string) (string, bool, error) {
	identities, err := g.inputIdentities(operation, inputs)
	if err != nil {
		return "", false, err
	}

	identity := contentIdentity(operation, params, identities)
	if id, ok := g.identity[identity]; ok {
		return id, true, nil
	}

	id := fmt.Sprintf("%s_%s", prefix, shortIdentity(identity))
	g.insert(&Node{
		ID:        id,
		Kind:      KindIntermediate,
		Identity:  identity,
		Operation: operation,
		Params:    params,
		Inputs:    append([]string(nil), inputs...),
	})
	for _, input := range inputs {
		g.edges = append(g.edges, Edge{From: input, To: id, Operation: operation, Params: params})
	}
	return id, false, nil
}

// AddFinal adds the terminal composed node. There is exactly one per
// graph; its id is fixed so the execution layer can find it.
func (g *Graph) AddFinal(operation string, params map[string]any, inputs ...string) (string, error) {
	identities, err := g.inputIdentities(operation, inputs)
	if err != nil {
		return "", err
	}

	const id = "final_composition"
	g.insert(&Node{
		ID:        id,
		Kind:      KindFinal,
		Identity:  contentIdentity(operation, params, identities),
		Operation: operation,
		Params:    params,
		Inputs:    append([]string(nil), inputs...),
	})
	for _, input := range inputs {
		g.edges = append(g.edges, Edge{From: input, To: id, Operation: operation, Params: params})
	}
	return id, nil
}

func (g *Graph) inputIdentities(operation string, inputs []string) ([]string, error) {
	identities := make([]string, 0, len(inputs))
	for _, input := range inputs {
		node, ok := g.nodes[input]
		if !ok {
			return nil, &UnresolvedReferenceError{Ref: input, Context: "operation " + operation}
		}
		identities = append(identities, node.Identity)
	}
	return identities, nil
}

func (g *Graph) insert(n *Node) {
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
	g.identity[n.Identity] = n.ID
}

// SetSegment annotates a node with the segment it extracts.
func (g *Graph) SetSegment(nodeID, segmentID string) {
	if n, ok := g.nodes[nodeID]; ok {
		n.SegmentID = segmentID
	}
}

// Has reports whether a node with the given id exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns all nodes in construction order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Edges returns all edges, sorted for deterministic output.
func (g *Graph) Edges() []Edge {
	out := append([]Edge(nil), g.edges...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].From == out[j].From {
			return out[i].To < out[j].To
		}
		return out[i].From < out[j].From
	})
	return out
}

// Len returns the node count.
func (g *Graph) Len() int {
	return len(g.order)
}

// TopoSort returns the node ids in a dependency-respecting order using
// Kahn's algorithm. Ties between independent nodes break by construction
// order, which follows first appearance in the source document. An error
// means the graph contains a cycle, which a correctly built graph cannot.
func (g *Graph) TopoSort() ([]string, error) {
	indexOf := make(map[string]int, len(g.order))
	for i, id := range g.order {
		indexOf[id] = i
	}

	inDegree := make(map[string]int, len(g.nodes))
	adj := make(map[string][]string, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = 0
	}
	for _, edge := range g.edges {
		adj[edge.From] = append(adj[edge.From], edge.To)
		inDegree[edge.To]++
	}

	var ready []string
	for _, id := range g.order {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	out := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return indexOf[ready[i]] < indexOf[ready[j]] })
		id := ready[0]
		ready = ready[1:]
		out = append(out, id)

		for _, next := range adj[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(out) != len(g.nodes) {
		return nil, fmt.Errorf("dependency graph contains a cycle (%d of %d nodes ordered)", len(out), len(g.nodes))
	}
	return out, nil
}

// contentIdentity hashes an operation, its parameters, and its input
// identities into a stable identifier. JSON marshaling sorts map keys, so
// equal parameter sets always hash equal.
func contentIdentity(operation string, params map[string]any, inputIdentities []string) string {
	shape := struct {
		Operation string         `json:"operation"`
		Params    map[string]any `json:"params,omitempty"`
		Inputs    []string       `json:"inputs,omitempty"`
	}{
		Operation: operation,
		Params:    params,
		Inputs:    inputIdentities,
	}
	body, err := json.Marshal(shape)
	if err != nil {
		// Parameters come from decoded JSON/YAML/HCL documents, which are
		// always re-marshalable.
		panic(fmt.Sprintf("graph: identity marshal: %v", err))
	}
	sum := blake3.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func shortIdentity(identity string) string {
	if len(identity) > 10 {
		return identity[:10]
	}
	return identity
}
