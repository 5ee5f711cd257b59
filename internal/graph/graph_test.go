package graph

import (
	"testing"

	"github.com/mattjoyce/kompozer/internal/komposition"
)

func TestAddIntermediateDeduplicatesIdenticalWork(t *testing.T) {
	g := New()
	src := g.AddSource("intro", "file123")

	params := map[string]any{"start_beat": 0.0, "end_beat": 16.0}
	first, reused, err := g.AddIntermediate("extract", "trim", params, src)
	if err != nil {
		t.Fatalf("AddIntermediate() error = %v", err)
	}
	if reused {
		t.Fatalf("first insertion reported reuse")
	}

	second, reused, err := g.AddIntermediate("extract", "trim", params, src)
	if err != nil {
		t.Fatalf("AddIntermediate() error = %v", err)
	}
	if !reused {
		t.Fatalf("identical inputs and operation did not reuse node")
	}
	if first != second {
		t.Fatalf("reused node id = %q, want %q", second, first)
	}
	if g.Len() != 2 {
		t.Fatalf("node count = %d, want 2 (source + one extraction)", g.Len())
	}
}

func TestAddIntermediateDistinguishesParams(t *testing.T) {
	g := New()
	src := g.AddSource("intro", "file123")

	a, _, err := g.AddIntermediate("extract", "trim", map[string]any{"start_beat": 0.0, "end_beat": 16.0}, src)
	if err != nil {
		t.Fatalf("AddIntermediate() error = %v", err)
	}
	b, _, err := g.AddIntermediate("extract", "trim", map[string]any{"start_beat": 16.0, "end_beat": 32.0}, src)
	if err != nil {
		t.Fatalf("AddIntermediate() error = %v", err)
	}
	if a == b {
		t.Fatalf("different beat windows collapsed into one node %q", a)
	}
}

func TestAddIntermediateUnknownInput(t *testing.T) {
	g := New()
	_, _, err := g.AddIntermediate("effect", "crossfade_transition", nil, "ghost")
	if _, ok := err.(*UnresolvedReferenceError); !ok {
		t.Fatalf("error = %T(%v), want *UnresolvedReferenceError", err, err)
	}
}

func TestIdentityDeterministicAcrossBuilds(t *testing.T) {
	build := func() []Node {
		g := New()
		src := g.AddSource("intro", "file123")
		ex, _, err := g.AddIntermediate("extract", "trim",
			map[string]any{"start_beat": 0.0, "end_beat": 16.0, "nested": map[string]any{"a": 1.0, "b": "x"}}, src)
		if err != nil {
			t.Fatalf("AddIntermediate() error = %v", err)
		}
		if _, _, err := g.AddIntermediate("effect", "fade_in", map[string]any{"duration": 0.5}, ex); err != nil {
			t.Fatalf("AddIntermediate() error = %v", err)
		}
		return g.Nodes()
	}

	first := build()
	second := build()
	if len(first) != len(second) {
		t.Fatalf("node counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Identity != second[i].Identity {
			t.Fatalf("node %d identity differs across builds: %q vs %q", i, first[i].Identity, second[i].Identity)
		}
		if first[i].ID != second[i].ID {
			t.Fatalf("node %d id differs across builds: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
}

func TestTopoSortRespectsDependencies(t *testing.T) {
	g := New()
	src := g.AddSource("intro", "file123")
	a, _, _ := g.AddIntermediate("extract", "trim", map[string]any{"start_beat": 0.0, "end_beat": 16.0}, src)
	b, _, _ := g.AddIntermediate("extract", "trim", map[string]any{"start_beat": 16.0, "end_beat": 32.0}, src)
	fx, _, err := g.AddIntermediate("effect", "crossfade_transition", map[string]any{"duration": 1.0}, a, b)
	if err != nil {
		t.Fatalf("AddIntermediate() error = %v", err)
	}
	final, err := g.AddFinal("compose", nil, fx)
	if err != nil {
		t.Fatalf("AddFinal() error = %v", err)
	}

	order, err := g.TopoSort()
	if err != nil {
		t.Fatalf("TopoSort() error = %v", err)
	}

	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}
	for _, edge := range g.Edges() {
		if position[edge.From] >= position[edge.To] {
			t.Fatalf("edge %s -> %s violated by order %v", edge.From, edge.To, order)
		}
	}
	if order[len(order)-1] != final {
		t.Fatalf("final node %q is not last in %v", final, order)
	}
}

func TestBuildFromKomposition(t *testing.T) {
	k := &komposition.Komposition{
		BPM:        120,
		TotalBeats: 48,
		Sources:    map[string]string{"intro": "file123", "outro": "file456"},
		Segments: []komposition.Segment{
			{ID: "seg1", StartBeat: 0, EndBeat: 16, SourceRef: "intro", Operation: "trim"},
			{ID: "seg2", StartBeat: 16, EndBeat: 32, SourceRef: "intro", Operation: "smart_cut"},
			{ID: "seg3", StartBeat: 32, EndBeat: 48, SourceRef: "outro", Operation: "trim"},
		},
	}

	g, segmentNodes, err := Build(k)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// 2 sources + 3 extractions.
	if g.Len() != 5 {
		t.Fatalf("node count = %d, want 5", g.Len())
	}
	for _, seg := range k.Segments {
		nodeID, ok := segmentNodes[seg.ID]
		if !ok {
			t.Fatalf("no node mapped for segment %s", seg.ID)
		}
		node, ok := g.Node(nodeID)
		if !ok {
			t.Fatalf("mapped node %q missing from graph", nodeID)
		}
		if node.SegmentID != seg.ID {
			t.Fatalf("node %q segment = %q, want %q", nodeID, node.SegmentID, seg.ID)
		}
	}

	// Rebuilding yields identical identities (plan-level caching contract).
	g2, _, err := Build(k)
	if err != nil {
		t.Fatalf("Build() second run error = %v", err)
	}
	n1, n2 := g.Nodes(), g2.Nodes()
	for i := range n1 {
		if n1[i].Identity != n2[i].Identity {
			t.Fatalf("identity drift at node %d: %q vs %q", i, n1[i].Identity, n2[i].Identity)
		}
	}
}
