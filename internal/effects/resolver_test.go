package effects

import (
	"errors"
	"testing"

	"github.com/mattjoyce/kompozer/internal/graph"
	"github.com/mattjoyce/kompozer/internal/komposition"
)

func threeSegmentKomposition() *komposition.Komposition {
	return &komposition.Komposition{
		BPM:        120,
		TotalBeats: 48,
		Sources:    map[string]string{"intro": "file123", "outro": "file456"},
		Segments: []komposition.Segment{
			{ID: "seg1", StartBeat: 0, EndBeat: 16, SourceRef: "intro", Operation: "trim"},
			{ID: "seg2", StartBeat: 16, EndBeat: 32, SourceRef: "intro", Operation: "trim"},
			{ID: "seg3", StartBeat: 32, EndBeat: 48, SourceRef: "outro", Operation: "trim"},
		},
		EffectsTree: &komposition.TreeNode{
			Kind: komposition.KindSequence,
			Children: []*komposition.TreeNode{
				{
					Kind:     komposition.KindTransition,
					Type:     "crossfade_transition",
					Duration: 1.0,
					Between:  []string{"seg1", "seg2"},
					Children: []*komposition.TreeNode{
						{Kind: komposition.KindLeaf, SegmentID: "seg1"},
						{Kind: komposition.KindLeaf, SegmentID: "seg2"},
					},
				},
				{Kind: komposition.KindLeaf, SegmentID: "seg3"},
			},
		},
	}
}

func TestResolveCrossfadeScenario(t *testing.T) {
	k := threeSegmentKomposition()
	g, segmentNodes, err := graph.Build(k)
	if err != nil {
		t.Fatalf("graph.Build() error = %v", err)
	}

	order, finalID, err := Resolve(g, k, segmentNodes)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// 3 extractions + 1 transition + 1 final composition.
	if len(order) != 5 {
		t.Fatalf("execution order = %v, want 5 entries", order)
	}
	if finalID != "final_composition" {
		t.Fatalf("final id = %q, want final_composition", finalID)
	}
	if order[len(order)-1] != "final_composition" {
		t.Fatalf("final composition is not last in %v", order)
	}

	// Post-order: both transition inputs come before the transition node.
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	transitionID := order[2]
	node, ok := g.Node(transitionID)
	if !ok || node.Operation != "crossfade_transition" {
		t.Fatalf("order[2] = %+v, want the crossfade node", node)
	}
	for _, input := range node.Inputs {
		if pos[input] >= pos[transitionID] {
			t.Fatalf("input %s not placed before transition in %v", input, order)
		}
	}
	if node.Params["duration"] != 1.0 {
		t.Fatalf("transition duration param = %v, want 1.0", node.Params["duration"])
	}

	// The flattened order must itself be topologically valid.
	for _, edge := range g.Edges() {
		fromPos, fromSeen := pos[edge.From]
		toPos, toSeen := pos[edge.To]
		if fromSeen && toSeen && fromPos >= toPos {
			t.Fatalf("edge %s -> %s violated by flattened order %v", edge.From, edge.To, order)
		}
	}
}

func TestResolveLeafEffectChain(t *testing.T) {
	k := &komposition.Komposition{
		BPM:        120,
		TotalBeats: 16,
		Sources:    map[string]string{"clip": "file123"},
		Segments: []komposition.Segment{
			{
				ID: "seg1", StartBeat: 0, EndBeat: 16, SourceRef: "clip", Operation: "trim",
				Effects: []komposition.SegmentEffect{
					{Type: "fade_in", Params: map[string]any{"duration": 0.5}},
					{Type: "brightness", Params: map[string]any{"level": 1.2}},
				},
			},
		},
		EffectsTree: &komposition.TreeNode{Kind: komposition.KindLeaf, SegmentID: "seg1"},
	}

	g, segmentNodes, err := graph.Build(k)
	if err != nil {
		t.Fatalf("graph.Build() error = %v", err)
	}
	order, _, err := Resolve(g, k, segmentNodes)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// extraction + fade_in + brightness + final.
	if len(order) != 4 {
		t.Fatalf("execution order = %v, want 4 entries", order)
	}
	fadeNode, _ := g.Node(order[1])
	if fadeNode.Operation != "fade_in" {
		t.Fatalf("order[1] operation = %q, want fade_in (declared order)", fadeNode.Operation)
	}
	brightNode, _ := g.Node(order[2])
	if brightNode.Operation != "brightness" {
		t.Fatalf("order[2] operation = %q, want brightness", brightNode.Operation)
	}
	if brightNode.Inputs[0] != order[1] {
		t.Fatalf("brightness input = %v, want chained from fade_in node %s", brightNode.Inputs, order[1])
	}
}

func TestResolveForwardBetweenReferenceFails(t *testing.T) {
	k := threeSegmentKomposition()
	// Reference a named node that only appears later in the document.
	k.EffectsTree.Children[0].Between = []string{"seg1", "tail"}
	k.EffectsTree.Children[1].ID = "tail"

	g, segmentNodes, err := graph.Build(k)
	if err != nil {
		t.Fatalf("graph.Build() error = %v", err)
	}
	_, _, err = Resolve(g, k, segmentNodes)

	var rErr *graph.UnresolvedReferenceError
	if !errors.As(err, &rErr) {
		t.Fatalf("error = %T(%v), want *UnresolvedReferenceError", err, err)
	}
	if rErr.Ref != "tail" {
		t.Fatalf("unresolved ref = %q, want tail", rErr.Ref)
	}
}

func TestResolveBackwardNamedReferenceSucceeds(t *testing.T) {
	k := threeSegmentKomposition()
	// Name the transition, then bridge it with seg3 in a later transition.
	k.EffectsTree.Children[0].ID = "head"
	k.EffectsTree = &komposition.TreeNode{
		Kind:     komposition.KindTransition,
		Type:     "opacity_transition",
		Duration: 0.5,
		Between:  []string{"head", "seg3"},
		Children: []*komposition.TreeNode{
			k.EffectsTree.Children[0],
			{Kind: komposition.KindLeaf, SegmentID: "seg3"},
		},
	}

	g, segmentNodes, err := graph.Build(k)
	if err != nil {
		t.Fatalf("graph.Build() error = %v", err)
	}
	order, finalID, err := Resolve(g, k, segmentNodes)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if finalID != "final_composition" {
		t.Fatalf("final id = %q", finalID)
	}
	// 3 extractions + crossfade + final opacity transition.
	if len(order) != 5 {
		t.Fatalf("execution order = %v, want 5 entries", order)
	}
}

func TestResolveDeterministicOrder(t *testing.T) {
	run := func() []string {
		k := threeSegmentKomposition()
		g, segmentNodes, err := graph.Build(k)
		if err != nil {
			t.Fatalf("graph.Build() error = %v", err)
		}
		order, _, err := Resolve(g, k, segmentNodes)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		return order
	}

	first := run()
	second := run()
	if len(first) != len(second) {
		t.Fatalf("order lengths differ: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("order differs at %d: %q vs %q", i, first[i], second[i])
		}
	}
}
