// Package komposition models the declarative input document describing a
// beat-indexed video composition, loads it from JSON, YAML, or HCL, and
// validates it against the planner's structural invariants.
package komposition

import (
	"fmt"
)

// Resolution is the output frame size.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// BeatRange is a half-open beat interval [StartBeat, EndBeat).
type BeatRange struct {
	StartBeat float64 `json:"start_beat"`
	EndBeat   float64 `json:"end_beat"`
}

// SegmentEffect is one effect applied to a single segment's extracted clip.
type SegmentEffect struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// Segment is one timeline slice of the komposition.
type Segment struct {
	ID        string          `json:"id"`
	StartBeat float64         `json:"startBeat"`
	EndBeat   float64         `json:"endBeat"`
	SourceRef string          `json:"sourceRef"`
	Operation string          `json:"operation"`
	Params    map[string]any  `json:"params,omitempty"`
	Effects   []SegmentEffect `json:"effects,omitempty"`
}

// Beats returns the length of the segment in beats.
func (s Segment) Beats() float64 {
	return s.EndBeat - s.StartBeat
}

// NodeKind discriminates the closed set of effect-tree variants.
type NodeKind string

const (
	// KindLeaf references exactly one segment.
	KindLeaf NodeKind = "leaf"
	// KindSequence plays its children one after another.
	KindSequence NodeKind = "sequence"
	// KindTransition combines the outputs of exactly two children.
	KindTransition NodeKind = "transition"
)

// TreeNode is one node of the effects tree. The tree is rooted and acyclic
// by construction: nodes own their children, no back-references exist.
type TreeNode struct {
	Kind NodeKind
	// ID optionally names the node so transitions can reference it.
	ID string
	// SegmentID is set for KindLeaf.
	SegmentID string
	// Type is the effect type for KindTransition ("crossfade_transition",
	// "opacity_transition", ...). Empty for leaf and sequence nodes.
	Type string
	// Children holds ordered children for KindSequence, exactly two for
	// KindTransition, none for KindLeaf.
	Children []*TreeNode
	// Duration is the transition overlap in seconds (KindTransition only).
	Duration float64
	// Between names the two segment or node ids a transition bridges.
	Between []string
	// Params are taken verbatim from the document. No inheritance from
	// parent nodes occurs; every node is fully self-describing.
	Params map[string]any
}

// Walk visits the node and all descendants depth-first, children in
// declared order.
func (n *TreeNode) Walk(fn func(*TreeNode)) {
	if n == nil {
		return
	}
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// Komposition is the validated input document. Treat values as immutable
// once Validate has accepted the document.
type Komposition struct {
	BPM             float64           `json:"bpm"`
	BeatsPerMeasure int               `json:"beatsPerMeasure"`
	TotalBeats      int               `json:"totalBeats"`
	Resolution      Resolution        `json:"resolution"`
	RenderRange     BeatRange         `json:"renderRange"`
	Sources         map[string]string `json:"sources"`
	Segments        []Segment         `json:"segments"`
	EffectsTree     *TreeNode         `json:"effectsTree"`
}

// SegmentByID returns the segment with the given id, if present.
func (k *Komposition) SegmentByID(id string) (Segment, bool) {
	for _, seg := range k.Segments {
		if seg.ID == id {
			return seg, true
		}
	}
	return Segment{}, false
}
