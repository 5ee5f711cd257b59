package komposition

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
)

// Wire shapes for the canonical JSON document.

type metadataDoc struct {
	BPM             float64 `json:"bpm"`
	BeatsPerMeasure int     `json:"beatsPerMeasure"`
	TotalBeats      int     `json:"totalBeats"`
	Resolution      string  `json:"resolution"`
	RenderStartBeat float64 `json:"renderStartBeat"`
	RenderEndBeat   float64 `json:"renderEndBeat"`
}

type segmentEffectDoc struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

type segmentDoc struct {
	ID        string             `json:"id"`
	StartBeat float64            `json:"startBeat"`
	EndBeat   float64            `json:"endBeat"`
	SourceRef string             `json:"sourceRef"`
	Operation string             `json:"operation"`
	Params    map[string]any     `json:"params,omitempty"`
	Effects   []segmentEffectDoc `json:"effects,omitempty"`
}

type treeNodeDoc struct {
	ID         string         `json:"id,omitempty"`
	Type       string         `json:"type"`
	Segment    string         `json:"segment,omitempty"`
	Children   []*treeNodeDoc `json:"children,omitempty"`
	Duration   float64        `json:"duration,omitempty"`
	Between    []string       `json:"between,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type effectsTreeDoc struct {
	Root *treeNodeDoc `json:"root"`
}

type document struct {
	Metadata    metadataDoc       `json:"metadata"`
	Sources     map[string]string `json:"sources"`
	Segments    []segmentDoc      `json:"segments"`
	EffectsTree *effectsTreeDoc   `json:"effects_tree"`
}

// ParseJSON decodes the canonical JSON document form. Shape problems are
// reported as a ValidationError naming the offending field path; the
// returned Komposition has NOT yet passed structural validation.
func ParseJSON(data []byte) (*Komposition, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ValidationError{Violations: []Violation{{
			Path:    "$",
			Message: fmt.Sprintf("malformed JSON: %v", err),
		}}}
	}
	return fromDocument(&doc)
}

func fromDocument(doc *document) (*Komposition, error) {
	k := &Komposition{
		BPM:             doc.Metadata.BPM,
		BeatsPerMeasure: doc.Metadata.BeatsPerMeasure,
		TotalBeats:      doc.Metadata.TotalBeats,
		RenderRange: BeatRange{
			StartBeat: doc.Metadata.RenderStartBeat,
			EndBeat:   doc.Metadata.RenderEndBeat,
		},
		Sources: doc.Sources,
	}

	if doc.Metadata.Resolution != "" {
		res, err := ParseResolution(doc.Metadata.Resolution)
		if err != nil {
			return nil, &ValidationError{Violations: []Violation{{
				Path:    "metadata.resolution",
				Message: err.Error(),
			}}}
		}
		k.Resolution = res
	}

	for _, seg := range doc.Segments {
		effects := make([]SegmentEffect, 0, len(seg.Effects))
		for _, fx := range seg.Effects {
			effects = append(effects, SegmentEffect{Type: fx.Type, Params: fx.Params})
		}
		k.Segments = append(k.Segments, Segment{
			ID:        seg.ID,
			StartBeat: seg.StartBeat,
			EndBeat:   seg.EndBeat,
			SourceRef: seg.SourceRef,
			Operation: seg.Operation,
			Params:    seg.Params,
			Effects:   effects,
		})
	}

	if doc.EffectsTree != nil && doc.EffectsTree.Root != nil {
		k.EffectsTree = fromTreeDoc(doc.EffectsTree.Root)
	}
	return k, nil
}

func fromTreeDoc(doc *treeNodeDoc) *TreeNode {
	node := &TreeNode{
		ID:       doc.ID,
		Duration: doc.Duration,
		Between:  doc.Between,
		Params:   doc.Parameters,
	}
	switch doc.Type {
	case "segment", "leaf":
		node.Kind = KindLeaf
		node.SegmentID = doc.Segment
	case "sequence":
		node.Kind = KindSequence
	default:
		// Any other type is a transition; the validator decides whether the
		// catalog knows it.
		node.Kind = KindTransition
		node.Type = doc.Type
	}
	for _, child := range doc.Children {
		node.Children = append(node.Children, fromTreeDoc(child))
	}
	return node
}

func toTreeDoc(n *TreeNode) *treeNodeDoc {
	if n == nil {
		return nil
	}
	doc := &treeNodeDoc{
		ID:         n.ID,
		Segment:    n.SegmentID,
		Duration:   n.Duration,
		Between:    n.Between,
		Parameters: n.Params,
	}
	switch n.Kind {
	case KindLeaf:
		doc.Type = "segment"
	case KindSequence:
		doc.Type = "sequence"
	case KindTransition:
		doc.Type = n.Type
	}
	for _, child := range n.Children {
		doc.Children = append(doc.Children, toTreeDoc(child))
	}
	return doc
}

// MarshalJSON emits the wire shape of the node so plans and fingerprints
// stay aligned with the input document format.
func (n *TreeNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(toTreeDoc(n))
}

// UnmarshalJSON decodes the wire shape of a tree node.
func (n *TreeNode) UnmarshalJSON(data []byte) error {
	var doc treeNodeDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*n = *fromTreeDoc(&doc)
	return nil
}

// ParseResolution parses "WIDTHxHEIGHT" (e.g. "1920x1080").
func ParseResolution(s string) (Resolution, error) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(s)), "x", 2)
	if len(parts) != 2 {
		return Resolution{}, fmt.Errorf("resolution must be WIDTHxHEIGHT, got %q", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return Resolution{}, fmt.Errorf("resolution width %q is not an integer", parts[0])
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return Resolution{}, fmt.Errorf("resolution height %q is not an integer", parts[1])
	}
	if w <= 0 || h <= 0 {
		return Resolution{}, fmt.Errorf("resolution dimensions must be positive, got %q", s)
	}
	return Resolution{Width: w, Height: h}, nil
}

// Fingerprint returns a deterministic blake3 identity for the document.
// The same document always fingerprints the same; any change to timing,
// segments, sources, or the effects tree changes it.
func (k *Komposition) Fingerprint() (string, error) {
	body, err := json.Marshal(k)
	if err != nil {
		return "", fmt.Errorf("marshal komposition fingerprint input: %w", err)
	}
	sum := blake3.Sum256(body)
	return "blake3:" + hex.EncodeToString(sum[:]), nil
}
