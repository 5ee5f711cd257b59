package komposition

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// HCL front-end. A komposition may be authored as an HCL document:
//
//	komposition {
//	  bpm               = 120
//	  beats_per_measure = 4
//	  total_beats       = 48
//	  resolution        = "1920x1080"
//	  render_range { start_beat = 0  end_beat = 48 }
//	  source "intro" { ref = "file123" }
//	  segment "seg1" {
//	    start_beat = 0
//	    end_beat   = 16
//	    source     = "intro"
//	    operation  = "trim"
//	  }
//	  effects_tree {
//	    node { type = "segment"  segment = "seg1" }
//	  }
//	}

type hclEffect struct {
	Type   string     `hcl:"effect_type,label"`
	Params *cty.Value `hcl:"params,optional"`
}

type hclSegment struct {
	Name      string      `hcl:"name,label"`
	StartBeat float64     `hcl:"start_beat"`
	EndBeat   float64     `hcl:"end_beat"`
	Source    string      `hcl:"source"`
	Operation string      `hcl:"operation"`
	Params    *cty.Value  `hcl:"params,optional"`
	Effects   []hclEffect `hcl:"effect,block"`
}

type hclSource struct {
	Name string `hcl:"name,label"`
	Ref  string `hcl:"ref"`
}

type hclRenderRange struct {
	StartBeat float64 `hcl:"start_beat"`
	EndBeat   float64 `hcl:"end_beat"`
}

type hclNode struct {
	ID       string     `hcl:"id,optional"`
	Type     string     `hcl:"type"`
	Segment  string     `hcl:"segment,optional"`
	Duration float64    `hcl:"duration,optional"`
	Between  []string   `hcl:"between,optional"`
	Params   *cty.Value `hcl:"params,optional"`
	Nodes    []*hclNode `hcl:"node,block"`
}

type hclEffectsTree struct {
	Root *hclNode `hcl:"node,block"`
}

type hclKomposition struct {
	BPM             float64         `hcl:"bpm"`
	BeatsPerMeasure int             `hcl:"beats_per_measure"`
	TotalBeats      int             `hcl:"total_beats"`
	Resolution      string          `hcl:"resolution"`
	RenderRange     *hclRenderRange `hcl:"render_range,block"`
	Sources         []hclSource     `hcl:"source,block"`
	Segments        []hclSegment    `hcl:"segment,block"`
	EffectsTree     *hclEffectsTree `hcl:"effects_tree,block"`
}

type hclFile struct {
	Komposition *hclKomposition `hcl:"komposition,block"`
}

// ParseHCL decodes the HCL form of the document. The filename is used only
// for diagnostics.
func ParseHCL(filename string, data []byte) (*Komposition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, &ValidationError{Violations: diagViolations(diags)}
	}

	var root hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, &ValidationError{Violations: diagViolations(diags)}
	}
	if root.Komposition == nil {
		return nil, &ValidationError{Violations: []Violation{{
			Path:    "$",
			Message: "komposition block is required",
		}}}
	}
	return fromHCL(root.Komposition)
}

func diagViolations(diags hcl.Diagnostics) []Violation {
	out := make([]Violation, 0, len(diags))
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		path := "$"
		if d.Subject != nil {
			path = d.Subject.String()
		}
		out = append(out, Violation{Path: path, Message: d.Summary + ": " + d.Detail})
	}
	return out
}

func fromHCL(doc *hclKomposition) (*Komposition, error) {
	k := &Komposition{
		BPM:             doc.BPM,
		BeatsPerMeasure: doc.BeatsPerMeasure,
		TotalBeats:      doc.TotalBeats,
		Sources:         make(map[string]string, len(doc.Sources)),
	}

	if doc.Resolution != "" {
		res, err := ParseResolution(doc.Resolution)
		if err != nil {
			return nil, &ValidationError{Violations: []Violation{{
				Path:    "komposition.resolution",
				Message: err.Error(),
			}}}
		}
		k.Resolution = res
	}
	if doc.RenderRange != nil {
		k.RenderRange = BeatRange{StartBeat: doc.RenderRange.StartBeat, EndBeat: doc.RenderRange.EndBeat}
	}
	for _, src := range doc.Sources {
		k.Sources[src.Name] = src.Ref
	}

	for i, seg := range doc.Segments {
		params, err := ctyParams(seg.Params)
		if err != nil {
			return nil, &ValidationError{Violations: []Violation{{
				Path:    fmt.Sprintf("komposition.segment[%d].params", i),
				Message: err.Error(),
			}}}
		}
		effects := make([]SegmentEffect, 0, len(seg.Effects))
		for j, fx := range seg.Effects {
			fxParams, err := ctyParams(fx.Params)
			if err != nil {
				return nil, &ValidationError{Violations: []Violation{{
					Path:    fmt.Sprintf("komposition.segment[%d].effect[%d].params", i, j),
					Message: err.Error(),
				}}}
			}
			effects = append(effects, SegmentEffect{Type: fx.Type, Params: fxParams})
		}
		k.Segments = append(k.Segments, Segment{
			ID:        seg.Name,
			StartBeat: seg.StartBeat,
			EndBeat:   seg.EndBeat,
			SourceRef: seg.Source,
			Operation: seg.Operation,
			Params:    params,
			Effects:   effects,
		})
	}

	if doc.EffectsTree != nil && doc.EffectsTree.Root != nil {
		root, err := treeFromHCL(doc.EffectsTree.Root, "komposition.effects_tree.node")
		if err != nil {
			return nil, err
		}
		k.EffectsTree = root
	}
	return k, nil
}

func treeFromHCL(doc *hclNode, path string) (*TreeNode, error) {
	params, err := ctyParams(doc.Params)
	if err != nil {
		return nil, &ValidationError{Violations: []Violation{{
			Path:    path + ".params",
			Message: err.Error(),
		}}}
	}

	node := &TreeNode{
		ID:       doc.ID,
		Duration: doc.Duration,
		Between:  doc.Between,
		Params:   params,
	}
	switch doc.Type {
	case "segment", "leaf":
		node.Kind = KindLeaf
		node.SegmentID = doc.Segment
	case "sequence":
		node.Kind = KindSequence
	default:
		node.Kind = KindTransition
		node.Type = doc.Type
	}

	for i, child := range doc.Nodes {
		converted, err := treeFromHCL(child, fmt.Sprintf("%s.node[%d]", path, i))
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, converted)
	}
	return node, nil
}

func ctyParams(v *cty.Value) (map[string]any, error) {
	if v == nil || v.IsNull() {
		return nil, nil
	}
	native, err := ctyToNative(*v)
	if err != nil {
		return nil, err
	}
	params, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("params must be an object")
	}
	return params, nil
}

// ctyToNative recursively converts a cty.Value to its most natural Go
// counterpart, so HCL-authored parameters look identical to JSON-authored
// ones downstream.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number to float64: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		slice := make([]any, 0)
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			slice = append(slice, native)
		}
		return slice, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported parameter type %s", ty.FriendlyName())
	}
}
