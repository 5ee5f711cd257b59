package komposition

import (
	"fmt"
	"strings"

	"github.com/mattjoyce/kompozer/internal/catalog"
)

// Violation is one structural problem found in a document.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError reports every structural violation found in a document.
// Validation is all-or-nothing: a document either fully validates or is
// rejected with the complete violation list.
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "schema validation failed"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "schema validation failed (%d violation(s)):", len(e.Violations))
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "\n  %s: %s", v.Path, v.Message)
	}
	return b.String()
}

// validator accumulates violations while walking a document.
type validator struct {
	cat        *catalog.Catalog
	violations []Violation
}

func (v *validator) addf(path, format string, args ...any) {
	v.violations = append(v.violations, Violation{
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	})
}

// Validate checks the komposition against its structural invariants and
// returns a ValidationError listing every violation. Tempo validity
// (bpm > 0) is the timing engine's contract, not a schema concern.
func Validate(k *Komposition, cat *catalog.Catalog) error {
	if cat == nil {
		cat = catalog.Default()
	}
	v := &validator{cat: cat}

	v.checkMetadata(k)
	segmentIDs := v.checkSegments(k)
	v.checkTree(k, segmentIDs)

	if len(v.violations) > 0 {
		return &ValidationError{Violations: v.violations}
	}
	return nil
}

func (v *validator) checkMetadata(k *Komposition) {
	if k.BeatsPerMeasure <= 0 {
		v.addf("metadata.beatsPerMeasure", "must be a positive integer, got %d", k.BeatsPerMeasure)
	}
	if k.TotalBeats <= 0 {
		v.addf("metadata.totalBeats", "must be a positive integer, got %d", k.TotalBeats)
	}
	if k.Resolution.Width <= 0 || k.Resolution.Height <= 0 {
		v.addf("metadata.resolution", "required, must be WIDTHxHEIGHT with positive dimensions")
	}
	// An entirely unset render range means "render everything".
	if k.RenderRange != (BeatRange{}) {
		if k.RenderRange.StartBeat < 0 {
			v.addf("metadata.renderStartBeat", "must be >= 0, got %v", k.RenderRange.StartBeat)
		}
		if k.RenderRange.StartBeat >= k.RenderRange.EndBeat {
			v.addf("metadata.renderStartBeat", "render range start %v must be before end %v",
				k.RenderRange.StartBeat, k.RenderRange.EndBeat)
		}
		if k.TotalBeats > 0 && k.RenderRange.EndBeat > float64(k.TotalBeats) {
			v.addf("metadata.renderEndBeat", "render range end %v exceeds totalBeats %d",
				k.RenderRange.EndBeat, k.TotalBeats)
		}
	}
}

func (v *validator) checkSegments(k *Komposition) map[string]bool {
	seen := make(map[string]bool, len(k.Segments))

	if len(k.Segments) == 0 {
		v.addf("segments", "at least one segment is required")
	}

	for i, seg := range k.Segments {
		path := fmt.Sprintf("segments[%d]", i)
		if seg.ID == "" {
			v.addf(path+".id", "required")
		} else if seen[seg.ID] {
			v.addf(path+".id", "duplicate segment id %q", seg.ID)
		} else {
			seen[seg.ID] = true
		}

		if seg.StartBeat < 0 {
			v.addf(path+".startBeat", "must be >= 0, got %v", seg.StartBeat)
		}
		if seg.StartBeat >= seg.EndBeat {
			v.addf(path+".startBeat", "start %v must be before end %v", seg.StartBeat, seg.EndBeat)
		}
		if k.TotalBeats > 0 && seg.EndBeat > float64(k.TotalBeats) {
			v.addf(path+".endBeat", "end %v exceeds totalBeats %d", seg.EndBeat, k.TotalBeats)
		}

		if seg.SourceRef == "" {
			v.addf(path+".sourceRef", "required")
		} else if _, ok := k.Sources[seg.SourceRef]; !ok {
			v.addf(path+".sourceRef", "source %q is not declared in sources", seg.SourceRef)
		}

		if seg.Operation == "" {
			v.addf(path+".operation", "required")
		} else if !v.cat.IsSupported(seg.Operation) {
			v.addf(path+".operation", "unknown operation %q (supported: %s)",
				seg.Operation, strings.Join(v.cat.Operations(), ", "))
		}

		for j, fx := range seg.Effects {
			if !v.cat.IsEffect(fx.Type) {
				v.addf(fmt.Sprintf("%s.effects[%d].type", path, j),
					"unknown effect type %q (supported: %s)", fx.Type, strings.Join(v.cat.Effects(), ", "))
			}
		}
	}
	return seen
}

func (v *validator) checkTree(k *Komposition, segmentIDs map[string]bool) {
	if k.EffectsTree == nil {
		v.addf("effects_tree.root", "required")
		return
	}

	// First pass: collect node ids so `between` may reference any node in
	// the tree, then verify each node's variant shape.
	nodeIDs := make(map[string]bool)
	k.EffectsTree.Walk(func(n *TreeNode) {
		if n.ID == "" {
			return
		}
		if nodeIDs[n.ID] {
			v.addf("effects_tree", "duplicate node id %q", n.ID)
			return
		}
		nodeIDs[n.ID] = true
	})

	var walk func(n *TreeNode, path string)
	walk = func(n *TreeNode, path string) {
		switch n.Kind {
		case KindLeaf:
			if n.SegmentID == "" {
				v.addf(path+".segment", "leaf node must reference a segment")
			} else if !segmentIDs[n.SegmentID] {
				v.addf(path+".segment", "segment %q does not exist", n.SegmentID)
			}
			if len(n.Children) > 0 {
				v.addf(path+".children", "leaf node must not have children")
			}

		case KindSequence:
			if len(n.Children) == 0 {
				v.addf(path+".children", "sequence node must have at least one child")
			}

		case KindTransition:
			if !v.cat.IsTransition(n.Type) {
				v.addf(path+".type", "unknown transition type %q (supported: %s)",
					n.Type, strings.Join(v.cat.Transitions(), ", "))
			}
			if len(n.Children) != 2 {
				v.addf(path+".children", "transition node must have exactly two children, got %d", len(n.Children))
			}
			if n.Duration <= 0 {
				v.addf(path+".duration", "transition duration must be positive, got %v", n.Duration)
			}
			if len(n.Between) != 2 {
				v.addf(path+".between", "must name exactly two segment or node ids, got %d", len(n.Between))
			}
			for i, ref := range n.Between {
				if ref == "" {
					v.addf(fmt.Sprintf("%s.between[%d]", path, i), "empty reference")
					continue
				}
				if !segmentIDs[ref] && !nodeIDs[ref] {
					v.addf(fmt.Sprintf("%s.between[%d]", path, i),
						"reference %q does not name an existing segment or node", ref)
				}
			}

		default:
			v.addf(path+".type", "unknown node kind %q", n.Kind)
		}

		for i, child := range n.Children {
			walk(child, fmt.Sprintf("%s.children[%d]", path, i))
		}
	}
	walk(k.EffectsTree, "effects_tree.root")
}
