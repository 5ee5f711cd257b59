package komposition

import (
	"errors"
	"strings"
	"testing"

	"github.com/mattjoyce/kompozer/internal/catalog"
)

func validKomposition() *Komposition {
	return &Komposition{
		BPM:             120,
		BeatsPerMeasure: 4,
		TotalBeats:      48,
		Resolution:      Resolution{Width: 1920, Height: 1080},
		RenderRange:     BeatRange{StartBeat: 0, EndBeat: 48},
		Sources:         map[string]string{"intro": "file123", "outro": "file456"},
		Segments: []Segment{
			{ID: "seg1", StartBeat: 0, EndBeat: 16, SourceRef: "intro", Operation: "trim"},
			{ID: "seg2", StartBeat: 16, EndBeat: 32, SourceRef: "intro", Operation: "smart_cut"},
			{ID: "seg3", StartBeat: 32, EndBeat: 48, SourceRef: "outro", Operation: "trim"},
		},
		EffectsTree: &TreeNode{
			Kind: KindSequence,
			Children: []*TreeNode{
				{
					Kind:     KindTransition,
					Type:     "crossfade_transition",
					Duration: 1.0,
					Between:  []string{"seg1", "seg2"},
					Children: []*TreeNode{
						{Kind: KindLeaf, SegmentID: "seg1"},
						{Kind: KindLeaf, SegmentID: "seg2"},
					},
				},
				{Kind: KindLeaf, SegmentID: "seg3"},
			},
		},
	}
}

func violationPaths(t *testing.T, err error) []string {
	t.Helper()
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %T(%v), want *ValidationError", err, err)
	}
	paths := make([]string, 0, len(vErr.Violations))
	for _, v := range vErr.Violations {
		paths = append(paths, v.Path)
	}
	return paths
}

func hasPath(paths []string, want string) bool {
	for _, p := range paths {
		if strings.HasPrefix(p, want) {
			return true
		}
	}
	return false
}

func TestValidateAcceptsValidDocument(t *testing.T) {
	if err := Validate(validKomposition(), catalog.Default()); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateRenderRangeBeyondTotalBeats(t *testing.T) {
	k := validKomposition()
	k.RenderRange.EndBeat = 64

	paths := violationPaths(t, Validate(k, catalog.Default()))
	if !hasPath(paths, "metadata.renderEndBeat") {
		t.Fatalf("violations = %v, want metadata.renderEndBeat", paths)
	}
}

func TestValidateUnsetRenderRange(t *testing.T) {
	// Omitting the render range entirely means "render everything".
	k := validKomposition()
	k.RenderRange = BeatRange{}
	if err := Validate(k, catalog.Default()); err != nil {
		t.Fatalf("Validate() error = %v, want nil for unset render range", err)
	}
}

func TestValidateInvertedSegmentRange(t *testing.T) {
	k := validKomposition()
	k.Segments[1].StartBeat = 40
	k.Segments[1].EndBeat = 20

	paths := violationPaths(t, Validate(k, catalog.Default()))
	if !hasPath(paths, "segments[1].startBeat") {
		t.Fatalf("violations = %v, want segments[1].startBeat", paths)
	}
}

func TestValidateDanglingSourceRef(t *testing.T) {
	k := validKomposition()
	k.Segments[0].SourceRef = "missing"

	paths := violationPaths(t, Validate(k, catalog.Default()))
	if !hasPath(paths, "segments[0].sourceRef") {
		t.Fatalf("violations = %v, want segments[0].sourceRef", paths)
	}
}

func TestValidateDuplicateSegmentIDs(t *testing.T) {
	k := validKomposition()
	k.Segments[2].ID = "seg1"

	paths := violationPaths(t, Validate(k, catalog.Default()))
	if !hasPath(paths, "segments[2].id") {
		t.Fatalf("violations = %v, want segments[2].id", paths)
	}
}

func TestValidateUnknownOperation(t *testing.T) {
	k := validKomposition()
	k.Segments[0].Operation = "reverse"

	paths := violationPaths(t, Validate(k, catalog.Default()))
	if !hasPath(paths, "segments[0].operation") {
		t.Fatalf("violations = %v, want segments[0].operation", paths)
	}
}

func TestValidateLeafReferencesMissingSegment(t *testing.T) {
	k := validKomposition()
	k.EffectsTree.Children[1].SegmentID = "ghost"

	paths := violationPaths(t, Validate(k, catalog.Default()))
	if !hasPath(paths, "effects_tree.root.children[1].segment") {
		t.Fatalf("violations = %v, want effects_tree.root.children[1].segment", paths)
	}
}

func TestValidateTransitionShape(t *testing.T) {
	k := validKomposition()
	tr := k.EffectsTree.Children[0]
	tr.Between = []string{"seg1", "ghost"}
	tr.Duration = 0
	tr.Children = tr.Children[:1]

	paths := violationPaths(t, Validate(k, catalog.Default()))
	for _, want := range []string{
		"effects_tree.root.children[0].between[1]",
		"effects_tree.root.children[0].duration",
		"effects_tree.root.children[0].children",
	} {
		if !hasPath(paths, want) {
			t.Fatalf("violations = %v, want %s", paths, want)
		}
	}
}

func TestValidateReportsAllViolationsAtOnce(t *testing.T) {
	k := validKomposition()
	k.Segments[0].SourceRef = "missing"
	k.Segments[2].ID = "seg1"
	k.RenderRange.EndBeat = 100

	err := Validate(k, catalog.Default())
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %T, want *ValidationError", err)
	}
	if len(vErr.Violations) < 3 {
		t.Fatalf("violations = %d, want bulk report of at least 3", len(vErr.Violations))
	}
}

func TestValidateMissingTree(t *testing.T) {
	k := validKomposition()
	k.EffectsTree = nil

	paths := violationPaths(t, Validate(k, catalog.Default()))
	if !hasPath(paths, "effects_tree.root") {
		t.Fatalf("violations = %v, want effects_tree.root", paths)
	}
}

func TestValidateDoesNotFlagZeroBPM(t *testing.T) {
	// Tempo validity is the timing engine's contract: bpm = 0 must surface
	// as InvalidTempoError during timing resolution, not schema validation.
	k := validKomposition()
	k.BPM = 0
	if err := Validate(k, catalog.Default()); err != nil {
		t.Fatalf("Validate() error = %v, want nil for bpm 0", err)
	}
}
