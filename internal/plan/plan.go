// Package plan defines the build plan document: the compiler's only
// output. A plan is self-contained; executing it requires no access to
// the original komposition.
package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/kompozer/internal/graph"
	"github.com/mattjoyce/kompozer/internal/multitempo"
	"github.com/mattjoyce/kompozer/internal/snippets"
)

// BeatTiming is the resolved timing block: the committed tempo and the
// exact second durations derived from it.
type BeatTiming struct {
	BPM              float64            `json:"bpm"`
	BeatsPerMeasure  int                `json:"beats_per_measure"`
	StartBeat        float64            `json:"start_beat"`
	EndBeat          float64            `json:"end_beat"`
	DurationSeconds  float64            `json:"duration"`
	SegmentDurations map[string]float64 `json:"segment_durations"`
}

// DependencyGraph is the serialized form of the plan's DAG.
type DependencyGraph struct {
	Nodes []graph.Node `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

// BuildPlan is the complete compiled plan.
type BuildPlan struct {
	PlanID                 string                       `json:"plan_id"`
	CreatedAt              time.Time                    `json:"created_at"`
	KompositionFingerprint string                       `json:"komposition_fingerprint"`
	BeatTiming             BeatTiming                   `json:"beat_timing"`
	SnippetExtractions     []snippets.Descriptor        `json:"snippet_extractions"`
	DependencyGraph        DependencyGraph              `json:"dependency_graph"`
	ExecutionOrder         []string                     `json:"execution_order"`
	Validation             map[string]multitempo.Result `json:"validation"`
}

// New allocates a plan shell with a fresh id and timestamp. The planner
// fills in the rest.
func New(fingerprint string) *BuildPlan {
	return &BuildPlan{
		PlanID:                 uuid.NewString(),
		CreatedAt:              time.Now().UTC(),
		KompositionFingerprint: fingerprint,
	}
}

// Encode renders the plan as indented JSON.
func (p *BuildPlan) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("encoding plan %s: %w", p.PlanID, err)
	}
	return buf.Bytes(), nil
}

// Decode parses a plan previously produced by Encode.
func Decode(data []byte) (*BuildPlan, error) {
	var p BuildPlan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	if p.PlanID == "" {
		return nil, fmt.Errorf("decoding plan: missing plan_id")
	}
	return &p, nil
}

// NodeByID looks a node up in the serialized graph.
func (p *BuildPlan) NodeByID(id string) (graph.Node, bool) {
	for _, n := range p.DependencyGraph.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return graph.Node{}, false
}
