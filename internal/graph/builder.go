package graph

import (
	"github.com/mattjoyce/kompozer/internal/komposition"
)

// Build constructs the graph skeleton from a validated komposition: one
// source node per distinct sourceRef in use and one extraction node per
// segment. Effect nodes are layered on afterwards by the effects resolver.
//
// It returns the graph and a map from segment id to its extraction node id.
func Build(k *komposition.Komposition) (*Graph, map[string]string, error) {
	g := New()
	segmentNodes := make(map[string]string, len(k.Segments))

	for _, seg := range k.Segments {
		ref, ok := k.Sources[seg.SourceRef]
		if !ok {
			return nil, nil, &UnresolvedReferenceError{Ref: seg.SourceRef, Context: "segment " + seg.ID}
		}
		sourceID := g.AddSource(seg.SourceRef, ref)

		nodeID, _, err := g.AddIntermediate("extract", seg.Operation, extractionParams(seg), sourceID)
		if err != nil {
			return nil, nil, err
		}
		g.SetSegment(nodeID, seg.ID)
		segmentNodes[seg.ID] = nodeID
	}

	return g, segmentNodes, nil
}

// extractionParams folds the segment's beat window into its operation
// parameters. The window is an input to the extraction, so two segments
// cutting different beat ranges from one source must not collapse into a
// single node, while truly identical extractions still deduplicate.
func extractionParams(seg komposition.Segment) map[string]any {
	params := make(map[string]any, len(seg.Params)+2)
	for k, v := range seg.Params {
		params[k] = v
	}
	params["start_beat"] = seg.StartBeat
	params["end_beat"] = seg.EndBeat
	return params
}
