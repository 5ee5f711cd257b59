// Package snippets maps each segment's beat range onto source-file
// timestamps and picks an extraction strategy, consulting the FileResolver
// and ContentAnalyzer collaborators.
package snippets

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattjoyce/kompozer/internal/catalog"
	"github.com/mattjoyce/kompozer/internal/graph"
	"github.com/mattjoyce/kompozer/internal/komposition"
	"github.com/mattjoyce/kompozer/internal/log"
	"github.com/mattjoyce/kompozer/internal/sources"
	"github.com/mattjoyce/kompozer/internal/timing"
)

// DefaultMaxStretchFactor bounds the silent upgrade from trim/smart_cut to
// time_stretch. Past it the plan would be audibly degraded, so compilation
// fails instead.
const DefaultMaxStretchFactor = 3.0

// Descriptor is one snippet-extraction instruction in the build plan.
type Descriptor struct {
	SegmentID                string  `json:"segment_id"`
	NodeID                   string  `json:"node_id"`
	SourceRef                string  `json:"source_ref"`
	SourceFileID             string  `json:"source_file_id"`
	TargetStartBeat          float64 `json:"target_start_beat"`
	TargetEndBeat            float64 `json:"target_end_beat"`
	RequestedStartSeconds    float64 `json:"requested_start_seconds"`
	RequestedDurationSeconds float64 `json:"requested_duration_seconds"`
	AvailableDurationSeconds float64 `json:"available_duration_seconds,omitempty"`
	ExtractionMethod         string  `json:"extraction_method"`
	StretchFactor            float64 `json:"stretch_factor,omitempty"`
	AutoUpgraded             bool    `json:"auto_upgraded,omitempty"`
}

// UnachievableDurationError reports a segment whose required stretch
// factor exceeds the configured bound.
type UnachievableDurationError struct {
	SegmentID        string
	RequestedSeconds float64
	AvailableSeconds float64
	Factor           float64
	Bound            float64
}

func (e *UnachievableDurationError) Error() string {
	return fmt.Sprintf("segment %q: requested %.3fs from a %.3fs source needs a %.2fx stretch, exceeding the %.2fx bound",
		e.SegmentID, e.RequestedSeconds, e.AvailableSeconds, e.Factor, e.Bound)
}

// CollaboratorUnavailableError reports a failed FileResolver or
// ContentAnalyzer call.
type CollaboratorUnavailableError struct {
	Collaborator string
	SourceRef    string
	Err          error
}

func (e *CollaboratorUnavailableError) Error() string {
	return fmt.Sprintf("%s failed for source %q: %v", e.Collaborator, e.SourceRef, e.Err)
}

func (e *CollaboratorUnavailableError) Unwrap() error { return e.Err }

// Planner produces extraction descriptors for every segment.
type Planner struct {
	resolver   sources.FileResolver
	analyzer   sources.ContentAnalyzer
	maxStretch float64
}

// NewPlanner builds a Planner. A non-positive maxStretch falls back to
// DefaultMaxStretchFactor.
func NewPlanner(resolver sources.FileResolver, analyzer sources.ContentAnalyzer, maxStretch float64) *Planner {
	if maxStretch <= 0 {
		maxStretch = DefaultMaxStretchFactor
	}
	return &Planner{resolver: resolver, analyzer: analyzer, maxStretch: maxStretch}
}

// Plan produces one descriptor per segment, in document order.
// segmentNodes maps segment ids to their extraction node ids.
func (p *Planner) Plan(ctx context.Context, k *komposition.Komposition, segmentNodes map[string]string) ([]Descriptor, error) {
	logger := log.WithComponent("snippets")

	out := make([]Descriptor, 0, len(k.Segments))
	for _, seg := range k.Segments {
		desc, err := p.planSegment(ctx, k, seg, segmentNodes[seg.ID])
		if err != nil {
			return nil, err
		}
		if desc.AutoUpgraded {
			logger.Debug("auto-upgraded extraction to time_stretch",
				"segment", seg.ID, "stretch_factor", desc.StretchFactor)
		}
		out = append(out, desc)
	}
	return out, nil
}

func (p *Planner) planSegment(ctx context.Context, k *komposition.Komposition, seg komposition.Segment, nodeID string) (Descriptor, error) {
	requested, err := timing.RangeDuration(seg.StartBeat, seg.EndBeat, k.BPM)
	if err != nil {
		return Descriptor{}, err
	}

	desc := Descriptor{
		SegmentID:                seg.ID,
		NodeID:                   nodeID,
		SourceRef:                seg.SourceRef,
		SourceFileID:             k.Sources[seg.SourceRef],
		TargetStartBeat:          seg.StartBeat,
		TargetEndBeat:            seg.EndBeat,
		RequestedDurationSeconds: requested,
		ExtractionMethod:         seg.Operation,
	}

	// Still images have no intrinsic duration; the extraction just renders
	// the image for the beat window.
	if seg.Operation == catalog.OpImageToVideo {
		return desc, nil
	}

	available, err := p.resolver.GetDuration(ctx, desc.SourceFileID)
	if err != nil {
		if errors.Is(err, sources.ErrNotFound) {
			return Descriptor{}, &graph.UnresolvedReferenceError{
				Ref:     desc.SourceFileID,
				Context: "segment " + seg.ID,
			}
		}
		return Descriptor{}, &CollaboratorUnavailableError{
			Collaborator: "FileResolver",
			SourceRef:    desc.SourceFileID,
			Err:          err,
		}
	}
	desc.AvailableDurationSeconds = available

	switch seg.Operation {
	case catalog.OpTimeStretch:
		return p.stretch(desc, seg, requested, available, false)

	case catalog.OpTrim:
		if available < requested {
			return p.stretch(desc, seg, requested, available, true)
		}
		desc.RequestedStartSeconds = paramSeconds(seg.Params, "source_start_seconds")
		return desc, nil

	case catalog.OpSmartCut:
		if available < requested {
			return p.stretch(desc, seg, requested, available, true)
		}
		// Timestamp selection is delegated to the analyzer; its answer is
		// embedded without further validation.
		start, duration, err := p.analyzer.SuggestCutPoints(ctx, desc.SourceFileID, requested)
		if err != nil {
			return Descriptor{}, &CollaboratorUnavailableError{
				Collaborator: "ContentAnalyzer",
				SourceRef:    desc.SourceFileID,
				Err:          err,
			}
		}
		desc.RequestedStartSeconds = start
		desc.RequestedDurationSeconds = duration
		return desc, nil

	default:
		return Descriptor{}, fmt.Errorf("segment %q: unplannable operation %q", seg.ID, seg.Operation)
	}
}

// stretch finalizes a time_stretch descriptor, failing when the factor
// exceeds the policy bound. upgraded marks the silent-upgrade case, which
// is recorded in the descriptor rather than hidden.
func (p *Planner) stretch(desc Descriptor, seg komposition.Segment, requested, available float64, upgraded bool) (Descriptor, error) {
	factor := requested / available
	if factor > p.maxStretch {
		return Descriptor{}, &UnachievableDurationError{
			SegmentID:        seg.ID,
			RequestedSeconds: requested,
			AvailableSeconds: available,
			Factor:           factor,
			Bound:            p.maxStretch,
		}
	}
	desc.ExtractionMethod = catalog.OpTimeStretch
	desc.StretchFactor = factor
	desc.AutoUpgraded = upgraded
	return desc, nil
}

func paramSeconds(params map[string]any, key string) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
