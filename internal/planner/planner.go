// Package planner orchestrates the compilation pipeline: it walks a
// komposition through the fixed stage sequence and assembles the build
// plan, or fails at the first stage that rejects it.
package planner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mattjoyce/kompozer/internal/catalog"
	"github.com/mattjoyce/kompozer/internal/config"
	"github.com/mattjoyce/kompozer/internal/effects"
	"github.com/mattjoyce/kompozer/internal/graph"
	"github.com/mattjoyce/kompozer/internal/komposition"
	"github.com/mattjoyce/kompozer/internal/log"
	"github.com/mattjoyce/kompozer/internal/multitempo"
	"github.com/mattjoyce/kompozer/internal/plan"
	"github.com/mattjoyce/kompozer/internal/snippets"
	"github.com/mattjoyce/kompozer/internal/sources"
	"github.com/mattjoyce/kompozer/internal/timing"
)

// Stage identifies one step of the compilation pipeline.
type Stage string

const (
	StageReceived          Stage = "received"
	StageValidated         Stage = "validated"
	StageTimingResolved    Stage = "timing_resolved"
	StageGraphBuilt        Stage = "graph_built"
	StageSnippetsPlanned   Stage = "snippets_planned"
	StageEffectsResolved   Stage = "effects_resolved"
	StageMultiTempoChecked Stage = "multi_tempo_checked"
	StageAssembled         Stage = "assembled"
)

// StageError wraps a failure with the stage that produced it. The pipeline
// stops at the first failing stage; later stages never run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Planner compiles kompositions into build plans.
type Planner struct {
	cfg   config.PlannerConfig
	cat   *catalog.Catalog
	snips *snippets.Planner
}

// New builds a Planner around the given collaborators.
func New(cfg config.PlannerConfig, cat *catalog.Catalog, resolver sources.FileResolver, analyzer sources.ContentAnalyzer) *Planner {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Planner{
		cfg:   cfg,
		cat:   cat,
		snips: snippets.NewPlanner(resolver, analyzer, cfg.MaxStretchFactor),
	}
}

// Compile runs the full pipeline. The returned plan is complete and
// self-contained; on error the plan is nil and the error carries the
// failing stage.
func (p *Planner) Compile(ctx context.Context, k *komposition.Komposition) (*plan.BuildPlan, error) {
	fingerprint, err := k.Fingerprint()
	if err != nil {
		return nil, &StageError{Stage: StageReceived, Err: err}
	}

	bp := plan.New(fingerprint)
	logger := log.WithPlan(bp.PlanID)
	logger.Info("compilation started", "fingerprint", fingerprint, "segments", len(k.Segments))

	if err := komposition.Validate(k, p.cat); err != nil {
		return nil, fail(logger, StageValidated, err)
	}
	logger.Debug("stage complete", "stage", StageValidated)

	bt, err := p.resolveTiming(k)
	if err != nil {
		return nil, fail(logger, StageTimingResolved, err)
	}
	bp.BeatTiming = bt
	logger.Debug("stage complete", "stage", StageTimingResolved, "duration_seconds", bt.DurationSeconds)

	g, segmentNodes, err := graph.Build(k)
	if err != nil {
		return nil, fail(logger, StageGraphBuilt, err)
	}
	logger.Debug("stage complete", "stage", StageGraphBuilt, "nodes", g.Len())

	descs, err := p.snips.Plan(ctx, k, segmentNodes)
	if err != nil {
		return nil, fail(logger, StageSnippetsPlanned, err)
	}
	bp.SnippetExtractions = descs
	logger.Debug("stage complete", "stage", StageSnippetsPlanned, "extractions", len(descs))

	order, finalID, err := effects.Resolve(g, k, segmentNodes)
	if err != nil {
		return nil, fail(logger, StageEffectsResolved, err)
	}
	logger.Debug("stage complete", "stage", StageEffectsResolved, "final", finalID)

	validation, err := multitempo.Check(k, p.cfg.CandidateBPMs, p.cfg.SanityFactor, p.cfg.Tolerance)
	if err != nil {
		return nil, fail(logger, StageMultiTempoChecked, err)
	}
	bp.Validation = validation
	logger.Debug("stage complete", "stage", StageMultiTempoChecked, "candidates", len(validation))

	// The flattened effect order is already dependency-valid; the topo sort
	// cross-checks it against the full graph, sources included.
	if _, err := g.TopoSort(); err != nil {
		return nil, fail(logger, StageAssembled, err)
	}
	bp.DependencyGraph = plan.DependencyGraph{Nodes: g.Nodes(), Edges: g.Edges()}
	bp.ExecutionOrder = order

	logger.Info("compilation finished", "stage", StageAssembled,
		"execution_steps", len(order), "nodes", g.Len())
	return bp, nil
}

// resolveTiming commits the document tempo and derives every duration the
// plan reports. Tempo errors surface here, not during schema validation.
func (p *Planner) resolveTiming(k *komposition.Komposition) (plan.BeatTiming, error) {
	start, end := k.RenderRange.StartBeat, k.RenderRange.EndBeat
	if end == 0 {
		end = float64(k.TotalBeats)
	}

	total, err := timing.RangeDuration(start, end, k.BPM)
	if err != nil {
		return plan.BeatTiming{}, err
	}

	segmentDurations := make(map[string]float64, len(k.Segments))
	for _, seg := range k.Segments {
		dur, err := timing.RangeDuration(seg.StartBeat, seg.EndBeat, k.BPM)
		if err != nil {
			return plan.BeatTiming{}, err
		}
		segmentDurations[seg.ID] = dur
	}

	return plan.BeatTiming{
		BPM:              k.BPM,
		BeatsPerMeasure:  k.BeatsPerMeasure,
		StartBeat:        start,
		EndBeat:          end,
		DurationSeconds:  total,
		SegmentDurations: segmentDurations,
	}, nil
}

func fail(logger *slog.Logger, stage Stage, err error) error {
	logger.Error("compilation failed", "stage", stage, "error", err)
	return &StageError{Stage: stage, Err: err}
}
