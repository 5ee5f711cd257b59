package multitempo

import (
	"errors"
	"math"
	"testing"

	"github.com/mattjoyce/kompozer/internal/komposition"
	"github.com/mattjoyce/kompozer/internal/timing"
)

func threeSegments() *komposition.Komposition {
	return &komposition.Komposition{
		BPM:        120,
		TotalBeats: 48,
		Segments: []komposition.Segment{
			{ID: "seg1", StartBeat: 0, EndBeat: 16},
			{ID: "seg2", StartBeat: 16, EndBeat: 32},
			{ID: "seg3", StartBeat: 32, EndBeat: 48},
		},
	}
}

func TestCheckStandardCandidates(t *testing.T) {
	results, err := Check(threeSegments(), []float64{100, 120, 135, 140}, 0, 0)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}

	want := map[string]float64{
		"100": 9.6,
		"120": 8.0,
		"135": 16 * 60.0 / 135.0,
		"140": 16 * 60.0 / 140.0,
	}
	for key, segDur := range want {
		r, ok := results[key]
		if !ok {
			t.Fatalf("missing result for %s bpm in %v", key, results)
		}
		if !r.Pass {
			t.Fatalf("candidate %s bpm failed: %s", key, r.Reason)
		}
		for id, got := range r.SegmentDurations {
			if math.Abs(got-segDur) > 1e-9 {
				t.Fatalf("candidate %s segment %s duration = %v, want %v", key, id, got, segDur)
			}
		}
		if math.Abs(r.TotalDuration-3*segDur) > 1e-9 {
			t.Fatalf("candidate %s total = %v, want %v", key, r.TotalDuration, 3*segDur)
		}
	}
}

func TestCheckSanityBoundFailsCandidate(t *testing.T) {
	// 1 bpm makes every segment 120x longer than at the committed 120 bpm,
	// well past the 10x bound. The candidate fails but Check itself does not.
	results, err := Check(threeSegments(), []float64{1}, 10, 0)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	r := results["1"]
	if r.Pass {
		t.Fatalf("candidate at 1 bpm passed, want sanity-bound failure")
	}
	if r.Reason == "" {
		t.Fatalf("failed candidate carries no reason")
	}
}

func TestCheckInvalidCandidate(t *testing.T) {
	_, err := Check(threeSegments(), []float64{0}, 0, 0)

	var tErr *timing.InvalidTempoError
	if !errors.As(err, &tErr) {
		t.Fatalf("error = %T(%v), want *InvalidTempoError", err, err)
	}
}

func TestCheckFractionalKey(t *testing.T) {
	results, err := Check(threeSegments(), []float64{128.5}, 0, 0)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if _, ok := results["128.5"]; !ok {
		t.Fatalf("expected key 128.5, got %v", results)
	}
}
