// Package multitempo re-derives every segment duration under a set of
// candidate tempi as a dry-run consistency check. It never changes the
// committed plan's BPM; it exists to catch planner arithmetic bugs before
// a plan is committed.
package multitempo

import (
	"fmt"
	"math"
	"strconv"

	"github.com/mattjoyce/kompozer/internal/komposition"
	"github.com/mattjoyce/kompozer/internal/timing"
)

// DefaultSanityFactor bounds how far a candidate duration may drift from
// the committed-BPM duration before the candidate fails.
const DefaultSanityFactor = 10.0

// DefaultTolerance is the floating tolerance (seconds) for the
// duration-sum consistency check.
const DefaultTolerance = 1e-6

// Result is the outcome of checking one candidate BPM.
type Result struct {
	BPM              float64            `json:"bpm"`
	Pass             bool               `json:"pass"`
	SegmentDurations map[string]float64 `json:"segment_durations"`
	TotalDuration    float64            `json:"total_duration"`
	Reason           string             `json:"reason,omitempty"`
}

// InconsistencyError reports that re-derived segment durations do not sum
// to the whole-range duration under a candidate tempo. This is an internal
// arithmetic failure, not a property of the input document.
type InconsistencyError struct {
	BPM  float64
	Got  float64
	Want float64
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("multi-tempo check at %v bpm: segment durations sum to %v, want %v", e.BPM, e.Got, e.Want)
}

// Check validates the komposition's timing under every candidate BPM.
// Results are keyed by the candidate's decimal form (e.g. "120"). A
// candidate exceeding the sanity bound is reported as failed; a
// sum-consistency mismatch aborts with InconsistencyError.
func Check(k *komposition.Komposition, candidates []float64, sanityFactor, tolerance float64) (map[string]Result, error) {
	if sanityFactor <= 0 {
		sanityFactor = DefaultSanityFactor
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	baseline := make(map[string]float64, len(k.Segments))
	for _, seg := range k.Segments {
		dur, err := timing.RangeDuration(seg.StartBeat, seg.EndBeat, k.BPM)
		if err != nil {
			return nil, err
		}
		baseline[seg.ID] = dur
	}

	results := make(map[string]Result, len(candidates))
	for _, bpm := range candidates {
		result, err := checkCandidate(k, bpm, baseline, sanityFactor, tolerance)
		if err != nil {
			return nil, err
		}
		results[bpmKey(bpm)] = result
	}
	return results, nil
}

func checkCandidate(k *komposition.Komposition, bpm float64, baseline map[string]float64, sanityFactor, tolerance float64) (Result, error) {
	result := Result{
		BPM:              bpm,
		Pass:             true,
		SegmentDurations: make(map[string]float64, len(k.Segments)),
	}

	var totalBeats float64
	for _, seg := range k.Segments {
		dur, err := timing.RangeDuration(seg.StartBeat, seg.EndBeat, bpm)
		if err != nil {
			return Result{}, err
		}
		result.SegmentDurations[seg.ID] = dur
		result.TotalDuration += dur
		totalBeats += seg.Beats()

		if dur <= 0 {
			result.Pass = false
			result.Reason = fmt.Sprintf("segment %q duration %v is not positive", seg.ID, dur)
			continue
		}
		if bound := baseline[seg.ID] * sanityFactor; dur > bound {
			result.Pass = false
			result.Reason = fmt.Sprintf("segment %q duration %.3fs exceeds %.1fx the committed-tempo duration", seg.ID, dur, sanityFactor)
		}
	}

	// The per-segment sums must reproduce the whole-range arithmetic.
	expected, err := timing.BeatsToSeconds(totalBeats, bpm)
	if err != nil {
		return Result{}, err
	}
	if math.Abs(result.TotalDuration-expected) > tolerance {
		return Result{}, &InconsistencyError{BPM: bpm, Got: result.TotalDuration, Want: expected}
	}
	return result, nil
}

func bpmKey(bpm float64) string {
	return strconv.FormatFloat(bpm, 'f', -1, 64)
}
