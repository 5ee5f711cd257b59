// Package timing converts between musical time (beats at a tempo) and
// wall-clock seconds. All conversions are pure and full-precision; any
// rounding is a presentation concern for callers.
package timing

import "fmt"

// InvalidTempoError reports a conversion attempted with a non-positive BPM.
type InvalidTempoError struct {
	BPM float64
}

func (e *InvalidTempoError) Error() string {
	return fmt.Sprintf("invalid tempo: bpm must be positive, got %v", e.BPM)
}

// InvalidBeatRangeError reports a beat range whose start is not strictly
// before its end.
type InvalidBeatRangeError struct {
	StartBeat float64
	EndBeat   float64
}

func (e *InvalidBeatRangeError) Error() string {
	return fmt.Sprintf("invalid beat range: start %v must be before end %v", e.StartBeat, e.EndBeat)
}

// BeatsToSeconds converts a beat position to seconds at the given tempo.
func BeatsToSeconds(beat, bpm float64) (float64, error) {
	if bpm <= 0 {
		return 0, &InvalidTempoError{BPM: bpm}
	}
	return beat * 60 / bpm, nil
}

// SecondsToBeats converts seconds to a beat position at the given tempo.
func SecondsToBeats(seconds, bpm float64) (float64, error) {
	if bpm <= 0 {
		return 0, &InvalidTempoError{BPM: bpm}
	}
	return seconds * bpm / 60, nil
}

// RangeDuration returns the duration in seconds of the beat range
// [startBeat, endBeat) at the given tempo. The range must be strictly
// positive.
func RangeDuration(startBeat, endBeat, bpm float64) (float64, error) {
	if bpm <= 0 {
		return 0, &InvalidTempoError{BPM: bpm}
	}
	if startBeat >= endBeat {
		return 0, &InvalidBeatRangeError{StartBeat: startBeat, EndBeat: endBeat}
	}
	return (endBeat - startBeat) * 60 / bpm, nil
}
