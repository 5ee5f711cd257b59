// Package catalog is the closed registry of operations and effect types the
// planner knows how to schedule. The schema validator consults it to reject
// unknown operations before any graph work happens.
package catalog

import "sort"

// Extraction operations.
const (
	OpTrim         = "trim"
	OpSmartCut     = "smart_cut"
	OpTimeStretch  = "time_stretch"
	OpImageToVideo = "image_to_video"
)

// Composition operations emitted by the effects resolver.
const (
	OpConcat  = "concat"
	OpCompose = "compose"
)

// Effect-tree node types.
const (
	EffectSequence          = "sequence"
	EffectCrossfade         = "crossfade_transition"
	EffectOpacityTransition = "opacity_transition"
)

// Segment-level effect types.
const (
	EffectFadeIn      = "fade_in"
	EffectFadeOut     = "fade_out"
	EffectBrightness  = "brightness"
	EffectSaturation  = "saturation"
	EffectOverlayText = "overlay_text"
)

// Catalog holds the supported operation and effect-type sets.
type Catalog struct {
	operations  map[string]struct{}
	transitions map[string]struct{}
	effects     map[string]struct{}
}

// Default returns the catalog of everything the execution layer can run.
func Default() *Catalog {
	return &Catalog{
		operations: set(OpTrim, OpSmartCut, OpTimeStretch, OpImageToVideo),
		transitions: set(
			EffectCrossfade,
			EffectOpacityTransition,
		),
		effects: set(
			EffectFadeIn,
			EffectFadeOut,
			EffectBrightness,
			EffectSaturation,
			EffectOverlayText,
		),
	}
}

// IsSupported reports whether name is a known extraction operation.
func (c *Catalog) IsSupported(name string) bool {
	_, ok := c.operations[name]
	return ok
}

// IsTransition reports whether name is a known transition type.
func (c *Catalog) IsTransition(name string) bool {
	_, ok := c.transitions[name]
	return ok
}

// IsEffect reports whether name is a known segment-level effect type.
func (c *Catalog) IsEffect(name string) bool {
	_, ok := c.effects[name]
	return ok
}

// Operations returns the sorted list of extraction operations.
func (c *Catalog) Operations() []string { return sorted(c.operations) }

// Transitions returns the sorted list of transition types.
func (c *Catalog) Transitions() []string { return sorted(c.transitions) }

// Effects returns the sorted list of segment-level effect types.
func (c *Catalog) Effects() []string { return sorted(c.effects) }

func set(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

func sorted(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
