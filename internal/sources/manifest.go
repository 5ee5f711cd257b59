package sources

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CutPoint is one analyzer-suggested extraction window.
type CutPoint struct {
	Start    float64 `yaml:"start"`
	Duration float64 `yaml:"duration"`
}

// ManifestEntry describes one source file.
type ManifestEntry struct {
	DurationSeconds float64    `yaml:"duration_seconds"`
	CutPoints       []CutPoint `yaml:"cut_points,omitempty"`
}

// Manifest is a yaml-backed implementation of FileResolver and
// ContentAnalyzer, keyed by source file reference. It lets the CLI compile
// kompositions without a live media catalog.
type Manifest struct {
	entries map[string]ManifestEntry
}

type manifestDoc struct {
	Sources map[string]ManifestEntry `yaml:"sources"`
}

// LoadManifest reads a source manifest from a yaml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source manifest: %w", err)
	}

	var doc manifestDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse source manifest: %w", err)
	}
	if len(doc.Sources) == 0 {
		return nil, fmt.Errorf("source manifest %s declares no sources", path)
	}

	for ref, entry := range doc.Sources {
		if entry.DurationSeconds <= 0 {
			return nil, fmt.Errorf("source manifest: %s: duration_seconds must be positive, got %v", ref, entry.DurationSeconds)
		}
	}
	return &Manifest{entries: doc.Sources}, nil
}

// NewManifest builds a manifest from an in-memory map.
func NewManifest(entries map[string]ManifestEntry) *Manifest {
	return &Manifest{entries: entries}
}

// GetDuration implements FileResolver.
func (m *Manifest) GetDuration(_ context.Context, sourceRef string) (float64, error) {
	entry, ok := m.entries[sourceRef]
	if !ok {
		return 0, fmt.Errorf("%q: %w", sourceRef, ErrNotFound)
	}
	return entry.DurationSeconds, nil
}

// SuggestCutPoints implements ContentAnalyzer. It picks the longest
// declared cut point that fits the target duration; with none declared or
// none fitting, it cuts from the start of the file.
func (m *Manifest) SuggestCutPoints(_ context.Context, sourceRef string, targetDurationSeconds float64) (float64, float64, error) {
	entry, ok := m.entries[sourceRef]
	if !ok {
		return 0, 0, fmt.Errorf("%q: %w", sourceRef, ErrNotFound)
	}

	best := CutPoint{Start: 0, Duration: 0}
	for _, cp := range entry.CutPoints {
		if cp.Duration <= targetDurationSeconds && cp.Duration > best.Duration {
			best = cp
		}
	}
	if best.Duration > 0 {
		return best.Start, best.Duration, nil
	}

	duration := targetDurationSeconds
	if entry.DurationSeconds < duration {
		duration = entry.DurationSeconds
	}
	return 0, duration, nil
}
